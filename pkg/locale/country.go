package locale

import "sort"

const (
	DefaultRegion = "IN"
)

// Region describes where a hospital operates. BusinessDayOffset anchors the
// queue-token day boundary, so it is a fixed offset rather than an IANA zone.
type Region struct {
	Code              string   // ISO 3166-1 alpha-2 country code (e.g., "IN")
	Name              string   // Human-readable country name
	PhonePrefixes     []string // Valid phone number prefixes (e.g., ["+91", "91"])
	BusinessDayOffset string   // Fixed UTC offset of the business day (e.g., "+05:30")
}

var (
	Regions = map[string]Region{
		"IN": {
			Code:              "IN",
			Name:              "India",
			PhonePrefixes:     []string{"+91", "91"},
			BusinessDayOffset: "+05:30",
		},
		"NP": {
			Code:              "NP",
			Name:              "Nepal",
			PhonePrefixes:     []string{"+977", "977"},
			BusinessDayOffset: "+05:45",
		},
		"LK": {
			Code:              "LK",
			Name:              "Sri Lanka",
			PhonePrefixes:     []string{"+94", "94"},
			BusinessDayOffset: "+05:30",
		},
	}
)

// SupportedRegionCodes returns region codes in a stable order.
func SupportedRegionCodes() []string {
	codes := make([]string, 0, len(Regions))
	for code := range Regions {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// BusinessDayOffsetFor returns the configured offset of a region, or the default region's.
func BusinessDayOffsetFor(code string) string {
	if r, ok := Regions[code]; ok {
		return r.BusinessDayOffset
	}
	return Regions[DefaultRegion].BusinessDayOffset
}
