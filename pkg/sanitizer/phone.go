package sanitizer

import (
	"strings"

	"clinicq/pkg/locale"

	"github.com/nyaruka/phonenumbers"
)

// NormalizePhone formats phone as E.164. Numbers without a country prefix are
// parsed against defaultRegion first, then the other supported regions.
func NormalizePhone(phone, defaultRegion string) string {
	phone = strings.TrimSpace(phone)

	if phone == "" {
		return ""
	}

	regions := append([]string{defaultRegion}, locale.SupportedRegionCodes()...)
	for _, region := range regions {
		if region == "" {
			continue
		}
		parsedNumber, err := phonenumbers.Parse(phone, region)
		if err == nil {
			return phonenumbers.Format(parsedNumber, phonenumbers.E164)
		}
	}
	return ""
}
