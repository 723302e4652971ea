package locale

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// DateLayout is the wire and storage format of a business day.
const DateLayout = "2006-01-02"

var reOffset = regexp.MustCompile(`^([+-])(\d{2}):(\d{2})$`)

// Calendar maps instants onto business days at a fixed UTC offset.
// The host time zone is never consulted.
type Calendar struct {
	offset string
	loc    *time.Location
}

func NewCalendar(offset string) (*Calendar, error) {
	loc, err := parseOffset(offset)
	if err != nil {
		return nil, err
	}
	return &Calendar{offset: offset, loc: loc}, nil
}

// MustCalendar is NewCalendar for constant offsets.
func MustCalendar(offset string) *Calendar {
	c, err := NewCalendar(offset)
	if err != nil {
		panic(err)
	}
	return c
}

func parseOffset(offset string) (*time.Location, error) {
	if offset == "Z" || offset == "UTC" {
		return time.FixedZone("UTC", 0), nil
	}
	m := reOffset.FindStringSubmatch(offset)
	if m == nil {
		return nil, fmt.Errorf("invalid business day offset %q, expected ±HH:MM", offset)
	}
	hours, _ := strconv.Atoi(m[2])
	minutes, _ := strconv.Atoi(m[3])
	if hours > 14 || minutes > 59 {
		return nil, fmt.Errorf("business day offset %q out of range", offset)
	}
	seconds := hours*3600 + minutes*60
	if m[1] == "-" {
		seconds = -seconds
	}
	return time.FixedZone("UTC"+offset, seconds), nil
}

func (c *Calendar) Offset() string {
	return c.offset
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

// DayKey returns the business day containing t.
func (c *Calendar) DayKey(t time.Time) string {
	return t.In(c.loc).Format(DateLayout)
}

// StartOfDay returns the first instant of the business day containing t.
func (c *Calendar) StartOfDay(t time.Time) time.Time {
	local := t.In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)
}

// ParseDay parses a YYYY-MM-DD business day and returns its first instant.
func (c *Calendar) ParseDay(day string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, day, c.loc)
}

// AddDays shifts a business day by n calendar days.
func (c *Calendar) AddDays(day string, n int) (string, error) {
	t, err := c.ParseDay(day)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(DateLayout), nil
}

// ValidDay reports whether day is a well-formed YYYY-MM-DD date.
func ValidDay(day string) bool {
	_, err := time.Parse(DateLayout, day)
	return err == nil
}
