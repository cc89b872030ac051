package content

import (
	"strings"
	"time"

	"github.com/jinzhu/now"
)

const displayDateLayout = "January 2, 2006"

var dateParser = &now.Config{
	WeekStartDay: time.Sunday,
	TimeLocation: time.UTC,
	TimeFormats: append(append([]string{}, now.TimeFormats...),
		time.RFC3339,
		time.RFC3339Nano,
		displayDateLayout,
		"Jan 2, 2006",
		"2 January 2006",
	),
}

// ParseDate parses the loose date strings found in records.
func ParseDate(raw string) (time.Time, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, false
	}
	parsed, err := dateParser.Parse(trimmed)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// FormatDisplayDate renders a date as "January 2, 2006", or returns raw unchanged
// when it does not parse.
func FormatDisplayDate(raw string) string {
	parsed, ok := ParseDate(raw)
	if !ok {
		return raw
	}
	return parsed.Format(displayDateLayout)
}

// newerFirst orders two raw dates, most recent first. Unparseable dates sort last.
func newerFirst(left, right string) bool {
	leftTime, leftOK := ParseDate(left)
	rightTime, rightOK := ParseDate(right)
	switch {
	case leftOK && rightOK:
		return leftTime.After(rightTime)
	case leftOK:
		return true
	default:
		return false
	}
}
