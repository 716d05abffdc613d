package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	relativeRe  = regexp.MustCompile(`^(\d+)\s*([a-z]+)$`)
	yesterdayRe = regexp.MustCompile(`^yesterday(?:\s+at\s+(.+))?$`)
)

// absoluteLayouts are the tooltip and label formats the site renders, tried
// in order. Layouts without a year are resolved against the current year.
var absoluteLayouts = []struct {
	layout  string
	hasYear bool
}{
	{"Monday, January 2, 2006 at 3:04 PM", true},
	{"Monday, January 2, 2006 at 15:04", true},
	{"Monday 2 January 2006 at 15:04", true},
	{"January 2, 2006 at 3:04 PM", true},
	{"January 2, 2006 at 15:04", true},
	{"2 January 2006 at 15:04", true},
	{"January 2, 2006", true},
	{"2 January 2006", true},
	{"Jan 2, 2006", true},
	{"2006-01-02T15:04:05Z07:00", true},
	{"2006-01-02 15:04:05", true},
	{"2006-01-02", true},
	{"January 2 at 3:04 PM", false},
	{"2 January at 15:04", false},
	{"January 2", false},
	{"2 January", false},
	{"Jan 2", false},
}

// FormatISO renders t in UTC the way posted timestamps are stored, so they
// sort as text
func FormatISO(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// UnixToISO converts a unix-seconds string (the data-utime attribute) to ISO-8601.
func UnixToISO(seconds string) string {
	f, err := strconv.ParseFloat(strings.TrimSpace(seconds), 64)
	if err != nil {
		return ""
	}
	return FormatISO(time.Unix(int64(f), 0))
}

// ToISO normalises a posted-time label to ISO-8601. Both relative labels
// ("Just now", "5m", "3 hrs", "Yesterday at 5:00 PM") and absolute dates
// are understood; anything else yields "".
func ToISO(text string, now time.Time) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.TrimSuffix(s, " ago")
	if s == "" {
		return ""
	}

	if s == "just now" || s == "now" {
		return FormatISO(now)
	}

	if m := yesterdayRe.FindStringSubmatch(s); m != nil {
		day := now.AddDate(0, 0, -1)
		if m[1] != "" {
			if clock, ok := parseClock(m[1]); ok {
				day = time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, now.Location())
			}
		}
		return FormatISO(day)
	}

	if m := relativeRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		if d, ok := relativeUnit(m[2]); ok {
			return FormatISO(now.Add(-time.Duration(n) * d))
		}
		if strings.HasPrefix(m[2], "y") {
			return FormatISO(now.AddDate(-n, 0, 0))
		}
	}

	return absoluteToISO(strings.TrimSpace(text), now)
}

func relativeUnit(unit string) (time.Duration, bool) {
	switch unit {
	case "s", "sec", "secs", "second", "seconds":
		return time.Second, true
	case "m", "min", "mins", "minute", "minutes":
		return time.Minute, true
	case "h", "hr", "hrs", "hour", "hours":
		return time.Hour, true
	case "d", "day", "days":
		return 24 * time.Hour, true
	case "w", "wk", "wks", "week", "weeks":
		return 7 * 24 * time.Hour, true
	}
	return 0, false
}

func parseClock(s string) (time.Time, bool) {
	for _, layout := range []string{"3:04 pm", "3:04pm", "15:04"} {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func absoluteToISO(text string, now time.Time) string {
	for _, l := range absoluteLayouts {
		t, err := time.ParseInLocation(l.layout, text, now.Location())
		if err != nil {
			continue
		}
		if !l.hasYear {
			t = time.Date(now.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, now.Location())
			// A yearless date after today belongs to last year.
			if t.After(now) {
				t = t.AddDate(-1, 0, 0)
			}
		}
		return FormatISO(t)
	}
	return ""
}
