package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	dateRegex     = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	dateTimeRegex = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})\s+(\d{1,2}):(\d{2})$`)
	clockRegex    = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	agoRegex      = regexp.MustCompile(`^(\d+)\s+(day|days|week|weeks)(\s+ago)?$`)
)

// ParseDay parses a day reference into local midnight of that day.
// Supported formats:
// - dd/mm/yyyy (e.g., "15/12/2025")
// - today, yesterday
// - X days / X weeks (ago), e.g. "3 days", "1 week ago"
func ParseDay(input string, now time.Time) (time.Time, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	today := startOfDay(now)

	switch input {
	case "":
		return time.Time{}, fmt.Errorf("empty date")
	case "today":
		return today, nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	}

	if m := dateRegex.FindStringSubmatch(input); m != nil {
		return buildDate(m[1], m[2], m[3], "0", "0", now.Location())
	}

	if m := agoRegex.FindStringSubmatch(input); m != nil {
		amount, _ := strconv.Atoi(m[1])
		switch m[2] {
		case "day", "days":
			if amount > 366 {
				return time.Time{}, fmt.Errorf("days must be at most 366")
			}
			return today.AddDate(0, 0, -amount), nil
		default:
			if amount > 52 {
				return time.Time{}, fmt.Errorf("weeks must be at most 52")
			}
			return today.AddDate(0, 0, -7*amount), nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid date %q. Use: dd/mm/yyyy, today, yesterday or X days", input)
}

// ParseRange turns optional from/to day references into a clock-in range.
// The end is the last instant of the "to" day. Empty inputs stay zero.
func ParseRange(from, to string, now time.Time) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if strings.TrimSpace(from) != "" {
		if start, err = ParseDay(from, now); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("from: %w", err)
		}
	}
	if strings.TrimSpace(to) != "" {
		day, err := ParseDay(to, now)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("to: %w", err)
		}
		end = day.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("to is before from")
	}
	return start, end, nil
}

// ParseTimestamp parses a proposed clock time for an edit request.
// Supported formats:
// - dd/mm/yyyy HH:MM
// - HH:MM (today)
// - RFC3339
func ParseTimestamp(input string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}

	if m := dateTimeRegex.FindStringSubmatch(input); m != nil {
		return buildDate(m[1], m[2], m[3], m[4], m[5], now.Location())
	}

	if m := clockRegex.FindStringSubmatch(input); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			return time.Time{}, fmt.Errorf("invalid time of day %q", input)
		}
		return startOfDay(now).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute), nil
	}

	if t, err := time.Parse(time.RFC3339, input); err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("invalid time %q. Use: dd/mm/yyyy HH:MM, HH:MM or RFC3339", input)
}

func buildDate(d, mo, y, h, mi string, loc *time.Location) (time.Time, error) {
	day, _ := strconv.Atoi(d)
	month, _ := strconv.Atoi(mo)
	year, _ := strconv.Atoi(y)
	hour, _ := strconv.Atoi(h)
	minute, _ := strconv.Atoi(mi)

	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("month must be between 1 and 12")
	}
	if year < 2000 || year > 2100 {
		return time.Time{}, fmt.Errorf("year must be between 2000 and 2100")
	}
	if hour > 23 || minute > 59 {
		return time.Time{}, fmt.Errorf("invalid time of day")
	}

	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
	// rejects 31/02 and friends
	if t.Day() != day || t.Month() != time.Month(month) {
		return time.Time{}, fmt.Errorf("invalid date")
	}
	return t, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// WeekStart returns local midnight of the Monday of t's week.
func WeekStart(t time.Time) time.Time {
	daysFromMonday := int(t.Weekday()) - int(time.Monday)
	if t.Weekday() == time.Sunday {
		daysFromMonday = 6
	}
	return startOfDay(t.AddDate(0, 0, -daysFromMonday))
}

// FormatMinutes renders minutes as "7h 05m" or "42m".
func FormatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %02dm", minutes/60, minutes%60)
}
