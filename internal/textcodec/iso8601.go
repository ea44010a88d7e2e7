// Package textcodec implements strict ISO-8601 parsing and formatting for
// the five PostgreSQL text-format date/time shapes. It never produces a
// concrete calendar type — only broken-down fields — leaving the typed
// value layer to build whatever time.Time-like type it wants from them.
package textcodec

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Date is a broken-down calendar date.
type Date struct {
	Year, Month, Day int
}

// Time is a broken-down time of day with millisecond precision.
type Time struct {
	Hour, Minute, Second, Millisecond int
}

// Offset is a time-zone offset in whole minutes east of UTC.
type Offset struct {
	Minutes int
}

// Timestamp is a broken-down date+time, with an optional zone offset for
// the "timestamp with time zone" / "time with time zone" shapes.
type Timestamp struct {
	Date
	Time
	Zone    Offset
	HasZone bool
}

var errMalformed = fmt.Errorf("textcodec: malformed ISO-8601 value")

// daysInMonth returns the day count for month (1-12) in year, honoring the
// Gregorian leap-year rule for February.
func daysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if isLeapYear(year) {
			return 29
		}
		return 28
	default:
		return 0
	}
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func validateDate(d Date) error {
	if d.Month < 1 || d.Month > 12 {
		return fmt.Errorf("%w: month %d out of range", errMalformed, d.Month)
	}
	if d.Day < 1 || d.Day > daysInMonth(d.Year, d.Month) {
		return fmt.Errorf("%w: day %d out of range for %04d-%02d", errMalformed, d.Day, d.Year, d.Month)
	}
	return nil
}

func validateTime(t Time) error {
	if t.Hour < 0 || t.Hour > 23 {
		return fmt.Errorf("%w: hour %d out of range", errMalformed, t.Hour)
	}
	if t.Minute < 0 || t.Minute > 59 {
		return fmt.Errorf("%w: minute %d out of range", errMalformed, t.Minute)
	}
	if t.Second < 0 || t.Second > 60 { // 60 permits a leap second
		return fmt.Errorf("%w: second %d out of range", errMalformed, t.Second)
	}
	return nil
}

var (
	dateRe = regexp.MustCompile(`^(\d{4,})-(\d{2})-(\d{2})$`)
	timeRe = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2})(\.\d+)?$`)
	zoneRe = regexp.MustCompile(`^(Z|[+-]\d{1,4}|[+-]\d{1,2}:\d{2})$`)
)

func parseDate(s string) (Date, error) {
	m := dateRe.FindStringSubmatch(s)
	if m == nil {
		return Date{}, fmt.Errorf("%w: date %q", errMalformed, s)
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	d := Date{Year: year, Month: month, Day: day}
	if err := validateDate(d); err != nil {
		return Date{}, err
	}
	return d, nil
}

func parseTime(s string) (Time, error) {
	m := timeRe.FindStringSubmatch(s)
	if m == nil {
		return Time{}, fmt.Errorf("%w: time %q", errMalformed, s)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	second, _ := strconv.Atoi(m[3])
	ms := 0
	if m[4] != "" {
		frac := m[4][1:] // drop leading '.'
		// Truncate to milliseconds: keep the first three digits, discard
		// the rest without rounding.
		if len(frac) > 3 {
			frac = frac[:3]
		}
		for len(frac) < 3 {
			frac += "0"
		}
		ms, _ = strconv.Atoi(frac)
	}
	t := Time{Hour: hour, Minute: minute, Second: second, Millisecond: ms}
	if err := validateTime(t); err != nil {
		return Time{}, err
	}
	return t, nil
}

// parseZone accepts Z, ±H, ±HH (hours only), ±HMM, ±HHMM (hours followed
// by two minute digits, no separator), or ±H:MM / ±HH:MM, with minutes
// 00-59.
func parseZone(s string) (Offset, error) {
	if s == "Z" {
		return Offset{Minutes: 0}, nil
	}
	m := zoneRe.FindStringSubmatch(s)
	if m == nil {
		return Offset{}, fmt.Errorf("%w: zone %q", errMalformed, s)
	}
	sign := 1
	rest := s
	if s[0] == '+' {
		rest = s[1:]
	} else if s[0] == '-' {
		sign = -1
		rest = s[1:]
	}
	if idx := strings.IndexByte(rest, ':'); idx >= 0 {
		hourPart := rest[:idx]
		minPart := rest[idx+1:]
		hours, err := strconv.Atoi(hourPart)
		if err != nil {
			return Offset{}, fmt.Errorf("%w: zone hour %q", errMalformed, hourPart)
		}
		minutes, err := strconv.Atoi(minPart)
		if err != nil || minutes > 59 {
			return Offset{}, fmt.Errorf("%w: zone minute %q", errMalformed, minPart)
		}
		return Offset{Minutes: sign * (hours*60 + minutes)}, nil
	}
	hourPart, minPart := rest, ""
	if len(rest) > 2 {
		hourPart, minPart = rest[:len(rest)-2], rest[len(rest)-2:]
	}
	hours, err := strconv.Atoi(hourPart)
	if err != nil {
		return Offset{}, fmt.Errorf("%w: zone %q", errMalformed, rest)
	}
	minutes := 0
	if minPart != "" {
		minutes, err = strconv.Atoi(minPart)
		if err != nil || minutes > 59 {
			return Offset{}, fmt.Errorf("%w: zone minute %q", errMalformed, minPart)
		}
	}
	return Offset{Minutes: sign * (hours*60 + minutes)}, nil
}

// splitDateTime separates a "date time[zone]" string at the first space,
// tab, or 'T' after the date, allowing further whitespace before the time
// and leading and trailing whitespace around the whole string.
func splitDateTime(s string) (date, timeAndZone string, err error) {
	s = strings.TrimSpace(s)
	idx := strings.IndexAny(s, " \tT")
	if idx < 0 {
		return "", "", fmt.Errorf("%w: missing time component in %q", errMalformed, s)
	}
	date = s[:idx]
	timeAndZone = strings.TrimSpace(s[idx+1:])
	return date, timeAndZone, nil
}

// splitTimeZone separates the time component from a trailing zone suffix,
// if present.
func splitTimeZone(s string) (timePart, zonePart string) {
	for i := 1; i < len(s); i++ {
		if s[i] == 'Z' {
			return s[:i], s[i:]
		}
		if (s[i] == '+' || s[i] == '-') && i > 0 {
			return s[:i], s[i:]
		}
	}
	return s, ""
}

// ParseTimestampTZ parses a "timestamp with time zone" value.
func ParseTimestampTZ(s string) (Timestamp, error) {
	datePart, rest, err := splitDateTime(s)
	if err != nil {
		return Timestamp{}, err
	}
	d, err := parseDate(datePart)
	if err != nil {
		return Timestamp{}, err
	}
	timePart, zonePart := splitTimeZone(rest)
	t, err := parseTime(timePart)
	if err != nil {
		return Timestamp{}, err
	}
	if zonePart == "" {
		return Timestamp{}, fmt.Errorf("%w: missing required time zone in %q", errMalformed, s)
	}
	z, err := parseZone(zonePart)
	if err != nil {
		return Timestamp{}, err
	}
	return Timestamp{Date: d, Time: t, Zone: z, HasZone: true}, nil
}

// ParseTimestamp parses a "timestamp" (no zone) value.
func ParseTimestamp(s string) (Timestamp, error) {
	datePart, timePart, err := splitDateTime(s)
	if err != nil {
		return Timestamp{}, err
	}
	d, err := parseDate(datePart)
	if err != nil {
		return Timestamp{}, err
	}
	t, err := parseTime(timePart)
	if err != nil {
		return Timestamp{}, err
	}
	return Timestamp{Date: d, Time: t}, nil
}

// ParseDate parses a "date" value.
func ParseDate(s string) (Date, error) {
	return parseDate(strings.TrimSpace(s))
}

// ParseTime parses a "time" (no zone) value.
func ParseTime(s string) (Time, error) {
	s = strings.TrimSpace(s)
	timePart, zonePart := splitTimeZone(s)
	if zonePart != "" {
		return Time{}, fmt.Errorf("%w: unexpected time zone in plain time %q", errMalformed, s)
	}
	return parseTime(timePart)
}

// ParseTimeTZ parses a "time with time zone" value.
func ParseTimeTZ(s string) (Time, Offset, error) {
	s = strings.TrimSpace(s)
	timePart, zonePart := splitTimeZone(s)
	if zonePart == "" {
		return Time{}, Offset{}, fmt.Errorf("%w: missing required time zone in %q", errMalformed, s)
	}
	t, err := parseTime(timePart)
	if err != nil {
		return Time{}, Offset{}, err
	}
	z, err := parseZone(zonePart)
	if err != nil {
		return Time{}, Offset{}, err
	}
	return t, z, nil
}

// FormatDate renders d as "YYYY-MM-DD".
func FormatDate(d Date) string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// FormatTime renders t as "HH:MM:SS.sss", always three fractional digits.
func FormatTime(t Time) string {
	return fmt.Sprintf("%02d:%02d:%02d.%03d", t.Hour, t.Minute, t.Second, t.Millisecond)
}

// FormatOffset renders z as "+HH:MM" or "-HH:MM".
func FormatOffset(z Offset) string {
	sign := "+"
	m := z.Minutes
	if m < 0 {
		sign = "-"
		m = -m
	}
	return fmt.Sprintf("%s%02d:%02d", sign, m/60, m%60)
}

// FormatTimestamp renders ts as "YYYY-MM-DD HH:MM:SS.sss", with a trailing
// "±HH:MM" when ts.HasZone.
func FormatTimestamp(ts Timestamp) string {
	s := FormatDate(ts.Date) + " " + FormatTime(ts.Time)
	if ts.HasZone {
		s += FormatOffset(ts.Zone)
	}
	return s
}

// FormatTimeTZ renders t and z as "HH:MM:SS.sss±HH:MM".
func FormatTimeTZ(t Time, z Offset) string {
	return FormatTime(t) + FormatOffset(z)
}
