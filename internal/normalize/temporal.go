// Package normalize resolves the free-form date/time text produced by
// source adapters into canonical calendar dates and 24-hour wall-clock
// times. Every source publishes a different shape: full ISO-8601
// timestamps (often UTC), "Month Day, Year" ranges joined by a dash or
// "through", bare "Month Day" with no year, and 12-hour clock tokens
// with venue labels like "Doors: 7pm // Show: 8pm".
//
// Parsing degrades instead of failing: an unreadable fragment yields a
// nil field and the caller decides whether the record is still usable.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const defaultYearRollThresholdDays = 60

// Options controls the reference clock and the venue's civil timezone.
type Options struct {
	// Now is the reference instant for year inference. Zero means time.Now().
	Now time.Time

	// Location is the venue's local timezone. UTC-bearing timestamps are
	// converted into it before the clock digits are read. Nil means time.Local.
	Location *time.Location

	// YearRollThresholdDays overrides how far in the past a yearless date may
	// fall before it is assumed to belong to next year. Zero means 60.
	YearRollThresholdDays int
}

// Result carries the normalized temporal fields. Nil means the field
// could not be determined from the input.
type Result struct {
	StartDate *time.Time
	EndDate   *time.Time
	StartTime *string // "HH:MM:SS", 24-hour
	EndTime   *string
}

var (
	// Label precedence: the performance label ("Show") is authoritative for
	// start_time; the arrival label ("Doors") is only a fallback.
	showRe  = regexp.MustCompile(`(?i)\bshow\s*:?\s*(\d{1,2}(?::\d{2})?\s*[ap]\.?m\.?)`)
	doorsRe = regexp.MustCompile(`(?i)\bdoors?\s*:?\s*(\d{1,2}(?::\d{2})?\s*[ap]\.?m\.?)`)

	clockTokenRe = regexp.MustCompile(`(?i)\d{1,2}(?::\d{2})?\s*[ap]\.?m\.?`)
	timeRangeRe  = regexp.MustCompile(`(?i)(\d{1,2}(?::\d{2})?\s*[ap]\.?m\.?)\s*(?:to|-|–|—)\s*(\d{1,2}(?::\d{2})?\s*[ap]\.?m\.?)`)

	// Date-range separators: "through", en/em dash, or a hyphen with
	// surrounding space. A bare hyphen is never a separator so that ISO
	// dates survive splitting.
	dateRangeSepRe = regexp.MustCompile(`(?i)\s+(?:through|thru)\s+|\s*[–—]\s*|\s+-\s+`)

	weekdayPrefixRe = regexp.MustCompile(`(?i)^(?:mon|tue|tues|wed|thu|thur|thurs|fri|sat|sun)[a-z]*\.?,?\s+`)
	ordinalRe       = regexp.MustCompile(`(\d+)(?:st|nd|rd|th)\b`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
	bareDayRe       = regexp.MustCompile(`^\d{1,2}$`)
)

// Layouts tried against a single date fragment, most specific first.
// Fragments are pre-cleaned: weekday prefix stripped, ordinals removed,
// "Sept" rewritten to "Sep".
var dateLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"Jan 2 2006",
	"2 January 2006",
	"02 Jan 2006",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
}

var yearlessLayouts = []string{
	"January 2",
	"Jan 2",
}

var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Parse resolves raw date/time text into (start_date, end_date,
// start_time, end_time). Any field that cannot be determined is nil.
func Parse(raw string, opts Options) Result {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	threshold := opts.YearRollThresholdDays
	if threshold == 0 {
		threshold = defaultYearRollThresholdDays
	}

	text := cleanup(raw)
	if text == "" {
		return Result{}
	}

	var res Result

	// Labeled clock tokens first; they win over anything the generic time
	// scan finds and must not leak into date parsing.
	var labeledStart *string
	if m := showRe.FindStringSubmatch(text); m != nil {
		labeledStart = parseClock(m[1])
		text = showRe.ReplaceAllString(text, " ")
		text = doorsRe.ReplaceAllString(text, " ")
	} else if m := doorsRe.FindStringSubmatch(text); m != nil {
		labeledStart = parseClock(m[1])
		text = doorsRe.ReplaceAllString(text, " ")
	}

	// Generic 12-hour tokens: a range yields both ends, a single token
	// yields only the start.
	var genericStart, genericEnd *string
	if m := timeRangeRe.FindStringSubmatch(text); m != nil {
		genericStart = parseClock(m[1])
		genericEnd = parseClock(m[2])
		text = timeRangeRe.ReplaceAllString(text, " ")
	} else if m := clockTokenRe.FindString(text); m != "" {
		genericStart = parseClock(m)
		text = clockTokenRe.ReplaceAllString(text, " ")
	}

	text = cleanup(text)

	parts := dateRangeSepRe.Split(text, 2)
	startDate, startClock := parseFragment(strings.TrimSpace(parts[0]), now, loc, threshold)
	res.StartDate = startDate

	if len(parts) > 1 {
		endFrag := strings.TrimSpace(parts[1])
		if startDate != nil && bareDayRe.MatchString(endFrag) {
			// "January 5 - 8": the right side is a bare day in the same month.
			if day, err := strconv.Atoi(endFrag); err == nil {
				d := time.Date(startDate.Year(), startDate.Month(), day, 0, 0, 0, 0, loc)
				res.EndDate = &d
			}
		} else {
			endDate, endClock := parseFragment(endFrag, now, loc, threshold)
			res.EndDate = endDate
			if endClock != nil {
				res.EndTime = endClock
			}
		}
	}

	switch {
	case labeledStart != nil:
		res.StartTime = labeledStart
	case startClock != nil:
		res.StartTime = startClock
	default:
		res.StartTime = genericStart
	}
	if res.EndTime == nil {
		res.EndTime = genericEnd
	}

	return res
}

// parseFragment parses one side of a (possibly ranged) expression.
// ISO-8601 timestamps also yield a clock; plain dates yield only a date.
func parseFragment(frag string, now time.Time, loc *time.Location, threshold int) (*time.Time, *string) {
	if frag == "" {
		return nil, nil
	}

	for _, layout := range isoLayouts {
		t, err := time.Parse(layout, frag)
		if err != nil {
			continue
		}
		if layout == time.RFC3339 {
			// Offset-bearing timestamp: convert into the venue's civil time
			// before reading the clock. Raw UTC digits are never kept as-is.
			t = t.In(loc)
		} else {
			// Offset-less timestamps are already wall clock.
			t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
		}
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		c := t.Format("15:04:05")
		if c == "00:00:00" {
			return &d, nil
		}
		return &d, &c
	}

	cleaned := weekdayPrefixRe.ReplaceAllString(frag, "")
	cleaned = ordinalRe.ReplaceAllString(cleaned, "$1")
	cleaned = strings.ReplaceAll(cleaned, "Sept ", "Sep ")
	// Removing labeled times can leave separators like "//" behind.
	cleaned = strings.Trim(cleaned, " ,./|-")
	cleaned = cleanup(cleaned)
	if cleaned == "" {
		return nil, nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
			return &d, nil
		}
	}

	for _, layout := range yearlessLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			d := inferYear(t.Month(), t.Day(), now, loc, threshold)
			return &d, nil
		}
	}

	return nil, nil
}

// inferYear places a yearless month/day in the current year unless that
// date is more than threshold days in the past, in which case it rolls
// forward to next year. Listings scraped near a year boundary would
// otherwise resolve to stale past dates.
func inferYear(month time.Month, day int, now time.Time, loc *time.Location, threshold int) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	candidate := time.Date(now.Year(), month, day, 0, 0, 0, 0, loc)
	if int(today.Sub(candidate).Hours()/24) > threshold {
		return time.Date(now.Year()+1, month, day, 0, 0, 0, 0, loc)
	}
	return candidate
}

// parseClock turns a 12-hour token ("7pm", "7:30 PM", "10 a.m.") into
// "HH:MM:SS". Nil when the token is unreadable.
func parseClock(tok string) *string {
	t := strings.ToLower(strings.TrimSpace(tok))
	t = strings.ReplaceAll(t, ".", "")
	t = strings.ReplaceAll(t, " ", "")
	if len(t) < 3 {
		return nil
	}
	meridiem := t[len(t)-2:]
	if meridiem != "am" && meridiem != "pm" {
		return nil
	}
	hm := t[:len(t)-2]
	hourStr, minStr, ok := strings.Cut(hm, ":")
	if !ok {
		minStr = "0"
	}
	hour, err := strconv.Atoi(hourStr)
	if err != nil || hour < 1 || hour > 12 {
		return nil
	}
	minute, err := strconv.Atoi(minStr)
	if err != nil || minute < 0 || minute > 59 {
		return nil
	}
	if meridiem == "pm" && hour != 12 {
		hour += 12
	}
	if meridiem == "am" && hour == 12 {
		hour = 0
	}
	s := fmt.Sprintf("%02d:%02d:00", hour, minute)
	return &s
}

func cleanup(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
