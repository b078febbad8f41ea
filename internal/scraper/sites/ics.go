package sites

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"eventsHarvester/internal/config"
	"eventsHarvester/internal/models/domain"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"
)

// Recurring VEVENTs are expanded into concrete occurrences inside a
// forward window; anything further out shows up on a later run.
const (
	icsLookahead      = 120 * 24 * time.Hour
	maxOccurrences    = 100
	icsTimeFormat     = time.RFC3339
	icsDateOnlyFormat = "2006-01-02"
)

// ScrapeICS ingests an iCalendar feed. Each non-recurring VEVENT maps
// to one record; RRULE events are expanded within the lookahead window
// so every occurrence can be persisted as its own row.
func ScrapeICS(ctx context.Context, src config.SourceConfig) ([]domain.RawEventRecord, error) {
	body, err := fetchBody(ctx, src.URL)
	if err != nil {
		return nil, err
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sites: parse ics %s: %w", src.URL, err)
	}

	now := time.Now()
	windowEnd := now.Add(icsLookahead)

	var records []domain.RawEventRecord
	for _, ve := range cal.Events() {
		title := propValue(ve, ical.ComponentPropertySummary)
		if title == "" {
			continue
		}

		start, err := ve.GetStartAt()
		if err != nil {
			continue
		}
		end, _ := ve.GetEndAt()

		base := domain.RawEventRecord{
			Title:       unescapeICS(title),
			DetailLink:  absoluteURL(src.URL, propValue(ve, ical.ComponentPropertyUrl)),
			Description: unescapeICS(propValue(ve, ical.ComponentPropertyDescription)),
		}

		rawRRule := propValue(ve, ical.ComponentPropertyRrule)
		if rawRRule == "" {
			if start.Before(now.Add(-24 * time.Hour)) {
				continue
			}
			base.RawDateTime = formatICSRange(ve, start, end)
			records = append(records, base)
			continue
		}

		for _, occ := range expandRRule(rawRRule, start, now, windowEnd) {
			rec := base
			occEnd := occ
			if end.After(start) {
				occEnd = occ.Add(end.Sub(start))
			}
			rec.RawDateTime = formatICSRange(ve, occ, occEnd)
			records = append(records, rec)
		}
	}

	return dedupByLink(records), nil
}

// expandRRule returns the concrete start times of a recurring event
// inside [from, to], capped so a runaway rule cannot flood a run.
func expandRRule(raw string, dtstart, from, to time.Time) []time.Time {
	r, err := rrule.StrToRRule(raw)
	if err != nil {
		return nil
	}
	r.DTStart(dtstart)

	occ := r.Between(from.In(dtstart.Location()), to.In(dtstart.Location()), true)
	if len(occ) > maxOccurrences {
		occ = occ[:maxOccurrences]
	}
	return occ
}

// formatICSRange renders a start/end pair the temporal normalizer
// understands: RFC3339 for timed events, a bare date for all-day ones.
func formatICSRange(ve *ical.VEvent, start, end time.Time) string {
	format := icsTimeFormat
	if isAllDay(ve) {
		format = icsDateOnlyFormat
		// DTEND on all-day events is exclusive.
		if end.After(start) {
			end = end.Add(-24 * time.Hour)
		}
	}

	out := start.Format(format)
	if end.After(start) {
		out += " through " + end.Format(format)
	}
	return out
}

func isAllDay(ve *ical.VEvent) bool {
	p := ve.GetProperty(ical.ComponentPropertyDtStart)
	if p == nil {
		return false
	}
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

func propValue(ve *ical.VEvent, name ical.ComponentProperty) string {
	if p := ve.GetProperty(name); p != nil {
		return strings.TrimSpace(p.Value)
	}
	return ""
}

// unescapeICS undoes the TEXT escaping of RFC 5545.
func unescapeICS(s string) string {
	r := strings.NewReplacer(`\n`, " ", `\N`, " ", `\,`, ",", `\;`, ";", `\\`, `\`)
	return cleanText(r.Replace(s))
}
