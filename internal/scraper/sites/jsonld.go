package sites

import (
	"bytes"
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"eventsHarvester/internal/config"
	"eventsHarvester/internal/models/domain"

	"github.com/PuerkitoBio/goquery"
)

// jsonLDEvent is the subset of a schema.org Event node the pipeline
// consumes. Image and description arrive in several shapes, so both
// are decoded loosely.
type jsonLDEvent struct {
	Type        string          `json:"@type"`
	Name        string          `json:"name"`
	URL         string          `json:"url"`
	StartDate   string          `json:"startDate"`
	EndDate     string          `json:"endDate"`
	Image       json.RawMessage `json:"image"`
	Description json.RawMessage `json:"description"`
}

type jsonLDDocument struct {
	jsonLDEvent
	Graph []jsonLDEvent `json:"@graph"`
}

// ScrapeJSONLD ingests pages that embed their agenda as
// application/ld+json script blocks, the way Tockify-backed calendars
// publish theirs.
func ScrapeJSONLD(ctx context.Context, src config.SourceConfig) ([]domain.RawEventRecord, error) {
	body, err := fetchBody(ctx, src.URL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var records []domain.RawEventRecord
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return
		}

		var nodes []jsonLDDocument
		if strings.HasPrefix(raw, "[") {
			if err := json.Unmarshal([]byte(raw), &nodes); err != nil {
				return
			}
		} else {
			var one jsonLDDocument
			if err := json.Unmarshal([]byte(raw), &one); err != nil {
				return
			}
			nodes = append(nodes, one)
		}

		for _, node := range nodes {
			if rec, ok := recordFromLDEvent(src, node.jsonLDEvent); ok {
				records = append(records, rec)
			}
			for _, ev := range node.Graph {
				if rec, ok := recordFromLDEvent(src, ev); ok {
					records = append(records, rec)
				}
			}
		}
	})

	return dedupByLink(records), nil
}

func recordFromLDEvent(src config.SourceConfig, ev jsonLDEvent) (domain.RawEventRecord, bool) {
	if ev.Type != "Event" || ev.Name == "" || ev.StartDate == "" {
		return domain.RawEventRecord{}, false
	}

	rawDateTime := ev.StartDate
	if ev.EndDate != "" {
		rawDateTime += " through " + ev.EndDate
	}

	return domain.RawEventRecord{
		Title:       strings.TrimSpace(ev.Name),
		DetailLink:  absoluteURL(src.URL, ev.URL),
		RawDateTime: rawDateTime,
		ImageURL:    looseImage(ev.Image),
		Description: looseText(ev.Description),
	}, true
}

// looseImage accepts a URL string, a list, or an ImageObject.
func looseImage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var list []json.RawMessage
	if json.Unmarshal(raw, &list) == nil && len(list) > 0 {
		return looseImage(list[0])
	}
	var obj struct {
		URL        string `json:"url"`
		ContentURL string `json:"contentUrl"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		if obj.URL != "" {
			return obj.URL
		}
		return obj.ContentURL
	}
	return ""
}

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

// looseText accepts a plain string or a {text,name} object and strips
// any markup the source left in.
func looseText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		var obj struct {
			Text string `json:"text"`
			Name string `json:"name"`
		}
		if json.Unmarshal(raw, &obj) != nil {
			return ""
		}
		s = obj.Text
		if s == "" {
			s = obj.Name
		}
	}
	s = htmlTagRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}
