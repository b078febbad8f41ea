package sites

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"

	"eventsHarvester/internal/config"
	"eventsHarvester/internal/models/domain"
)

// ScrapeJSONFeed ingests ticketing-platform JSON feeds of the
// {"events": [...]} shape. Field names vary per platform, so values
// are probed across the known spellings instead of decoded into a
// rigid struct.
func ScrapeJSONFeed(ctx context.Context, src config.SourceConfig) ([]domain.RawEventRecord, error) {
	body, err := fetchBody(ctx, src.URL)
	if err != nil {
		return nil, err
	}

	var feed struct {
		Events []map[string]interface{} `json:"events"`
	}
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("sites: decode feed %s: %w", src.URL, err)
	}

	records := make([]domain.RawEventRecord, 0, len(feed.Events))
	for _, ev := range feed.Events {
		rec := domain.RawEventRecord{
			Title:       html.UnescapeString(firstString(ev, "title", "eventTitleText", "name")),
			DetailLink:  absoluteURL(src.URL, firstString(ev, "eventUrl", "url", "ticketUrl", "purchaseUrl", "detailsUrl")),
			RawDateTime: firstString(ev, "eventDateTimeLocal", "showDateTimeLocal", "eventDateTimeUTC", "showDateTimeUTC", "eventDateTime", "showDateTime", "startDate", "date"),
			ImageURL:    extractImage(ev),
			Description: html.UnescapeString(firstString(ev, "shortDescription", "description")),
		}
		if rec.Title == "" {
			continue
		}
		records = append(records, rec)
	}

	return dedupByLink(records), nil
}

// firstString walks candidate keys and returns the first non-empty
// string value, descending one level into nested objects.
func firstString(m map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		switch v := m[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case map[string]interface{}:
			for _, inner := range v {
				if s, ok := inner.(string); ok && strings.TrimSpace(s) != "" {
					return strings.TrimSpace(s)
				}
			}
		}
	}
	return ""
}

var imageURLRe = regexp.MustCompile(`(?i)https?://\S+\.(?:jpg|jpeg|png|webp)(?:\?\S+)?`)

func extractImage(ev map[string]interface{}) string {
	if s := firstString(ev, "imageUrl", "heroImageUrl", "image", "heroImage"); s != "" {
		if m := imageURLRe.FindString(s); m != "" {
			return m
		}
	}
	if imgs, ok := ev["images"].([]interface{}); ok {
		for _, it := range imgs {
			if obj, ok := it.(map[string]interface{}); ok {
				if s := firstString(obj, "imageUrl", "url", "src"); s != "" {
					if m := imageURLRe.FindString(s); m != "" {
						return m
					}
				}
			}
		}
	}
	return ""
}
