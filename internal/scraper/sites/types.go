// Package sites holds the source adapters. Each adapter turns one
// external listing shape (JSON feed, JSON-LD markup, plain HTML
// listing, ICS feed) into loosely structured RawEventRecords; all
// normalization happens downstream in the shared pipeline.
package sites

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"eventsHarvester/internal/config"
	"eventsHarvester/internal/models/domain"
	"eventsHarvester/internal/utils/httpclient"
)

// ScrapeFunc is the adapter capability: fetch one source and produce
// its raw records.
type ScrapeFunc func(ctx context.Context, src config.SourceConfig) ([]domain.RawEventRecord, error)

// fetchBody GETs a URL with the scraping client and returns the body.
func fetchBody(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("sites: build request: %w", err)
	}
	req.Header.Set("User-Agent", httpclient.UserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sites: fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sites: fetch %s: status %d", rawURL, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

var httpClient = httpclient.New(30 * time.Second)

// absoluteURL resolves href against base, dropping javascript: and
// fragment-only values.
func absoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "#") {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	u, err := b.Parse(href)
	if err != nil {
		return href
	}
	return u.String()
}

// dedupByLink keeps the first record per detail link; records without a
// link all survive.
func dedupByLink(records []domain.RawEventRecord) []domain.RawEventRecord {
	seen := make(map[string]bool, len(records))
	out := records[:0:0]
	for _, r := range records {
		if r.DetailLink != "" {
			if seen[r.DetailLink] {
				continue
			}
			seen[r.DetailLink] = true
		}
		out = append(out, r)
	}
	return out
}
