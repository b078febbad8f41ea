package sites

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"

	"eventsHarvester/internal/config"
	"eventsHarvester/internal/models/domain"

	"github.com/PuerkitoBio/goquery"
	"github.com/geziyor/geziyor"
	"github.com/geziyor/geziyor/client"
)

// Listing adapter defaults; overridden from ScraperConfig by the
// scraper service before it registers the adapter.
var (
	detailWorkers = 4
	detailDelay   = 250 * time.Millisecond
)

// ConfigureDetailFetch sets the concurrency bound and polite delay for
// detail-page enrichment.
func ConfigureDetailFetch(workers int, delay time.Duration) {
	if workers > 0 {
		detailWorkers = workers
	}
	if delay > 0 {
		detailDelay = delay
	}
}

// ScrapeListing is the generic HTML listing adapter: the CSS selectors
// that used to live in ~50 near-identical per-venue scripts come from
// the source config instead. Detail pages, when a detailDescription
// selector is configured, are fetched with bounded concurrency.
func ScrapeListing(ctx context.Context, src config.SourceConfig) ([]domain.RawEventRecord, error) {
	sel := src.Selectors

	var (
		mu      sync.Mutex
		records []domain.RawEventRecord
	)

	gez := geziyor.NewGeziyor(&geziyor.Options{
		StartURLs: []string{src.URL},
		ParseFunc: func(g *geziyor.Geziyor, r *client.Response) {
			r.HTMLDoc.Find(sel.Card).Each(func(_ int, card *goquery.Selection) {
				rec := domain.RawEventRecord{
					Title:       cleanText(card.Find(sel.Title).First().Text()),
					RawDateTime: cleanText(card.Find(sel.Date).First().Text()),
				}

				link := card.Find(sel.Link).First()
				if href, ok := link.Attr("href"); ok {
					rec.DetailLink = absoluteURL(src.URL, href)
				}
				if rec.Title == "" {
					rec.Title = cleanText(link.AttrOr("title", ""))
				}
				if sel.Image != "" {
					rec.ImageURL = absoluteURL(src.URL, card.Find(sel.Image).First().AttrOr("src", ""))
				}
				if sel.Description != "" {
					rec.Description = cleanText(card.Find(sel.Description).First().Text())
				}

				if rec.Title == "" {
					return
				}

				mu.Lock()
				records = append(records, rec)
				mu.Unlock()
			})
		},
	})
	gez.Start()

	records = dedupByLink(records)

	if sel.DetailDescription != "" {
		enrichFromDetailPages(ctx, records, sel.DetailDescription)
	}

	return records, nil
}

// enrichFromDetailPages fills descriptions by fetching each record's
// detail page. Fetches are independent of each other; a failed fetch
// leaves that one record's description empty and touches nothing else.
func enrichFromDetailPages(ctx context.Context, records []domain.RawEventRecord, selector string) {
	sem := make(chan struct{}, detailWorkers)
	var wg sync.WaitGroup

	for i := range records {
		if records[i].DetailLink == "" {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(rec *domain.RawEventRecord) {
			defer wg.Done()
			defer func() { <-sem }()

			select {
			case <-ctx.Done():
				return
			case <-time.After(detailDelay):
			}

			body, err := fetchBody(ctx, rec.DetailLink)
			if err != nil {
				return
			}
			doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
			if err != nil {
				return
			}

			desc := doc.Find(selector).Clone()
			desc.Find("script").Remove()
			if text := cleanText(desc.Text()); text != "" {
				rec.Description = text
			}
		}(&records[i])
	}

	wg.Wait()
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
