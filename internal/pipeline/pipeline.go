// Package pipeline composes the three pure transforms (temporal
// normalization, identity resolution, tag classification) and hands the
// result to the upsert orchestrator, one record at a time. Every
// failure is scoped to its record: a batch never aborts because one
// listing has garbage in it.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"eventsHarvester/internal/identity"
	"eventsHarvester/internal/models/domain"
	"eventsHarvester/internal/normalize"
	"eventsHarvester/internal/tagging"
	"eventsHarvester/internal/upsert"
	"eventsHarvester/internal/utils/logger/sl"

	"github.com/google/uuid"
)

// Source carries the per-source settings a run needs: the venue the
// records belong to, the venue's civil timezone, the tag reconciliation
// policy, and how title-derived slugs are disambiguated.
type Source struct {
	Name     string
	Venue    domain.Venue
	Location *time.Location
	Policy   upsert.Policy
	Resolver identity.Resolver
}

// Enricher receives freshly created events whose descriptions may need
// a rewrite. It is best-effort: enqueue failures never affect the run.
type Enricher interface {
	AddJob(requestID uuid.UUID, eventID uuid.UUID, event domain.NormalizedEvent) (chan struct{}, error)
}

type Pipeline struct {
	logger     *slog.Logger
	classifier *tagging.Classifier
	orch       *upsert.Orchestrator
	enricher   Enricher
	now        func() time.Time
}

func New(logger *slog.Logger, classifier *tagging.Classifier, orch *upsert.Orchestrator) *Pipeline {
	return &Pipeline{
		logger:     logger,
		classifier: classifier,
		orch:       orch,
		now:        time.Now,
	}
}

// WithClock overrides the reference clock. Tests pin "now" with it.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// WithEnricher attaches the optional description enricher.
func (p *Pipeline) WithEnricher(e Enricher) *Pipeline {
	p.enricher = e
	return p
}

// Run pushes a batch of raw records through the pipeline and returns
// the per-run summary.
func (p *Pipeline) Run(ctx context.Context, src Source, records []domain.RawEventRecord) domain.RunSummary {
	op := "pipeline.Run()"
	log := p.logger.With(slog.String("op", op), slog.String("source", src.Name))

	summary := domain.RunSummary{
		Source:      src.Name,
		StartedAt:   p.now(),
		Found:       len(records),
		SkipReasons: make(map[string]int),
	}

	venueID, err := p.orch.VenueID(ctx, src.Venue)
	if err != nil {
		// Without a venue the whole batch would persist half-formed rows;
		// this is the one failure that ends a run early.
		log.Error("venue upsert failed", sl.Err(err))
		summary.Err = err.Error()
		summary.FinishedAt = p.now()
		return summary
	}

	for _, rec := range records {
		reason, created, err := p.processRecord(ctx, src, venueID, rec)
		switch {
		case err != nil:
			log.Warn("record skipped",
				slog.String("title", rec.Title),
				slog.String("reason", reason),
				sl.Err(err),
			)
			summary.Skipped++
			summary.SkipReasons[reason]++
		case reason != "":
			log.Debug("record skipped", slog.String("title", rec.Title), slog.String("reason", reason))
			summary.Skipped++
			summary.SkipReasons[reason]++
		case created:
			summary.Created++
		default:
			summary.Updated++
		}
	}

	summary.FinishedAt = p.now()
	log.Info("run finished",
		slog.Int("found", summary.Found),
		slog.Int("created", summary.Created),
		slog.Int("updated", summary.Updated),
		slog.Int("skipped", summary.Skipped),
	)

	return summary
}

// processRecord runs one record through normalize → identity → classify
// → persist. A non-empty reason with nil error is a quiet skip (bad
// input); an error is a persistence problem.
func (p *Pipeline) processRecord(ctx context.Context, src Source, venueID uuid.UUID, rec domain.RawEventRecord) (string, bool, error) {
	if rec.Title == "" {
		return domain.SkipReasonNoTitle, false, nil
	}

	temporal := normalize.Parse(rec.RawDateTime, normalize.Options{
		Now:      p.now(),
		Location: src.Location,
	})
	if temporal.StartDate == nil {
		// A record without a start date is undateable and dropped; every
		// other missing temporal field persists as null.
		return domain.SkipReasonNoStartDate, false, nil
	}

	startDate := *temporal.StartDate

	id, err := src.Resolver.Resolve(rec.DetailLink, rec.Title, startDate)
	if err != nil {
		// Unparseable link: the slug still identifies the record.
		p.logger.Debug("record has no usable link", slog.String("title", rec.Title))
	}

	slugs := p.classifier.Classify(rec.Title, rec.Description, startDate)

	event := domain.NormalizedEvent{
		Title:       rec.Title,
		Link:        id.CanonicalLink,
		Slug:        id.Slug,
		StartDate:   startDate,
		EndDate:     temporal.EndDate,
		StartTime:   temporal.StartTime,
		EndTime:     temporal.EndTime,
		ImageURL:    rec.ImageURL,
		Description: rec.Description,
		VenueID:     venueID,
		Source:      src.Name,
	}

	eventID, created, err := p.orch.PersistEvent(ctx, event)
	if err != nil {
		return domain.SkipReasonPersistence, false, err
	}

	if err := p.orch.ReconcileTags(ctx, domain.TaggableTypeEvent, eventID.String(), slugs, src.Policy); err != nil {
		// The event row is in place; losing tags is not worth dropping it.
		p.logger.Warn("tag reconciliation failed",
			slog.String("title", rec.Title),
			sl.Err(err),
		)
	}

	if created && p.enricher != nil {
		if _, err := p.enricher.AddJob(uuid.New(), eventID, event); err != nil {
			p.logger.Debug("enrichment not queued", slog.String("title", rec.Title), sl.Err(err))
		}
	}

	return "", created, nil
}
