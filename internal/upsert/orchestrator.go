// Package upsert persists normalized events idempotently: the venue
// dimension, the event fact, and the polymorphic tag associations.
// Re-running with identical inputs creates no duplicate rows under
// either reconciliation policy.
package upsert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"eventsHarvester/internal/models/domain"
	"eventsHarvester/internal/repositories"
	"eventsHarvester/internal/utils/logger/sl"
	"eventsHarvester/internal/utils/retry"

	"github.com/google/uuid"
)

// Policy selects how an entity's existing tag associations are
// reconciled with the freshly computed set.
type Policy string

const (
	// PolicyAdditive inserts missing associations, never removes any.
	PolicyAdditive Policy = "additive"
	// PolicyReplace deletes all existing associations, then inserts
	// exactly the computed set.
	PolicyReplace Policy = "replace"
)

// ParsePolicy maps a config string onto a Policy, defaulting to additive.
func ParsePolicy(s string) Policy {
	if Policy(s) == PolicyReplace {
		return PolicyReplace
	}
	return PolicyAdditive
}

// Store is the persistence collaborator. All upserts are atomic
// upsert-and-return-identifier calls; there is no select-then-insert
// race at this boundary.
type Store interface {
	UpsertVenue(ctx context.Context, venue domain.Venue) (uuid.UUID, error)
	UpsertEvent(ctx context.Context, event domain.NormalizedEvent) (uuid.UUID, bool, error)
	LookupTag(ctx context.Context, slugOrName string) (int64, error)
	ListTagAssociations(ctx context.Context, taggableType, taggableID string) ([]int64, error)
	InsertTagAssociations(ctx context.Context, rows []domain.Tagging) error
	DeleteTagAssociations(ctx context.Context, taggableType, taggableID string, tagIDs ...int64) error
}

// RetryConfig bounds the exponential backoff applied to store calls.
type RetryConfig struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
}

func (r RetryConfig) orDefaults() RetryConfig {
	if r.Attempts <= 0 {
		r.Attempts = 3
	}
	if r.Initial <= 0 {
		r.Initial = 500 * time.Millisecond
	}
	if r.Max <= 0 {
		r.Max = 8 * time.Second
	}
	return r
}

// Orchestrator wraps a Store with run-scoped memoization: venue ids by
// name and tag ids by slug. Both caches resolve concurrent first access
// with a single representative call; later readers reuse its result.
type Orchestrator struct {
	logger *slog.Logger
	store  Store
	retry  RetryConfig

	mu     sync.Mutex
	venues map[string]*venueEntry
	tags   map[string]*tagEntry
}

type venueEntry struct {
	once sync.Once
	id   uuid.UUID
	err  error
}

type tagEntry struct {
	once sync.Once
	id   int64
	err  error
}

func New(logger *slog.Logger, store Store, retryCfg RetryConfig) *Orchestrator {
	return &Orchestrator{
		logger: logger,
		store:  store,
		retry:  retryCfg.orDefaults(),
		venues: make(map[string]*venueEntry),
		tags:   make(map[string]*tagEntry),
	}
}

// VenueID upserts the venue once per run and returns the cached id on
// every later call with the same name. First writer wins: concurrent
// callers for one name block on a single representative upsert.
func (o *Orchestrator) VenueID(ctx context.Context, venue domain.Venue) (uuid.UUID, error) {
	if venue.Name == "" {
		return uuid.Nil, fmt.Errorf("upsert: venue name is empty")
	}

	o.mu.Lock()
	entry, ok := o.venues[venue.Name]
	if !ok {
		entry = &venueEntry{}
		o.venues[venue.Name] = entry
	}
	o.mu.Unlock()

	entry.once.Do(func() {
		entry.err = o.withRetry(ctx, func() error {
			id, err := o.store.UpsertVenue(ctx, venue)
			if err != nil {
				return err
			}
			entry.id = id
			return nil
		})
	})

	return entry.id, entry.err
}

// TagID resolves a tag slug through the run-scoped cache. Unknown slugs
// are cached too: the vocabulary does not change mid-run.
func (o *Orchestrator) TagID(ctx context.Context, slug string) (int64, error) {
	o.mu.Lock()
	entry, ok := o.tags[slug]
	if !ok {
		entry = &tagEntry{}
		o.tags[slug] = entry
	}
	o.mu.Unlock()

	entry.once.Do(func() {
		entry.id, entry.err = o.store.LookupTag(ctx, slug)
	})

	return entry.id, entry.err
}

// PersistEvent upserts the event with bounded retries and reports
// whether the row was created or updated.
func (o *Orchestrator) PersistEvent(ctx context.Context, event domain.NormalizedEvent) (uuid.UUID, bool, error) {
	var (
		id      uuid.UUID
		created bool
	)
	err := o.withRetry(ctx, func() error {
		var err error
		id, created, err = o.store.UpsertEvent(ctx, event)
		return err
	})
	if err != nil {
		return uuid.Nil, false, err
	}
	return id, created, nil
}

// ReconcileTags brings the entity's tag associations in line with the
// computed slugs under the given policy. Slugs missing from the
// vocabulary are logged and skipped; they never abort the record.
func (o *Orchestrator) ReconcileTags(ctx context.Context, taggableType, taggableID string, slugs []string, policy Policy) error {
	op := "upsert.ReconcileTags()"
	log := o.logger.With(slog.String("op", op), slog.String("taggableId", taggableID))

	tagIDs := make([]int64, 0, len(slugs))
	for _, slug := range slugs {
		id, err := o.TagID(ctx, slug)
		if err != nil {
			if isNotFound(err) {
				log.Warn("tag not in vocabulary, skipping", slog.String("slug", slug))
				continue
			}
			return fmt.Errorf("%s: %w", op, err)
		}
		tagIDs = append(tagIDs, id)
	}

	switch policy {
	case PolicyReplace:
		return o.withRetry(ctx, func() error {
			if err := o.store.DeleteTagAssociations(ctx, taggableType, taggableID); err != nil {
				return err
			}
			return o.store.InsertTagAssociations(ctx, rowsFor(taggableType, taggableID, tagIDs))
		})
	default:
		return o.withRetry(ctx, func() error {
			existing, err := o.store.ListTagAssociations(ctx, taggableType, taggableID)
			if err != nil {
				return err
			}
			present := make(map[int64]struct{}, len(existing))
			for _, id := range existing {
				present[id] = struct{}{}
			}
			missing := tagIDs[:0:0]
			for _, id := range tagIDs {
				if _, ok := present[id]; !ok {
					missing = append(missing, id)
				}
			}
			return o.store.InsertTagAssociations(ctx, rowsFor(taggableType, taggableID, missing))
		})
	}
}

func (o *Orchestrator) withRetry(ctx context.Context, fn func() error) error {
	var attempt int
	return retry.Do(ctx, o.retry.Attempts, o.retry.Initial, o.retry.Max, func() error {
		attempt++
		err := fn()
		if err != nil && attempt < o.retry.Attempts {
			o.logger.Debug("store call failed, retrying",
				slog.Int("attempt", attempt),
				sl.Err(err),
			)
		}
		return err
	})
}

func rowsFor(taggableType, taggableID string, tagIDs []int64) []domain.Tagging {
	rows := make([]domain.Tagging, 0, len(tagIDs))
	for _, id := range tagIDs {
		rows = append(rows, domain.Tagging{
			TagID:        id,
			TaggableType: taggableType,
			TaggableID:   taggableID,
		})
	}
	return rows
}

func isNotFound(err error) bool {
	return errors.Is(err, repositories.ErrTagNotFound)
}
