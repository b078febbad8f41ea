package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"eventsHarvester/internal/identity"
	"eventsHarvester/internal/models/domain"
	"eventsHarvester/internal/repositories"
	"eventsHarvester/internal/tagging"
	"eventsHarvester/internal/upsert"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu           sync.Mutex
	venues       map[string]uuid.UUID
	events       map[string]uuid.UUID
	eventRows    map[uuid.UUID]domain.NormalizedEvent
	tags         map[string]int64
	associations map[string][]int64
	failLinks    map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		venues:    make(map[string]uuid.UUID),
		events:    make(map[string]uuid.UUID),
		eventRows: make(map[uuid.UUID]domain.NormalizedEvent),
		tags: map[string]int64{
			"markets":   8,
			"halloween": 26,
		},
		associations: make(map[string][]int64),
		failLinks:    make(map[string]bool),
	}
}

func (m *memStore) UpsertVenue(_ context.Context, venue domain.Venue) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.venues[venue.Name]
	if !ok {
		id = uuid.New()
		m.venues[venue.Name] = id
	}
	return id, nil
}

func (m *memStore) UpsertEvent(_ context.Context, event domain.NormalizedEvent) (uuid.UUID, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLinks[event.Link] {
		return uuid.Nil, false, fmt.Errorf("deadlock detected")
	}
	key := event.Link
	if key == "" {
		key = event.Source + "/" + event.Slug
	}
	if id, ok := m.events[key]; ok {
		m.eventRows[id] = event
		return id, false, nil
	}
	id := uuid.New()
	m.events[key] = id
	m.eventRows[id] = event
	return id, true, nil
}

func (m *memStore) LookupTag(_ context.Context, slugOrName string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.tags[slugOrName]
	if !ok {
		return 0, repositories.ErrTagNotFound
	}
	return id, nil
}

func (m *memStore) ListTagAssociations(_ context.Context, taggableType, taggableID string) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.associations[taggableType+"/"+taggableID]...), nil
}

func (m *memStore) InsertTagAssociations(_ context.Context, rows []domain.Tagging) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range rows {
		key := row.TaggableType + "/" + row.TaggableID
		m.associations[key] = append(m.associations[key], row.TagID)
	}
	return nil
}

func (m *memStore) DeleteTagAssociations(_ context.Context, taggableType, taggableID string, tagIDs ...int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(tagIDs) == 0 {
		delete(m.associations, taggableType+"/"+taggableID)
	}
	return nil
}

func newTestPipeline(t *testing.T, store upsert.Store) *Pipeline {
	t.Helper()

	classifier, err := tagging.New(
		tagging.Vocabulary{
			Allowed:  []string{"markets", "halloween"},
			Priority: []string{"markets"},
			MaxTags:  2,
			Seasonal: map[string]tagging.Window{
				"halloween": {
					From: time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC),
					To:   time.Date(2025, time.November, 1, 0, 0, 0, 0, time.UTC),
				},
			},
		},
		[]tagging.Rule{
			{Pattern: `\bmarket\b`, Tags: []string{"markets"}},
			{Pattern: `\bhalloween|pumpkin\b`, Tags: []string{"halloween"}},
		},
		nil,
	)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := upsert.New(logger, store, upsert.RetryConfig{Attempts: 2, Initial: time.Millisecond, Max: time.Millisecond})

	now := time.Date(2025, time.October, 10, 12, 0, 0, 0, time.UTC)
	return New(logger, classifier, orch).WithClock(func() time.Time { return now })
}

func testSource(t *testing.T) Source {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return Source{
		Name:     "cherry-street-pier",
		Venue:    domain.Venue{Name: "Cherry Street Pier"},
		Location: loc,
		Policy:   upsert.PolicyAdditive,
		Resolver: identity.Resolver{},
	}
}

func makeRecords(n int) []domain.RawEventRecord {
	records := make([]domain.RawEventRecord, n)
	for i := range records {
		records[i] = domain.RawEventRecord{
			Title:       fmt.Sprintf("Event %d", i),
			DetailLink:  fmt.Sprintf("https://example.com/events/event-%d", i),
			RawDateTime: "October 18, 2025",
		}
	}
	return records
}

func TestRun_OneBadRecordDoesNotAbortBatch(t *testing.T) {
	store := newMemStore()
	p := newTestPipeline(t, store)

	records := makeRecords(10)
	records[5].RawDateTime = "see website for dates"

	summary := p.Run(context.Background(), testSource(t), records)

	assert.Equal(t, 10, summary.Found)
	assert.Equal(t, 9, summary.Created)
	assert.Equal(t, 0, summary.Updated)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.SkipReasons[domain.SkipReasonNoStartDate])
	assert.Empty(t, summary.Err)
	assert.Len(t, store.events, 9)
}

func TestRun_SecondRunUpdatesInsteadOfCreating(t *testing.T) {
	store := newMemStore()
	p := newTestPipeline(t, store)
	records := makeRecords(4)

	first := p.Run(context.Background(), testSource(t), records)
	assert.Equal(t, 4, first.Created)

	second := p.Run(context.Background(), testSource(t), records)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 4, second.Updated)
	assert.Equal(t, 0, second.Skipped)
	assert.Len(t, store.events, 4)
}

func TestRun_UntitledRecordSkipped(t *testing.T) {
	store := newMemStore()
	p := newTestPipeline(t, store)

	records := makeRecords(3)
	records[1].Title = ""

	summary := p.Run(context.Background(), testSource(t), records)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 1, summary.SkipReasons[domain.SkipReasonNoTitle])
}

func TestRun_PersistenceFailureIsolatedToRecord(t *testing.T) {
	store := newMemStore()
	store.failLinks["https://example.com/events/event-2"] = true
	p := newTestPipeline(t, store)

	summary := p.Run(context.Background(), testSource(t), makeRecords(5))
	assert.Equal(t, 4, summary.Created)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.SkipReasons[domain.SkipReasonPersistence])
	assert.Empty(t, summary.Err)
}

func TestRun_NormalizedFieldsReachTheStore(t *testing.T) {
	store := newMemStore()
	p := newTestPipeline(t, store)
	src := testSource(t)

	records := []domain.RawEventRecord{{
		Title:       "Pumpkin Market",
		DetailLink:  "http://Example.com/events/pumpkin-market/?ref=x",
		RawDateTime: "Sat, October 18th, 2025 Doors: 6PM // Show: 7PM",
		Description: "a very spooky market",
	}}

	summary := p.Run(context.Background(), src, records)
	require.Equal(t, 1, summary.Created)

	id, ok := store.events["https://example.com/events/pumpkin-market"]
	require.True(t, ok, "event should be keyed by canonical link")

	event := store.eventRows[id]
	assert.Equal(t, "pumpkin-market", event.Slug)
	assert.Equal(t, time.Date(2025, time.October, 18, 0, 0, 0, 0, src.Location), event.StartDate)
	require.NotNil(t, event.StartTime)
	assert.Equal(t, "19:00:00", *event.StartTime)
	assert.Equal(t, src.Name, event.Source)

	// halloween is in season on Oct 18 and markets matched: both land.
	key := domain.TaggableTypeEvent + "/" + id.String()
	assert.ElementsMatch(t, []int64{8, 26}, store.associations[key])
}

func TestRun_VenueFailureEndsRun(t *testing.T) {
	store := newMemStore()
	p := newTestPipeline(t, store)

	src := testSource(t)
	src.Venue = domain.Venue{} // no name

	summary := p.Run(context.Background(), src, makeRecords(3))
	assert.NotEmpty(t, summary.Err)
	assert.Equal(t, 0, summary.Created)
	assert.Equal(t, 3, summary.Found)
}
