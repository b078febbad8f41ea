package upsert

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"eventsHarvester/internal/models/domain"
	"eventsHarvester/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu sync.Mutex

	venues       map[string]uuid.UUID
	venueCalls   int
	venueErr     error
	events       map[string]uuid.UUID // keyed by link or source/slug
	eventCalls   int
	eventErr     error
	eventErrLeft int
	tags         map[string]int64
	associations map[string][]int64 // taggableType/taggableID -> tag ids
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		venues: make(map[string]uuid.UUID),
		events: make(map[string]uuid.UUID),
		tags: map[string]int64{
			"markets":   8,
			"halloween": 26,
			"arts":      2,
		},
		associations: make(map[string][]int64),
	}
}

func (f *fakeStore) UpsertVenue(_ context.Context, venue domain.Venue) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.venueCalls++
	if f.venueErr != nil {
		return uuid.Nil, f.venueErr
	}
	id, ok := f.venues[venue.Name]
	if !ok {
		id = uuid.New()
		f.venues[venue.Name] = id
	}
	return id, nil
}

func (f *fakeStore) UpsertEvent(_ context.Context, event domain.NormalizedEvent) (uuid.UUID, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eventCalls++
	if f.eventErr != nil && f.eventErrLeft > 0 {
		f.eventErrLeft--
		return uuid.Nil, false, f.eventErr
	}
	key := event.Link
	if key == "" {
		key = event.Source + "/" + event.Slug
	}
	if id, ok := f.events[key]; ok {
		return id, false, nil
	}
	id := uuid.New()
	f.events[key] = id
	return id, true, nil
}

func (f *fakeStore) LookupTag(_ context.Context, slugOrName string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.tags[slugOrName]
	if !ok {
		return 0, repositories.ErrTagNotFound
	}
	return id, nil
}

func (f *fakeStore) ListTagAssociations(_ context.Context, taggableType, taggableID string) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.associations[taggableType+"/"+taggableID]...), nil
}

func (f *fakeStore) InsertTagAssociations(_ context.Context, rows []domain.Tagging) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range rows {
		key := row.TaggableType + "/" + row.TaggableID
		dup := false
		for _, id := range f.associations[key] {
			if id == row.TagID {
				dup = true
				break
			}
		}
		if !dup {
			f.associations[key] = append(f.associations[key], row.TagID)
		}
	}
	return nil
}

func (f *fakeStore) DeleteTagAssociations(_ context.Context, taggableType, taggableID string, tagIDs ...int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := taggableType + "/" + taggableID
	if len(tagIDs) == 0 {
		delete(f.associations, key)
		return nil
	}
	drop := make(map[int64]struct{}, len(tagIDs))
	for _, id := range tagIDs {
		drop[id] = struct{}{}
	}
	kept := f.associations[key][:0:0]
	for _, id := range f.associations[key] {
		if _, ok := drop[id]; !ok {
			kept = append(kept, id)
		}
	}
	f.associations[key] = kept
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastRetry() RetryConfig {
	return RetryConfig{Attempts: 3, Initial: time.Millisecond, Max: 2 * time.Millisecond}
}

func TestVenueID_CachedWithinRun(t *testing.T) {
	store := newFakeStore()
	o := New(testLogger(), store, fastRetry())
	venue := domain.Venue{Name: "Cherry Street Pier"}

	first, err := o.VenueID(context.Background(), venue)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := o.VenueID(context.Background(), venue)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, 1, store.venueCalls)
}

func TestVenueID_ConcurrentSingleUpsert(t *testing.T) {
	store := newFakeStore()
	o := New(testLogger(), store, fastRetry())
	venue := domain.Venue{Name: "Bok Building"}

	const workers = 16
	ids := make([]uuid.UUID, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := o.VenueID(context.Background(), venue)
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, store.venueCalls)
	for _, id := range ids[1:] {
		assert.Equal(t, ids[0], id)
	}
}

func TestVenueID_EmptyName(t *testing.T) {
	o := New(testLogger(), newFakeStore(), fastRetry())
	_, err := o.VenueID(context.Background(), domain.Venue{})
	assert.Error(t, err)
}

func TestPersistEvent_Idempotent(t *testing.T) {
	store := newFakeStore()
	o := New(testLogger(), store, fastRetry())

	event := domain.NormalizedEvent{
		Title:     "Jazz Night",
		Link:      "https://example.com/events/jazz-night",
		Slug:      "jazz-night",
		StartDate: time.Date(2025, time.June, 14, 0, 0, 0, 0, time.UTC),
		Source:    "example",
	}

	id1, created, err := o.PersistEvent(context.Background(), event)
	require.NoError(t, err)
	assert.True(t, created)

	id2, created, err := o.PersistEvent(context.Background(), event)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id1, id2)
}

func TestPersistEvent_RetriesTransientFailure(t *testing.T) {
	store := newFakeStore()
	store.eventErr = errors.New("connection reset")
	store.eventErrLeft = 2
	o := New(testLogger(), store, fastRetry())

	event := domain.NormalizedEvent{
		Title:     "Jazz Night",
		Slug:      "jazz-night",
		StartDate: time.Date(2025, time.June, 14, 0, 0, 0, 0, time.UTC),
		Source:    "example",
	}

	_, created, err := o.PersistEvent(context.Background(), event)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 3, store.eventCalls)
}

func TestReconcileTags_Additive(t *testing.T) {
	store := newFakeStore()
	o := New(testLogger(), store, fastRetry())
	eventID := uuid.New().String()
	key := domain.TaggableTypeEvent + "/" + eventID

	// Manually tagged out of band; additive must preserve it.
	store.associations[key] = []int64{2}

	err := o.ReconcileTags(context.Background(), domain.TaggableTypeEvent, eventID, []string{"markets", "halloween"}, PolicyAdditive)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{2, 8, 26}, store.associations[key])

	// Idempotent on re-run.
	err = o.ReconcileTags(context.Background(), domain.TaggableTypeEvent, eventID, []string{"markets", "halloween"}, PolicyAdditive)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{2, 8, 26}, store.associations[key])
}

func TestReconcileTags_Replace(t *testing.T) {
	store := newFakeStore()
	o := New(testLogger(), store, fastRetry())
	eventID := uuid.New().String()
	key := domain.TaggableTypeEvent + "/" + eventID

	store.associations[key] = []int64{2, 26}

	err := o.ReconcileTags(context.Background(), domain.TaggableTypeEvent, eventID, []string{"markets"}, PolicyReplace)
	require.NoError(t, err)
	assert.Equal(t, []int64{8}, store.associations[key])
}

func TestReconcileTags_UnknownSlugSkipped(t *testing.T) {
	store := newFakeStore()
	o := New(testLogger(), store, fastRetry())
	eventID := uuid.New().String()
	key := domain.TaggableTypeEvent + "/" + eventID

	err := o.ReconcileTags(context.Background(), domain.TaggableTypeEvent, eventID, []string{"markets", "not-a-tag"}, PolicyAdditive)
	require.NoError(t, err)
	assert.Equal(t, []int64{8}, store.associations[key])
}

func TestParsePolicy(t *testing.T) {
	assert.Equal(t, PolicyReplace, ParsePolicy("replace"))
	assert.Equal(t, PolicyAdditive, ParsePolicy("additive"))
	assert.Equal(t, PolicyAdditive, ParsePolicy(""))
	assert.Equal(t, PolicyAdditive, ParsePolicy("bogus"))
}
