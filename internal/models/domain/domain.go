package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaggableTypeEvent is the polymorphic type discriminator used for
// event rows in the taggings table.
const TaggableTypeEvent = "all_events"

// RawEventRecord is the loosely structured output of a source adapter,
// consumed exactly once per pipeline run and never persisted as-is.
type RawEventRecord struct {
	Title       string
	DetailLink  string
	RawDateTime string
	ImageURL    string
	Description string
	VenueHint   string
}

// NormalizedEvent is the canonical, persistence-ready event record.
// StartDate is required; everything else degrades to its zero value.
// Times are 24-hour wall clock in the venue's local civil time,
// formatted "HH:MM:SS".
type NormalizedEvent struct {
	Title       string
	Link        string // canonical link, empty when the source has none
	Slug        string
	StartDate   time.Time
	EndDate     *time.Time
	StartTime   *string
	EndTime     *string
	ImageURL    string
	Description string
	VenueID     uuid.UUID
	Source      string
}

// Venue is the venue dimension. Name is the natural key; rows are
// created once and updated in place, never deleted by the pipeline.
type Venue struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	Address   string
	Latitude  *float64
	Longitude *float64
}

// Tag belongs to an externally managed, fixed vocabulary. The pipeline
// only ever looks tags up by slug or name.
type Tag struct {
	ID   int64
	Slug string
	Name string
}

// Tagging is a polymorphic association linking a tag to a typed entity.
type Tagging struct {
	TagID        int64
	TaggableType string
	TaggableID   string
}

// RunSummary is the user-visible outcome of one source run.
type RunSummary struct {
	Source      string
	StartedAt   time.Time
	FinishedAt  time.Time
	Found       int
	Created     int
	Updated     int
	Skipped     int
	SkipReasons map[string]int
	Err         string
}

// Skip reasons reported in RunSummary.SkipReasons.
const (
	SkipReasonNoStartDate = "no_start_date"
	SkipReasonNoTitle     = "no_title"
	SkipReasonPersistence = "persistence_error"
)
