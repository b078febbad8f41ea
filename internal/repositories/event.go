package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"eventsHarvester/internal/models/domain"
	repoModels "eventsHarvester/internal/models/repositories"

	"github.com/google/uuid"
)

// UpsertEvent persists a normalized event atomically, keyed on its
// canonical link when present, else on (source, slug). Every field is
// overwritten on conflict: a stale leftover from a prior run is worse
// than a fresh overwrite. Returns the row id and whether the row was
// newly created.
func (r *Repository) UpsertEvent(ctx context.Context, event domain.NormalizedEvent) (uuid.UUID, bool, error) {
	op := "repository.UpsertEvent()"

	if event.StartDate.IsZero() {
		return uuid.Nil, false, fmt.Errorf("%s: start_date is required", op)
	}

	// xmax = 0 only holds for rows created by this statement, which is
	// how "created vs updated" is detected without a second query.
	const conflictByLink = `
		INSERT INTO all_events
			(id, name, link, slug, image, start_date, end_date, start_time, end_time,
			 description, venue_id, source, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (link) WHERE link IS NOT NULL DO UPDATE SET
			name        = EXCLUDED.name,
			slug        = EXCLUDED.slug,
			image       = EXCLUDED.image,
			start_date  = EXCLUDED.start_date,
			end_date    = EXCLUDED.end_date,
			start_time  = EXCLUDED.start_time,
			end_time    = EXCLUDED.end_time,
			description = EXCLUDED.description,
			venue_id    = EXCLUDED.venue_id,
			source      = EXCLUDED.source,
			updated_at  = CURRENT_TIMESTAMP
		RETURNING id, (xmax = 0) AS created`

	const conflictBySlug = `
		INSERT INTO all_events
			(id, name, link, slug, image, start_date, end_date, start_time, end_time,
			 description, venue_id, source, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (source, slug) DO UPDATE SET
			name        = EXCLUDED.name,
			link        = EXCLUDED.link,
			image       = EXCLUDED.image,
			start_date  = EXCLUDED.start_date,
			end_date    = EXCLUDED.end_date,
			start_time  = EXCLUDED.start_time,
			end_time    = EXCLUDED.end_time,
			description = EXCLUDED.description,
			venue_id    = EXCLUDED.venue_id,
			updated_at  = CURRENT_TIMESTAMP
		RETURNING id, (xmax = 0) AS created`

	query := conflictBySlug
	if event.Link != "" {
		query = conflictByLink
	}

	var (
		id      uuid.UUID
		created bool
	)
	err := r.DB.QueryRowxContext(ctx, query,
		uuid.New(),
		event.Title,
		nullString(event.Link),
		event.Slug,
		nullString(event.ImageURL),
		event.StartDate,
		nullTime(event.EndDate),
		nullStringPtr(event.StartTime),
		nullStringPtr(event.EndTime),
		nullString(event.Description),
		nullUUID(event.VenueID),
		event.Source,
	).Scan(&id, &created)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("%s: %w", op, err)
	}

	return id, created, nil
}

// UpdateEventDescription rewrites only the description of an existing
// event. Used by the enrichment worker; the pipeline itself always
// writes full rows.
func (r *Repository) UpdateEventDescription(ctx context.Context, id uuid.UUID, description string) error {
	op := "repository.UpdateEventDescription()"

	result, err := r.DB.ExecContext(ctx,
		`UPDATE all_events SET description = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		description, id,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: event %s not found", op, id)
	}

	return nil
}

// ListUpcomingEvents returns events starting on or after the given
// day, soonest first.
func (r *Repository) ListUpcomingEvents(ctx context.Context, from time.Time, limit int) ([]repoModels.Event, error) {
	op := "repository.ListUpcomingEvents()"

	var events []repoModels.Event
	err := r.DB.SelectContext(ctx, &events,
		`SELECT id, name, link, slug, image, start_date, end_date, start_time, end_time,
		        description, venue_id, source, created_at, updated_at
		   FROM all_events
		  WHERE start_date >= $1
		  ORDER BY start_date, start_time NULLS LAST, name
		  LIMIT $2`,
		from, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return events, nil
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullUUID(id uuid.UUID) uuid.NullUUID {
	if id == uuid.Nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: id, Valid: true}
}
