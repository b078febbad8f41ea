package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"eventsHarvester/internal/models/domain"

	"github.com/google/uuid"
)

// UpsertVenue creates or refreshes a venue keyed by name and returns
// its id in one round trip. Attributes are overwritten with the latest
// values; venue rows are never deleted by the pipeline.
func (r *Repository) UpsertVenue(ctx context.Context, venue domain.Venue) (uuid.UUID, error) {
	op := "repository.UpsertVenue()"

	query := `
		INSERT INTO venues (id, name, slug, address, latitude, longitude, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (name) DO UPDATE SET
			slug       = EXCLUDED.slug,
			address    = EXCLUDED.address,
			latitude   = EXCLUDED.latitude,
			longitude  = EXCLUDED.longitude,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id`

	var id uuid.UUID
	err := r.DB.QueryRowxContext(ctx, query,
		uuid.New(),
		venue.Name,
		nullString(venue.Slug),
		nullString(venue.Address),
		nullFloat(venue.Latitude),
		nullFloat(venue.Longitude),
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
