package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"eventsHarvester/internal/models/domain"

	"github.com/jmoiron/sqlx"
)

// ErrTagNotFound reports a lookup for a slug or name absent from the
// tags table. The vocabulary is externally managed; the pipeline never
// creates tag definitions.
var ErrTagNotFound = errors.New("tag not found")

// LookupTag resolves a tag id by slug or name.
func (r *Repository) LookupTag(ctx context.Context, slugOrName string) (int64, error) {
	op := "repository.LookupTag()"

	var id int64
	err := r.DB.GetContext(ctx, &id,
		`SELECT id FROM tags WHERE slug = $1 OR lower(name) = lower($1) LIMIT 1`,
		slugOrName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%s: %q: %w", op, slugOrName, ErrTagNotFound)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// ListTagAssociations returns the tag ids currently attached to one
// taggable entity.
func (r *Repository) ListTagAssociations(ctx context.Context, taggableType, taggableID string) ([]int64, error) {
	op := "repository.ListTagAssociations()"

	var ids []int64
	err := r.DB.SelectContext(ctx, &ids,
		`SELECT tag_id FROM taggings WHERE taggable_type = $1 AND taggable_id = $2 ORDER BY tag_id`,
		taggableType, taggableID,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return ids, nil
}

// InsertTagAssociations inserts taggings rows. Conflicting triples are
// ignored so that concurrent or repeated runs stay idempotent.
func (r *Repository) InsertTagAssociations(ctx context.Context, rows []domain.Tagging) error {
	op := "repository.InsertTagAssociations()"

	if len(rows) == 0 {
		return nil
	}

	query := `
		INSERT INTO taggings (tag_id, taggable_type, taggable_id, created_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (taggable_type, taggable_id, tag_id) DO NOTHING`

	for _, row := range rows {
		if _, err := r.DB.ExecContext(ctx, query, row.TagID, row.TaggableType, row.TaggableID); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}

// DeleteTagAssociations removes every association for one taggable
// entity. tagIDs, when given, restricts the delete to those tags.
func (r *Repository) DeleteTagAssociations(ctx context.Context, taggableType, taggableID string, tagIDs ...int64) error {
	op := "repository.DeleteTagAssociations()"

	var err error
	if len(tagIDs) == 0 {
		_, err = r.DB.ExecContext(ctx,
			`DELETE FROM taggings WHERE taggable_type = $1 AND taggable_id = $2`,
			taggableType, taggableID,
		)
	} else {
		var query string
		var args []interface{}
		query, args, err = sqlx.In(
			`DELETE FROM taggings WHERE taggable_type = ? AND taggable_id = ? AND tag_id IN (?)`,
			taggableType, taggableID, tagIDs,
		)
		if err == nil {
			query = r.DB.Rebind(query)
			_, err = r.DB.ExecContext(ctx, query, args...)
		}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
