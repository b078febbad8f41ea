package repositories

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type BaseModel struct {
	ID        uuid.UUID `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type Event struct {
	BaseModel
	Name        string          `db:"name"`
	Link        sql.NullString  `db:"link"`
	Slug        string          `db:"slug"`
	Image       sql.NullString  `db:"image"`
	StartDate   time.Time       `db:"start_date"`
	EndDate     sql.NullTime    `db:"end_date"`
	StartTime   sql.NullString  `db:"start_time"`
	EndTime     sql.NullString  `db:"end_time"`
	Description sql.NullString  `db:"description"`
	VenueID     uuid.NullUUID   `db:"venue_id"`
	Source      string          `db:"source"`
}

type Venue struct {
	BaseModel
	Name      string          `db:"name"`
	Slug      sql.NullString  `db:"slug"`
	Address   sql.NullString  `db:"address"`
	Latitude  sql.NullFloat64 `db:"latitude"`
	Longitude sql.NullFloat64 `db:"longitude"`
}

type Tag struct {
	ID   int64  `db:"id"`
	Slug string `db:"slug"`
	Name string `db:"name"`
}

type Tagging struct {
	ID           int64     `db:"id"`
	TagID        int64     `db:"tag_id"`
	TaggableType string    `db:"taggable_type"`
	TaggableID   string    `db:"taggable_id"`
	CreatedAt    time.Time `db:"created_at"`
}
