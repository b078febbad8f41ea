// Package repositories is the persistence boundary: a Postgres store
// exposing atomic upsert-returning-identifier operations and the
// taggings association calls the pipeline reconciles against.
package repositories

import (
	"context"
	"fmt"
	"log/slog"

	"eventsHarvester/internal/config"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Repository struct {
	logger *slog.Logger
	DB     *sqlx.DB
}

// New connects to Postgres and pings it once.
func New(logger *slog.Logger, cfg *config.Config) (*Repository, error) {
	op := "repository.New()"
	log := logger.With(slog.String("op", op))

	dsn := fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s sslmode=%s",
		cfg.DBConfig.Host,
		cfg.DBConfig.Port,
		cfg.DBConfig.Name,
		cfg.DBConfig.User,
		cfg.DBConfig.Password,
		cfg.DBConfig.SSLMode,
	)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("connected to database",
		slog.String("host", cfg.DBConfig.Host),
		slog.String("name", cfg.DBConfig.Name),
	)

	return &Repository{
		logger: logger,
		DB:     db,
	}, nil
}

func (r *Repository) Shutdown(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("force exit repository: %w", ctx.Err())
	default:
		return r.DB.Close()
	}
}
