package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stwalsh4118/catalogsync/internal/database"
	"github.com/stwalsh4118/catalogsync/internal/models"
)

// RateLimitRepository persists rate limit counters.
type RateLimitRepository interface {
	// Get returns nil, nil when no counter exists for identifier.
	Get(ctx context.Context, identifier string) (*models.RateLimitCounter, error)

	// Start opens a fresh window with count 1, replacing any previous counter.
	Start(ctx context.Context, identifier string, now, resetAt time.Time) error

	// Increment bumps the count of an open window.
	Increment(ctx context.Context, identifier string, now time.Time) error
}

type rateLimitRepository struct {
	db *database.Database
}

// NewRateLimitRepository creates a new instance of RateLimitRepository.
func NewRateLimitRepository(db *database.Database) RateLimitRepository {
	return &rateLimitRepository{db: db}
}

func (r *rateLimitRepository) Get(ctx context.Context, identifier string) (*models.RateLimitCounter, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	var c models.RateLimitCounter
	err := r.db.Pool.QueryRow(ctx, `
		SELECT identifier, count, last_attempt, reset_at
		FROM rate_limits
		WHERE identifier = $1
	`, identifier).Scan(&c.Identifier, &c.Count, &c.LastAttempt, &c.ResetAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query rate limit %s: %w", identifier, err)
	}
	return &c, nil
}

func (r *rateLimitRepository) Start(ctx context.Context, identifier string, now, resetAt time.Time) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO rate_limits (identifier, count, last_attempt, reset_at)
		VALUES ($1, 1, $2, $3)
		ON CONFLICT (identifier) DO UPDATE SET
			count = 1,
			last_attempt = EXCLUDED.last_attempt,
			reset_at = EXCLUDED.reset_at
	`, identifier, now, resetAt)
	if err != nil {
		return fmt.Errorf("failed to start rate limit window %s: %w", identifier, err)
	}
	return nil
}

func (r *rateLimitRepository) Increment(ctx context.Context, identifier string, now time.Time) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE rate_limits SET count = count + 1, last_attempt = $2
		WHERE identifier = $1
	`, identifier, now)
	if err != nil {
		return fmt.Errorf("failed to increment rate limit %s: %w", identifier, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rate limit %s: %w", identifier, ErrNotFound)
	}
	return nil
}
