package services

import (
	"context"
	"time"

	"github.com/stwalsh4118/catalogsync/internal/logger"
	"github.com/stwalsh4118/catalogsync/internal/repository"
)

// ActionSubmitLead is the rate-limited action name of the public lead form.
const ActionSubmitLead = "submit_lead"

// RateLimiter bounds how often one identity may perform an action.
type RateLimiter interface {
	// Check counts one attempt and reports whether it is allowed.
	// Any storage failure denies.
	Check(ctx context.Context, action, identity string, limit int, window time.Duration) bool
}

type rateLimiter struct {
	repo repository.RateLimitRepository
	log  *logger.Logger
	now  func() time.Time
}

// NewRateLimiter creates a new instance of RateLimiter backed by the store.
func NewRateLimiter(repo repository.RateLimitRepository, log *logger.Logger) RateLimiter {
	return &rateLimiter{
		repo: repo,
		log:  log.WithComponent("rate_limiter"),
		now:  time.Now,
	}
}

func (r *rateLimiter) Check(ctx context.Context, action, identity string, limit int, window time.Duration) bool {
	if limit < 1 || window <= 0 {
		return false
	}

	key := action + ":" + identity
	now := r.now().UTC()

	counter, err := r.repo.Get(ctx, key)
	if err != nil {
		r.deny(key, "read", err)
		return false
	}

	switch {
	case counter == nil, !now.Before(counter.ResetAt):
		if err := r.repo.Start(ctx, key, now, now.Add(window)); err != nil {
			r.deny(key, "start", err)
			return false
		}
		return true
	case counter.Count < limit:
		if err := r.repo.Increment(ctx, key, now); err != nil {
			r.deny(key, "increment", err)
			return false
		}
		return true
	default:
		r.log.Info("Rate limit exceeded", map[string]interface{}{
			"identifier": key,
			"count":      counter.Count,
			"limit":      limit,
			"reset_at":   counter.ResetAt,
		})
		return false
	}
}

func (r *rateLimiter) deny(key, op string, err error) {
	r.log.Error("Rate limit storage failed, denying", err, map[string]interface{}{
		"identifier": key,
		"operation":  op,
	})
}
