package generation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/docuverse/studio/pkg/logger"
)

// Recovery polling defaults: sixty checks three seconds apart, so a job
// gets roughly three more minutes to finish after its generate request
// times out.
const (
	DefaultRecoveryInterval    = 3 * time.Second
	DefaultRecoveryMaxAttempts = 60

	// statusEvery controls how often onStatus fires (every Nth attempt).
	statusEvery = 4
)

// StatusFunc receives periodic human-readable updates while recovery is
// polling. Implementations must not block.
type StatusFunc func(message string)

// Recoverer is the recovery seam used by services. *Recovery implements it.
type Recoverer interface {
	Recover(ctx context.Context, jobKey string, onStatus StatusFunc) (location string, tier Tier, err error)
}

// Recovery polls the engine's status endpoint after a generate timeout,
// looking for an artifact the engine finished on its own. Polling is
// read-only against the engine, so running it twice for the same job is
// harmless.
type Recovery struct {
	engine      Engine
	interval    time.Duration
	maxAttempts int
}

// NewRecovery builds a recovery poller. Non-positive interval or attempt
// budget fall back to the defaults.
func NewRecovery(engine Engine, interval time.Duration, maxAttempts int) *Recovery {
	if interval <= 0 {
		interval = DefaultRecoveryInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultRecoveryMaxAttempts
	}
	return &Recovery{engine: engine, interval: interval, maxAttempts: maxAttempts}
}

// Recover polls until the engine reports a finished artifact, returning
// the highest-quality one available. Transient status errors are logged
// and retried. When the budget runs out the job is abandoned with
// ErrRecoveryExhausted; ctx cancellation stops polling immediately.
func (r *Recovery) Recover(ctx context.Context, jobKey string, onStatus StatusFunc) (string, Tier, error) {
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		status, err := r.engine.Status(ctx, jobKey)
		if err != nil {
			if ctx.Err() != nil {
				return "", "", ctx.Err()
			}
			logger.L().Warn("recovery status check failed",
				zap.String("job_key", jobKey),
				zap.Int("attempt", attempt),
				zap.Error(err))
		} else if location, tier, ok := status.Best(); ok {
			logger.L().Info("recovered artifact",
				zap.String("job_key", jobKey),
				zap.String("tier", string(tier)),
				zap.Int("attempt", attempt))
			return location, tier, nil
		}

		if onStatus != nil && attempt%statusEvery == 0 {
			onStatus(fmt.Sprintf("Still generating your document (check %d of %d)...", attempt, r.maxAttempts))
		}

		if attempt == r.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", "", ctx.Err()
		case <-time.After(r.interval):
		}
	}
	return "", "", ErrRecoveryExhausted
}
