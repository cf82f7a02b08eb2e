package generation

import (
	"context"
	"sync"
	"time"
)

// The simulated ramp climbs quickly to 60, slows to 90, then crawls and
// caps at 95. Only a confirmed artifact may push reported progress to 100,
// which is the service's call, so Reporter clamps merged values at 99.
const (
	simFastUntil   = 30 * time.Second
	simSlowUntil   = 120 * time.Second
	simFastCeiling = 60
	simSlowCeiling = 90
	simCap         = 95

	mergedCap = 99
)

// Simulated maps elapsed generation time to an optimistic progress
// percentage. It is pure and monotonically non-decreasing in elapsed.
func Simulated(elapsed time.Duration) int {
	switch {
	case elapsed <= 0:
		return 0
	case elapsed < simFastUntil:
		return int(elapsed.Seconds() * simFastCeiling / simFastUntil.Seconds())
	case elapsed < simSlowUntil:
		extra := elapsed - simFastUntil
		span := simSlowUntil - simFastUntil
		return simFastCeiling + int(extra.Seconds()*(simSlowCeiling-simFastCeiling)/span.Seconds())
	default:
		p := simSlowCeiling + int((elapsed-simSlowUntil).Seconds()/12)
		if p > simCap {
			return simCap
		}
		return p
	}
}

// SimulatedMessage names the stage a simulated percentage falls in.
func SimulatedMessage(percent int) string {
	switch {
	case percent < 20:
		return "Analyzing project requirements..."
	case percent < simFastCeiling:
		return "Drafting document sections..."
	case percent < simSlowCeiling:
		return "Composing detailed content..."
	default:
		return "Finalizing your document..."
	}
}

// Reporter merges the simulated ramp with the engine's authoritative
// progress so the UI never appears stalled even when the engine goes
// quiet. It remembers the highest percentage reported per job so a
// silent engine never makes the number fall back to the simulated ramp.
type Reporter struct {
	engine Engine
	now    func() time.Time

	mu        sync.Mutex
	highWater map[string]int
}

// NewReporter builds a progress reporter backed by the engine.
func NewReporter(engine Engine) *Reporter {
	return &Reporter{engine: engine, now: time.Now, highWater: make(map[string]int)}
}

// Current reports merged progress for an in-flight job. The percentage
// is the max of the simulated ramp, the engine's own estimate, and
// every value previously reported for the job, so it never moves
// backward across polls; the engine's message wins when it has one.
// Engine errors degrade to the high-water mark or pure simulation.
func (r *Reporter) Current(ctx context.Context, jobKey string, startedAt time.Time) (int, string) {
	percent := Simulated(r.now().Sub(startedAt))
	message := SimulatedMessage(percent)

	if jp, err := r.engine.Progress(ctx, jobKey); err == nil {
		if jp.Progress > percent {
			percent = jp.Progress
		}
		if jp.Message != "" {
			message = jp.Message
		}
	}

	if percent > mergedCap {
		percent = mergedCap
	}

	r.mu.Lock()
	if prev, ok := r.highWater[jobKey]; ok && prev > percent {
		percent = prev
	} else {
		r.highWater[jobKey] = percent
	}
	r.mu.Unlock()
	return percent, message
}

// Forget drops the recorded high-water mark for a finished job.
func (r *Reporter) Forget(jobKey string) {
	r.mu.Lock()
	delete(r.highWater, jobKey)
	r.mu.Unlock()
}
