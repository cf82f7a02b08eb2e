package generation

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the client and the recovery poller.
var (
	// ErrTimeout means the generate request outlived its deadline. The
	// engine may still finish the job, so callers should fall through to
	// recovery polling instead of failing the operation.
	ErrTimeout = errors.New("generation timed out")

	// ErrNoArtifact means the engine answered success but produced no
	// download location. There is nothing to poll for, so this is fatal
	// for the attempt.
	ErrNoArtifact = errors.New("engine returned no artifact location")

	// ErrRecoveryExhausted means the recovery poller used its full attempt
	// budget without the engine reporting a finished artifact.
	ErrRecoveryExhausted = errors.New("recovery polling exhausted")
)

// EngineError is a non-timeout failure reported by the engine itself,
// such as a 5xx response from the generate endpoint.
type EngineError struct {
	Tier   Tier
	Status int
	Detail string
}

func (e *EngineError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("engine %s generation failed (status %d): %s", e.Tier, e.Status, e.Detail)
	}
	return fmt.Sprintf("engine %s generation failed (status %d)", e.Tier, e.Status)
}
