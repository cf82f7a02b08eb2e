package generation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/docuverse/studio/pkg/logger"
)

// DefaultGenerateTimeout is the ceiling on a single blocking generate
// request. Jobs that outlive it are handed to recovery polling.
const DefaultGenerateTimeout = 180 * time.Second

// Generator is the submit-side seam used by services. *Client implements it.
type Generator interface {
	Generate(ctx context.Context, jobKey string, input json.RawMessage, tier Tier) (*Outcome, error)
}

// Outcome is a finished generation attempt: the artifact the caller
// should persist and the tier that actually produced it, which may be
// lower than requested after a fallback.
type Outcome struct {
	Location string
	Tier     Tier
	Result   *GenerateResult
}

// Client wraps the engine with the submit policy: a hard deadline on the
// blocking call and a one-shot fallback from quick to instant when the
// engine itself fails.
type Client struct {
	engine  Engine
	timeout time.Duration
}

// NewClient builds a client. A non-positive timeout falls back to
// DefaultGenerateTimeout.
func NewClient(engine Engine, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultGenerateTimeout
	}
	return &Client{engine: engine, timeout: timeout}
}

// Generate submits a job at the requested tier.
//
// A quick-tier request that fails with an engine error is retried once
// at the instant tier; any further failure is returned as-is. Timeouts
// are never retried here since the engine may still be working on the
// job. A success response without a download location is ErrNoArtifact.
func (c *Client) Generate(ctx context.Context, jobKey string, input json.RawMessage, tier Tier) (*Outcome, error) {
	out, err := c.generateOnce(ctx, jobKey, input, tier)
	if err == nil {
		return out, nil
	}

	var engineErr *EngineError
	if tier == TierQuick && errors.As(err, &engineErr) {
		logger.L().Warn("quick generation failed, falling back to instant",
			zap.String("job_key", jobKey),
			zap.Int("engine_status", engineErr.Status),
			zap.String("detail", engineErr.Detail))
		return c.generateOnce(ctx, jobKey, input, TierInstant)
	}
	return nil, err
}

func (c *Client) generateOnce(ctx context.Context, jobKey string, input json.RawMessage, tier Tier) (*Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.engine.Generate(ctx, jobKey, input, tier)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, err
	}
	if result.DownloadURL == "" {
		return nil, ErrNoArtifact
	}

	actual := tier
	if result.Mode != "" && KnownTier(Tier(result.Mode)) {
		actual = Tier(result.Mode)
	}
	return &Outcome{Location: result.DownloadURL, Tier: actual, Result: result}, nil
}
