package generation

import (
	"context"
	"encoding/json"
)

// Tier is a document quality tier. Higher tiers take longer to produce.
type Tier string

const (
	TierInstant  Tier = "instant"
	TierQuick    Tier = "quick"
	TierFull     Tier = "full"
	TierEnhanced Tier = "enhanced"
)

var tierRank = map[Tier]int{
	TierInstant:  1,
	TierQuick:    2,
	TierFull:     3,
	TierEnhanced: 4,
}

// KnownTier reports whether t is a tier the engine understands.
func KnownTier(t Tier) bool {
	_, ok := tierRank[t]
	return ok
}

// Engine is the narrow surface of the external document generation
// service. Everything the orchestrator knows about the engine goes
// through this interface.
type Engine interface {
	// Generate submits a job and blocks until the engine answers or ctx
	// expires. The input payload is forwarded opaquely.
	Generate(ctx context.Context, jobKey string, input json.RawMessage, tier Tier) (*GenerateResult, error)

	// Status reports which tiers of a job have finished artifacts.
	Status(ctx context.Context, jobKey string) (*JobStatus, error)

	// Progress reports the engine's own progress estimate for a job.
	Progress(ctx context.Context, jobKey string) (*JobProgress, error)
}

// GenerateResult is the engine's answer to a generate request.
type GenerateResult struct {
	DownloadURL         string   `json:"download_url"`
	Mode                string   `json:"mode"`
	EnhancedStatusURL   string   `json:"enhanced_status_url,omitempty"`
	EnhancedDownloadURL string   `json:"enhanced_download_url,omitempty"`
	Warnings            []string `json:"warnings,omitempty"`
}

// JobStatus is a per-tier readiness snapshot for a job.
type JobStatus struct {
	InstantReady  bool `json:"instant_ready"`
	QuickReady    bool `json:"quick_ready"`
	FullReady     bool `json:"full_ready"`
	EnhancedReady bool `json:"enhanced_ready"`

	InstantDownloadURL  string `json:"instant_download_url,omitempty"`
	QuickDownloadURL    string `json:"quick_download_url,omitempty"`
	FullDownloadURL     string `json:"full_download_url,omitempty"`
	EnhancedDownloadURL string `json:"enhanced_download_url,omitempty"`
}

// Best returns the highest-quality finished artifact, preferring
// enhanced over full over quick over instant. A tier only counts when
// both its ready flag and its download location are set.
func (s *JobStatus) Best() (location string, tier Tier, ok bool) {
	candidates := []struct {
		ready bool
		url   string
		tier  Tier
	}{
		{s.EnhancedReady, s.EnhancedDownloadURL, TierEnhanced},
		{s.FullReady, s.FullDownloadURL, TierFull},
		{s.QuickReady, s.QuickDownloadURL, TierQuick},
		{s.InstantReady, s.InstantDownloadURL, TierInstant},
	}
	for _, c := range candidates {
		if c.ready && c.url != "" {
			return c.url, c.tier, true
		}
	}
	return "", "", false
}

// JobProgress is the engine's authoritative progress report.
type JobProgress struct {
	Stage    string `json:"stage"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
	Status   string `json:"status"`
}
