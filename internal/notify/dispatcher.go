package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/docuverse/studio/pkg/logger"
)

// EventKind identifies an automation event. The kind doubles as the
// webhook path suffix with dots mapped to dashes.
type EventKind string

const (
	KindProjectCreated     EventKind = "project.created"
	KindSRSGenerated       EventKind = "srs.generated"
	KindPrototypeGenerated EventKind = "prototype.generated"
)

// ProjectInfo is the project summary included in every event payload.
type ProjectInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Domain       string `json:"domain,omitempty"`
	ShareID      string `json:"shareId,omitempty"`
	Author       string `json:"author,omitempty"`
	DocumentPath string `json:"documentPath,omitempty"`
	PrototypeURL string `json:"prototypeUrl,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
}

// Links are the navigation URLs included in event payloads.
type Links struct {
	View     string `json:"view,omitempty"`
	Download string `json:"download,omitempty"`
	Demo     string `json:"demo,omitempty"`
}

// Event is one workflow occurrence worth telling the automation
// subscriber about.
type Event struct {
	Kind    EventKind
	Project ProjectInfo
	Links   Links
}

// Dispatcher publishes workflow events to an external automation
// subscriber. Publish reports delivery with a bool and never returns an
// error: a down or disabled subscriber must not fail the workflow that
// produced the event.
type Dispatcher interface {
	Publish(ctx context.Context, ev Event) bool
}

// Config controls the webhook dispatcher.
type Config struct {
	BaseURL string
	Enabled bool
	Timeout time.Duration
}

// WebhookDispatcher delivers events as JSON webhooks, one endpoint per
// event kind.
type WebhookDispatcher struct {
	baseURL string
	enabled bool
	client  *http.Client
	now     func() time.Time
}

// NewWebhookDispatcher builds a dispatcher from config. A non-positive
// timeout defaults to five seconds.
func NewWebhookDispatcher(cfg Config) *WebhookDispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookDispatcher{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		enabled: cfg.Enabled,
		client:  &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

type eventPayload struct {
	Event     EventKind   `json:"event"`
	Timestamp string      `json:"timestamp"`
	Project   ProjectInfo `json:"project"`
	Links     *Links      `json:"links,omitempty"`
}

// Publish delivers the event to {base}/webhook/<kind>. All failures are
// logged and swallowed.
func (d *WebhookDispatcher) Publish(ctx context.Context, ev Event) bool {
	if !d.enabled {
		logger.L().Debug("webhooks disabled, skipping event", zap.String("event", string(ev.Kind)))
		return false
	}

	payload := eventPayload{
		Event:     ev.Kind,
		Timestamp: d.now().UTC().Format(time.RFC3339),
		Project:   ev.Project,
	}
	if ev.Links != (Links{}) {
		payload.Links = &ev.Links
	}
	body, err := json.Marshal(payload)
	if err != nil {
		logger.L().Error("marshal event payload failed", zap.String("event", string(ev.Kind)), zap.Error(err))
		return false
	}

	endpoint := fmt.Sprintf("%s/webhook/%s", d.baseURL, strings.ReplaceAll(string(ev.Kind), ".", "-"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		logger.L().Error("build webhook request failed", zap.String("event", string(ev.Kind)), zap.Error(err))
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Source", "DocuVerse-Backend")

	resp, err := d.client.Do(req)
	if err != nil {
		logger.L().Warn("webhook delivery failed",
			zap.String("event", string(ev.Kind)),
			zap.String("endpoint", endpoint),
			zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.L().Warn("webhook subscriber rejected event",
			zap.String("event", string(ev.Kind)),
			zap.Int("status", resp.StatusCode))
		return false
	}

	logger.L().Info("event published", zap.String("event", string(ev.Kind)))
	return true
}
