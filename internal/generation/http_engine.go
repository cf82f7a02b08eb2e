package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// HTTPEngine talks to the generation engine over its HTTP API.
type HTTPEngine struct {
	baseURL string
	client  *http.Client
}

// NewHTTPEngine creates an engine client for the given base URL. The
// http.Client's timeout is left to the caller; generate deadlines come
// in through ctx.
func NewHTTPEngine(baseURL string, client *http.Client) *HTTPEngine {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPEngine{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (e *HTTPEngine) Generate(ctx context.Context, jobKey string, input json.RawMessage, tier Tier) (*GenerateResult, error) {
	if !KnownTier(tier) {
		return nil, fmt.Errorf("unknown tier %q", tier)
	}
	endpoint := fmt.Sprintf("%s/generate_srs?mode=%s&job=%s", e.baseURL, url.QueryEscape(string(tier)), url.QueryEscape(jobKey))

	body := input
	if len(body) == 0 {
		body = json.RawMessage(`{}`)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("generate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &EngineError{Tier: tier, Status: resp.StatusCode, Detail: strings.TrimSpace(string(detail))}
	}

	var result GenerateResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode generate response: %w", err)
	}
	return &result, nil
}

func (e *HTTPEngine) Status(ctx context.Context, jobKey string) (*JobStatus, error) {
	var status JobStatus
	if err := e.getJSON(ctx, fmt.Sprintf("%s/srs_status/%s", e.baseURL, url.PathEscape(jobKey)), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (e *HTTPEngine) Progress(ctx context.Context, jobKey string) (*JobProgress, error) {
	var progress JobProgress
	if err := e.getJSON(ctx, fmt.Sprintf("%s/srs_progress/%s", e.baseURL, url.PathEscape(jobKey)), &progress); err != nil {
		return nil, err
	}
	return &progress, nil
}

func (e *HTTPEngine) getJSON(ctx context.Context, endpoint string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("engine request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &EngineError{Status: resp.StatusCode, Detail: strings.TrimSpace(string(detail))}
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode engine response: %w", err)
	}
	return nil
}
