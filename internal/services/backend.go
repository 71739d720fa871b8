// HTTP implementation of [MixAPI] against the aidj generation backend.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/duskview/aidj/internal/mix"
	"github.com/duskview/aidj/internal/shared"
	"golang.org/x/time/rate"
)

// BackendService talks to the generation backend over HTTP. The credential
// is the Spotify access token the backend forwards to its orchestrator; it
// travels as a bearer token on every request.
type BackendService struct {
	baseURL    string
	credential string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewBackendService creates a backend client. requestsPerMinute throttles
// generate submissions; zero disables throttling.
func NewBackendService(baseURL, credential string, client *http.Client, requestsPerMinute int) *BackendService {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	if client == nil {
		client = http.DefaultClient
	}

	var limiter *rate.Limiter
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1)
	}

	return &BackendService{
		baseURL:    baseURL,
		credential: credential,
		httpClient: client,
		limiter:    limiter,
	}
}

// Authenticated reports whether a generation credential is held.
func (b *BackendService) Authenticated() bool {
	return b.credential != ""
}

// SetCredential replaces the held credential (e.g. after an auth flow).
func (b *BackendService) SetCredential(credential string) {
	b.credential = credential
}

// generateRequest is the POST /mix/generate body.
type generateRequest struct {
	Prompt          string `json:"prompt"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

// errorBody is the backend's 4xx/5xx payload.
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func (e errorBody) message() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Detail
}

// GenerateMix submits a prompt for mix generation and returns the session
// id and pre-stream playlist skeleton.
func (b *BackendService) GenerateMix(ctx context.Context, prompt string, durationMinutes int) (*GenerateResponse, error) {
	if !b.Authenticated() {
		return nil, fmt.Errorf("%w: no Spotify access token", shared.ErrMissingCredentials)
	}

	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrSubmission, err)
		}
	}

	body, err := json.Marshal(generateRequest{Prompt: prompt, DurationMinutes: durationMinutes})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/mix/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.credential)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrSubmission, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrSubmission, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e errorBody
		if json.Unmarshal(raw, &e) == nil && e.message() != "" {
			return nil, fmt.Errorf("%w: %s", shared.ErrSubmission, e.message())
		}
		return nil, fmt.Errorf("%w: status %d", shared.ErrSubmission, resp.StatusCode)
	}

	var result GenerateResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", shared.ErrSubmission, err)
	}
	if result.SessionID == "" {
		return nil, fmt.Errorf("%w: response missing session_id", shared.ErrSubmission)
	}

	return &result, nil
}

// GetMix fetches the canonical persisted record for a session.
func (b *BackendService) GetMix(ctx context.Context, sessionID string) (*MixRecord, error) {
	var record MixRecord
	if err := b.getJSON(ctx, "/api/mixes/"+sessionID, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListMixes returns session summaries, newest first.
func (b *BackendService) ListMixes(ctx context.Context, limit, offset int) ([]mix.SessionSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	var response struct {
		Mixes []mix.SessionSummary `json:"mixes"`
	}
	path := fmt.Sprintf("/api/mixes?limit=%d&offset=%d", limit, offset)
	if err := b.getJSON(ctx, path, &response); err != nil {
		return nil, err
	}
	return response.Mixes, nil
}

// getJSON performs an authenticated GET and decodes the JSON response.
func (b *BackendService) getJSON(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if b.credential != "" {
		req.Header.Set("Authorization", "Bearer "+b.credential)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", shared.ErrMixNotFound, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
