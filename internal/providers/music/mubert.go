package music

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const mubertName = "mubert"

// MubertOptions controls how the Mubert client is configured.
type MubertOptions struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// MubertProvider generates tracks through Mubert's async track-generation
// API: Submit returns a task id, Poll fetches it until the render finishes.
type MubertProvider struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewMubertProvider constructs a Mubert-backed Provider.
func NewMubertProvider(opts MubertOptions) *MubertProvider {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://music-api.mubert.com/api/v3"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &MubertProvider{
		httpClient: client,
		baseURL:    base,
		token:      strings.TrimSpace(opts.APIKey),
	}
}

func (p *MubertProvider) Name() string { return mubertName }

type mubertGenerateRequest struct {
	Prompt     string `json:"prompt"`
	Style      string `json:"playlist,omitempty"`
	Duration   int    `json:"duration"`
	ExternalID string `json:"external_id,omitempty"`
}

type mubertTaskResponse struct {
	Data struct {
		TaskID    string `json:"task_id"`
		Status    string `json:"status"`
		TrackURL  string `json:"track_url"`
		ErrorText string `json:"error_text"`
	} `json:"data"`
	Error string `json:"error"`
}

func (p *MubertProvider) Submit(ctx context.Context, req GenerationRequest) (*SubmitOutcome, error) {
	if p.token == "" {
		return nil, &Error{Transient: false, Message: "mubert: API key is missing"}
	}
	payload := mubertGenerateRequest{
		Prompt:     req.Prompt,
		Style:      req.Style,
		Duration:   req.DurationSec,
		ExternalID: req.RequestID,
	}
	var resp mubertTaskResponse
	if err := p.do(ctx, http.MethodPost, "/track-generation", payload, &resp); err != nil {
		return nil, err
	}
	if resp.Data.TaskID == "" {
		return nil, &Error{Transient: true, Message: fmt.Sprintf("mubert: response missing task id: %s", resp.Error)}
	}
	outcome := &SubmitOutcome{ProviderRef: resp.Data.TaskID}
	// Short renders occasionally come back already finished.
	if resp.Data.TrackURL != "" {
		outcome.ResultURL = resp.Data.TrackURL
	}
	return outcome, nil
}

func (p *MubertProvider) Poll(ctx context.Context, providerRef string) (*PollOutcome, error) {
	if providerRef == "" {
		return nil, &Error{Transient: false, Message: "mubert: provider ref is required"}
	}
	var resp mubertTaskResponse
	if err := p.do(ctx, http.MethodGet, "/track-generation/"+providerRef, nil, &resp); err != nil {
		return nil, err
	}
	switch resp.Data.Status {
	case "done":
		if resp.Data.TrackURL == "" {
			return nil, &Error{Transient: true, Message: "mubert: task done without track url"}
		}
		return &PollOutcome{State: PollStateDone, ResultURL: resp.Data.TrackURL}, nil
	case "error":
		msg := resp.Data.ErrorText
		if msg == "" {
			msg = "mubert: generation failed"
		}
		return &PollOutcome{State: PollStateFailed, Message: msg}, nil
	default:
		return &PollOutcome{State: PollStateRunning}, nil
	}
}

func (p *MubertProvider) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return &Error{Transient: false, Message: fmt.Sprintf("mubert: encode request: %v", err)}
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return &Error{Transient: false, Message: fmt.Sprintf("mubert: build request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return transportError(mubertName, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return transportError(mubertName, err)
	}
	if resp.StatusCode != http.StatusOK {
		return statusError(mubertName, resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Transient: true, Message: fmt.Sprintf("mubert: decode response: %v", err)}
	}
	return nil
}

var _ Provider = (*MubertProvider)(nil)
