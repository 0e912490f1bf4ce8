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

const beatovenName = "beatoven"

// BeatovenOptions controls how the Beatoven client is configured.
type BeatovenOptions struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// BeatovenProvider generates tracks through Beatoven's compose API. Short
// tracks may be composed synchronously inside the Submit call.
type BeatovenProvider struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewBeatovenProvider constructs a Beatoven-backed Provider.
func NewBeatovenProvider(opts BeatovenOptions) *BeatovenProvider {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://public-api.beatoven.ai/api/v1"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &BeatovenProvider{
		httpClient: client,
		baseURL:    base,
		token:      strings.TrimSpace(opts.APIKey),
	}
}

func (p *BeatovenProvider) Name() string { return beatovenName }

type beatovenComposeRequest struct {
	Prompt struct {
		Text string `json:"text"`
	} `json:"prompt"`
	Genre    string `json:"genre,omitempty"`
	Duration int    `json:"duration"`
	Format   string `json:"format"`
}

type beatovenTaskResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	Meta   struct {
		TrackURL string `json:"track_url"`
	} `json:"meta"`
	Error string `json:"error"`
}

func (p *BeatovenProvider) Submit(ctx context.Context, req GenerationRequest) (*SubmitOutcome, error) {
	if p.token == "" {
		return nil, &Error{Transient: false, Message: "beatoven: API key is missing"}
	}
	var payload beatovenComposeRequest
	payload.Prompt.Text = req.Prompt
	payload.Genre = req.Style
	payload.Duration = req.DurationSec
	payload.Format = "mp3"

	var resp beatovenTaskResponse
	if err := p.do(ctx, http.MethodPost, "/tracks/compose", payload, &resp); err != nil {
		return nil, err
	}
	if resp.TaskID == "" {
		return nil, &Error{Transient: true, Message: fmt.Sprintf("beatoven: response missing task id: %s", resp.Error)}
	}
	outcome := &SubmitOutcome{ProviderRef: resp.TaskID}
	if resp.Status == "composed" && resp.Meta.TrackURL != "" {
		outcome.ResultURL = resp.Meta.TrackURL
	}
	return outcome, nil
}

func (p *BeatovenProvider) Poll(ctx context.Context, providerRef string) (*PollOutcome, error) {
	if providerRef == "" {
		return nil, &Error{Transient: false, Message: "beatoven: provider ref is required"}
	}
	var resp beatovenTaskResponse
	if err := p.do(ctx, http.MethodGet, "/tasks/"+providerRef, nil, &resp); err != nil {
		return nil, err
	}
	switch resp.Status {
	case "composed":
		if resp.Meta.TrackURL == "" {
			return nil, &Error{Transient: true, Message: "beatoven: task composed without track url"}
		}
		return &PollOutcome{State: PollStateDone, ResultURL: resp.Meta.TrackURL}, nil
	case "failed":
		msg := resp.Error
		if msg == "" {
			msg = "beatoven: composition failed"
		}
		return &PollOutcome{State: PollStateFailed, Message: msg}, nil
	default:
		return &PollOutcome{State: PollStateRunning}, nil
	}
}

func (p *BeatovenProvider) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return &Error{Transient: false, Message: fmt.Sprintf("beatoven: encode request: %v", err)}
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return &Error{Transient: false, Message: fmt.Sprintf("beatoven: build request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return transportError(beatovenName, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return transportError(beatovenName, err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return statusError(beatovenName, resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Transient: true, Message: fmt.Sprintf("beatoven: decode response: %v", err)}
	}
	return nil
}

var _ Provider = (*BeatovenProvider)(nil)
