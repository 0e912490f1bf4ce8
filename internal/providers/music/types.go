package music

import "context"

// GenerationRequest describes a normalized request passed to any music provider.
type GenerationRequest struct {
	Prompt      string
	Style       string
	DurationSec int
	RequesterID string
	RequestID   string
}

// SubmitOutcome is what a provider returns from Submit. ProviderRef is always
// set once the provider accepted the job. A non-empty ResultURL or Audio
// means the provider completed synchronously.
type SubmitOutcome struct {
	ProviderRef string
	ResultURL   string
	Audio       []byte
}

// Completed reports whether the submission already carries a result.
func (o *SubmitOutcome) Completed() bool {
	return o != nil && (o.ResultURL != "" || len(o.Audio) > 0)
}

// PollState enumerates provider-side job states.
type PollState string

const (
	PollStateRunning PollState = "running"
	PollStateDone    PollState = "done"
	PollStateFailed  PollState = "failed"
)

// PollOutcome is what a provider returns from Poll.
type PollOutcome struct {
	State     PollState
	ResultURL string
	Audio     []byte
	Message   string
}

// Provider is the contract implemented by all music generation backends.
type Provider interface {
	Name() string
	Submit(ctx context.Context, req GenerationRequest) (*SubmitOutcome, error)
	Poll(ctx context.Context, providerRef string) (*PollOutcome, error)
}
