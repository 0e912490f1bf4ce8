package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mediaengine/internal/cache"
	"mediaengine/internal/domain"
	"mediaengine/internal/infra"
)

const preferenceTTL = 5 * time.Minute

// Notifier is the notification decision gate. Given a job's terminal
// transition it consults the requester's preference for the matching
// category and creates a notification row when enabled. Everything here is
// best-effort: failures are logged and swallowed so they can never roll back
// the job transition that triggered them.
type Notifier struct {
	prefs         domain.PreferenceRepository
	notifications domain.NotificationRepository
	cache         cache.Cache
	titler        cases.Caser
	logger        infra.Logger
}

// NewNotifier creates the decision gate. cache may be nil to disable
// preference caching.
func NewNotifier(prefs domain.PreferenceRepository, notifications domain.NotificationRepository, c cache.Cache, logger infra.Logger) *Notifier {
	return &Notifier{
		prefs:         prefs,
		notifications: notifications,
		cache:         c,
		titler:        cases.Title(language.English),
		logger:        logger,
	}
}

// OnTerminal fires after a job transition to completed or failed. Callers
// must invoke it only when they actually won the status transition, which
// keeps notifications at exactly one per terminal change.
func (n *Notifier) OnTerminal(ctx context.Context, job *domain.Job) {
	if job == nil || !job.Status.Terminal() {
		return
	}
	category := domain.CategoryForStatus(job.Status)

	enabled, err := n.preference(ctx, job.RequesterID, category)
	if err != nil {
		n.logger.Warn().Err(err).Str("job_id", job.ID).Msg("notify: preference lookup failed, defaulting to enabled")
		enabled = true
	}
	if !enabled {
		n.logger.Debug().Str("job_id", job.ID).Str("category", string(category)).Msg("notify: suppressed by preference")
		return
	}

	title, message := n.compose(job)
	notification := &domain.Notification{
		ID:          uuid.NewString(),
		RequesterID: job.RequesterID,
		Category:    category,
		Title:       title,
		Message:     message,
		Payload: map[string]any{
			"job_id":     job.ID,
			"status":     string(job.Status),
			"result_url": job.ResultURL,
		},
	}
	if err := n.notifications.Create(ctx, notification); err != nil {
		n.logger.Error().Err(err).Str("job_id", job.ID).Msg("notify: create notification failed")
		return
	}
	n.logger.Info().Str("job_id", job.ID).Str("category", string(category)).Msg("notify: notification created")
}

func (n *Notifier) preference(ctx context.Context, requesterID string, category domain.NotificationCategory) (bool, error) {
	key := fmt.Sprintf("notifpref:%s:%s", requesterID, category)
	if n.cache != nil {
		if val, ok, err := n.cache.Get(ctx, key); err == nil && ok && len(val) == 1 {
			return val[0] == '1', nil
		}
	}
	enabled, err := n.prefs.Get(ctx, requesterID, category)
	if err != nil {
		return false, err
	}
	if n.cache != nil {
		val := []byte("0")
		if enabled {
			val = []byte("1")
		}
		if err := n.cache.Set(ctx, key, val, preferenceTTL); err != nil {
			n.logger.Warn().Err(err).Msg("notify: preference cache write failed")
		}
	}
	return enabled, nil
}

func (n *Notifier) compose(job *domain.Job) (string, string) {
	style := job.Style
	if style == "" {
		style = "lullaby"
	}
	styled := n.titler.String(style)
	if job.Status == domain.JobStatusCompleted {
		return "Your track is ready",
			fmt.Sprintf("Your %s track has finished generating and is ready to play.", styled)
	}
	reason := job.ErrorMessage
	if reason == "" {
		reason = "generation failed"
	}
	return "Track generation failed",
		fmt.Sprintf("We could not finish your %s track: %s.", styled, reason)
}
