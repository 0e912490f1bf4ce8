package domain

import "time"

// NotificationCategory keys per-user preference flags.
type NotificationCategory string

const (
	NotificationMusicReady  NotificationCategory = "music_ready"
	NotificationMusicFailed NotificationCategory = "music_failed"
)

// CategoryForStatus maps a terminal job status to its notification category.
func CategoryForStatus(status JobStatus) NotificationCategory {
	if status == JobStatusCompleted {
		return NotificationMusicReady
	}
	return NotificationMusicFailed
}

// Notification is a row written to the external notification store. Delivery
// mechanics are someone else's problem; this subsystem only decides whether
// to create the row.
type Notification struct {
	ID          string
	RequesterID string
	Category    NotificationCategory
	Title       string
	Message     string
	Payload     map[string]any
	CreatedAt   time.Time
}
