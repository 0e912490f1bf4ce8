package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mediaengine/internal/domain"
)

// NotificationRepositoryPG implements domain.NotificationRepository and
// domain.PreferenceRepository over PostgreSQL.
type NotificationRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository creates a notification repository backed by PostgreSQL.
func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepositoryPG {
	return &NotificationRepositoryPG{pool: pool}
}

// Create inserts a notification row for pickup by the delivery pipeline.
func (r *NotificationRepositoryPG) Create(ctx context.Context, n *domain.Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	query := `
INSERT INTO notifications (id, requester_id, category, title, message, payload)
VALUES ($1, $2, $3, $4, $5, $6);
`
	_, err = r.pool.Exec(ctx, query, n.ID, n.RequesterID, n.Category, n.Title, n.Message, payload)
	return err
}

// Get reads the requester's preference flag for a category. A missing row
// defaults to enabled.
func (r *NotificationRepositoryPG) Get(ctx context.Context, requesterID string, category domain.NotificationCategory) (bool, error) {
	query := `
SELECT enabled
FROM notification_preferences
WHERE requester_id = $1 AND category = $2;
`
	var enabled bool
	if err := r.pool.QueryRow(ctx, query, requesterID, category).Scan(&enabled); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return true, nil
		}
		return false, err
	}
	return enabled, nil
}

var (
	_ domain.NotificationRepository = (*NotificationRepositoryPG)(nil)
	_ domain.PreferenceRepository   = (*NotificationRepositoryPG)(nil)
)
