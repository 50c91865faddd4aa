package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sumire/pouchlog/internal/domain"
)

// NotificationRepository handles queued notification records.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const notificationColumns = `id, user_id, channel, category, subject, message, recipient, status, attempts, max_attempts, scheduled_for, last_attempt_at, error_message, created_at`

// Create enqueues a notification and returns the stored record.
func (r *NotificationRepository) Create(ctx context.Context, n domain.Notification) (*domain.Notification, error) {
	var result domain.Notification
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO notifications (user_id, channel, category, subject, message, recipient, status, max_attempts, scheduled_for)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+notificationColumns,
		n.UserID, n.Channel, n.Category, n.Subject, n.Message, n.Recipient,
		domain.StatusPending, n.MaxAttempts, n.ScheduledFor,
	).StructScan(&result)
	if err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	return &result, nil
}

// SelectDue returns pending records whose scheduled time has passed, oldest
// first, capped at limit. Sent and failed records are never selected.
func (r *NotificationRepository) SelectDue(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error) {
	var records []domain.Notification
	err := r.db.SelectContext(ctx, &records,
		`SELECT `+notificationColumns+`
		 FROM notifications
		 WHERE status = $1 AND scheduled_for <= $2
		 ORDER BY scheduled_for ASC
		 LIMIT $3`,
		domain.StatusPending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("select due notifications: %w", err)
	}
	return records, nil
}

// Update writes back delivery state after an attempt.
func (r *NotificationRepository) Update(ctx context.Context, n domain.Notification) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications
		 SET status = $2, attempts = $3, scheduled_for = $4, last_attempt_at = $5, error_message = $6
		 WHERE id = $1`,
		n.ID, n.Status, n.Attempts, n.ScheduledFor, n.LastAttemptAt, n.ErrorMessage)
	if err != nil {
		return fmt.Errorf("update notification %d: %w", n.ID, err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RecentlySent reports whether a notification of the given category was
// delivered to the user since the cutoff. Used to deduplicate reminders.
func (r *NotificationRepository) RecentlySent(ctx context.Context, userID int64, category domain.Category, since time.Time) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM notifications
		 WHERE user_id = $1 AND category = $2 AND status = $3 AND last_attempt_at >= $4`,
		userID, category, domain.StatusSent, since)
	if err != nil {
		return false, fmt.Errorf("check recent notifications: %w", err)
	}
	return count > 0, nil
}

// RecentlyQueued reports whether a notification of the given category was
// enqueued for the user since the cutoff, regardless of delivery outcome.
func (r *NotificationRepository) RecentlyQueued(ctx context.Context, userID int64, category domain.Category, since time.Time) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM notifications
		 WHERE user_id = $1 AND category = $2 AND created_at >= $3`,
		userID, category, since)
	if err != nil {
		return false, fmt.Errorf("check recently queued notifications: %w", err)
	}
	return count > 0, nil
}

// ListByUser returns the user's most recent records, newest first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]domain.Notification, error) {
	var records []domain.Notification
	err := r.db.SelectContext(ctx, &records,
		`SELECT `+notificationColumns+`
		 FROM notifications
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications for user %d: %w", userID, err)
	}
	return records, nil
}
