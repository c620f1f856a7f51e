package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cybercon/speaker-portal/internal/models"
)

// Repository handles notification, preference and delivery persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a notifications repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const notificationColumns = `id, user_id, notification_type, title, message, priority,
	is_read, read_at, related_session_id, created_at`

func scanNotification(row pgx.Row) (*models.Notification, error) {
	var n models.Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Priority,
		&n.IsRead, &n.ReadAt, &n.RelatedSessionID, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// CreateParams describes a new notification.
type CreateParams struct {
	UserID           uuid.UUID
	Type             string
	Title            string
	Message          string
	Priority         string
	RelatedSessionID *uuid.UUID
}

// Create inserts a notification row.
func (r *Repository) Create(ctx context.Context, p CreateParams) (*models.Notification, error) {
	if p.Priority == "" {
		p.Priority = models.PriorityNormal
	}
	return scanNotification(r.pool.QueryRow(ctx, `INSERT INTO notifications
		(user_id, notification_type, title, message, priority, related_session_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+notificationColumns,
		p.UserID, p.Type, p.Title, p.Message, p.Priority, p.RelatedSessionID))
}

// List returns a user's notifications, newest first.
func (r *Repository) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	q := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1`
	if unreadOnly {
		q += ` AND NOT is_read`
	}
	q += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *n)
	}
	return list, rows.Err()
}

// UnreadCount returns the number of unread notifications for a user.
func (r *Repository) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM notifications WHERE user_id = $1 AND NOT is_read`, userID).Scan(&n)
	return n, err
}

// MarkRead marks one notification read if it belongs to the user.
func (r *Repository) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET is_read = TRUE, read_at = now()
		WHERE id = $1 AND user_id = $2 AND NOT is_read`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM notifications WHERE id = $1 AND user_id = $2)`, id, userID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return errors.New("notification not found")
		}
	}
	return nil
}

// MarkAllRead marks every unread notification read for the user.
func (r *Repository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET is_read = TRUE, read_at = now()
		WHERE user_id = $1 AND NOT is_read`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Delete removes a notification if it belongs to the user.
func (r *Repository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("notification not found")
	}
	return nil
}

// GetPreferences returns the user's preferences, creating the defaults row
// on first read.
func (r *Repository) GetPreferences(ctx context.Context, userID uuid.UUID) (*models.NotificationPreferences, error) {
	var p models.NotificationPreferences
	const cols = `user_id, email_session_updates, email_review_updates, email_schedule_updates,
		email_questions, email_broadcasts, push_enabled, digest_frequency, updated_at`
	scan := func(row pgx.Row) error {
		return row.Scan(&p.UserID, &p.EmailSessionUpdates, &p.EmailReviewUpdates, &p.EmailScheduleUpdates,
			&p.EmailQuestions, &p.EmailBroadcasts, &p.PushEnabled, &p.DigestFrequency, &p.UpdatedAt)
	}
	err := scan(r.pool.QueryRow(ctx, `SELECT `+cols+` FROM notification_preferences WHERE user_id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		err = scan(r.pool.QueryRow(ctx, `INSERT INTO notification_preferences (user_id) VALUES ($1)
			ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
			RETURNING `+cols, userID))
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePreferences replaces the user's preference row.
func (r *Repository) UpdatePreferences(ctx context.Context, p *models.NotificationPreferences) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO notification_preferences
		(user_id, email_session_updates, email_review_updates, email_schedule_updates,
		 email_questions, email_broadcasts, push_enabled, digest_frequency, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (user_id) DO UPDATE SET
			email_session_updates = EXCLUDED.email_session_updates,
			email_review_updates = EXCLUDED.email_review_updates,
			email_schedule_updates = EXCLUDED.email_schedule_updates,
			email_questions = EXCLUDED.email_questions,
			email_broadcasts = EXCLUDED.email_broadcasts,
			push_enabled = EXCLUDED.push_enabled,
			digest_frequency = EXCLUDED.digest_frequency,
			updated_at = now()`,
		p.UserID, p.EmailSessionUpdates, p.EmailReviewUpdates, p.EmailScheduleUpdates,
		p.EmailQuestions, p.EmailBroadcasts, p.PushEnabled, p.DigestFrequency)
	return err
}

// RecordDelivery inserts a delivery attempt row.
func (r *Repository) RecordDelivery(ctx context.Context, notificationID uuid.UUID, method, status, errMsg string, sentAt *time.Time) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO notification_deliveries (notification_id, method, status, error, sent_at)
		VALUES ($1, $2, $3, $4, $5)`, notificationID, method, status, errMsg, sentAt)
	return err
}

// EmailFor returns the recipient address for a user.
func (r *Repository) EmailFor(ctx context.Context, userID uuid.UUID) (string, error) {
	var email string
	err := r.pool.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, userID).Scan(&email)
	return email, err
}
