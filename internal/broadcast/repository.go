package broadcast

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cybercon/speaker-portal/internal/models"
)

// ErrNotFound is returned when a broadcast or delivery does not exist.
var ErrNotFound = errors.New("not found")

// Repository handles broadcast and delivery persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a broadcast repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const messageColumns = `id, created_by, subject, message, message_type,
	target_audience, target_session_status, sent_at, created_at`

func scanMessage(row pgx.Row) (*models.BroadcastMessage, error) {
	var m models.BroadcastMessage
	err := row.Scan(&m.ID, &m.CreatedBy, &m.Subject, &m.Message, &m.MessageType,
		&m.TargetAudience, &m.TargetSessionStatus, &m.SentAt, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// CreateParams describes a new broadcast.
type CreateParams struct {
	CreatedBy           uuid.UUID
	Subject             string
	Message             string
	MessageType         string
	TargetAudience      string
	TargetSessionStatus string
}

// Create inserts a broadcast message (not yet sent).
func (r *Repository) Create(ctx context.Context, p CreateParams) (*models.BroadcastMessage, error) {
	if p.MessageType == "" {
		p.MessageType = "announcement"
	}
	return scanMessage(r.pool.QueryRow(ctx, `INSERT INTO broadcast_messages
		(created_by, subject, message, message_type, target_audience, target_session_status)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+messageColumns,
		p.CreatedBy, p.Subject, p.Message, p.MessageType, p.TargetAudience, p.TargetSessionStatus))
}

// GetByID returns a broadcast.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.BroadcastMessage, error) {
	return scanMessage(r.pool.QueryRow(ctx, `SELECT `+messageColumns+` FROM broadcast_messages WHERE id = $1`, id))
}

// ResolveAudience returns the recipient user ids for a broadcast at this
// moment. An explicit target session status overrides the audience's default
// status set.
func (r *Repository) ResolveAudience(ctx context.Context, m *models.BroadcastMessage) ([]uuid.UUID, error) {
	var q string
	var args []interface{}

	if m.TargetSessionStatus != "" {
		q = `SELECT DISTINCT u.id FROM users u
			JOIN sessions s ON s.primary_speaker_id = u.id
			WHERE u.is_active AND s.status = $1`
		args = append(args, m.TargetSessionStatus)
	} else {
		switch m.TargetAudience {
		case models.AudienceAllSpeakers:
			q = `SELECT u.id FROM users u
				JOIN user_roles ur ON ur.user_id = u.id
				JOIN roles ro ON ro.id = ur.role_id
				WHERE u.is_active AND ro.name = 'speaker'`
		case models.AudienceSubmittedSpeakers:
			q = `SELECT DISTINCT u.id FROM users u
				JOIN sessions s ON s.primary_speaker_id = u.id
				WHERE u.is_active AND s.status IN ('submitted', 'under_review', 'approved', 'rejected', 'scheduled')`
		case models.AudienceApprovedSpeakers:
			q = `SELECT DISTINCT u.id FROM users u
				JOIN sessions s ON s.primary_speaker_id = u.id
				WHERE u.is_active AND s.status IN ('approved', 'scheduled')`
		default:
			return nil, errors.New("unknown target audience")
		}
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkSent snapshots the recipient set into delivery rows and stamps sent_at.
func (r *Repository) MarkSent(ctx context.Context, messageID uuid.UUID, recipients []uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, rid := range recipients {
		if _, err := tx.Exec(ctx, `INSERT INTO message_deliveries (message_id, recipient_id)
			VALUES ($1, $2) ON CONFLICT (message_id, recipient_id) DO NOTHING`, messageID, rid); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE broadcast_messages SET sent_at = now() WHERE id = $1`, messageID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// WithStats pairs a broadcast with its delivery stats.
type WithStats struct {
	Message models.BroadcastMessage `json:"message"`
	Stats   models.BroadcastStats   `json:"stats"`
}

// List returns broadcasts with delivery stats, newest first.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]WithStats, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `SELECT m.id, m.created_by, m.subject, m.message, m.message_type,
		m.target_audience, m.target_session_status, m.sent_at, m.created_at,
		count(d.id), count(d.id) FILTER (WHERE d.is_read)
		FROM broadcast_messages m
		LEFT JOIN message_deliveries d ON d.message_id = m.id
		GROUP BY m.id
		ORDER BY m.created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []WithStats
	for rows.Next() {
		var w WithStats
		if err := rows.Scan(&w.Message.ID, &w.Message.CreatedBy, &w.Message.Subject, &w.Message.Message,
			&w.Message.MessageType, &w.Message.TargetAudience, &w.Message.TargetSessionStatus,
			&w.Message.SentAt, &w.Message.CreatedAt,
			&w.Stats.Recipients, &w.Stats.Read); err != nil {
			return nil, err
		}
		if w.Stats.Recipients > 0 {
			w.Stats.ReadPercent = float64(w.Stats.Read) / float64(w.Stats.Recipients) * 100
		}
		list = append(list, w)
	}
	return list, rows.Err()
}

// ListForRecipient returns broadcasts delivered to a user, newest first.
func (r *Repository) ListForRecipient(ctx context.Context, userID uuid.UUID) ([]models.MessageDelivery, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, message_id, recipient_id, is_read, read_at, delivered_at
		FROM message_deliveries WHERE recipient_id = $1 ORDER BY delivered_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.MessageDelivery
	for rows.Next() {
		var d models.MessageDelivery
		if err := rows.Scan(&d.ID, &d.MessageID, &d.RecipientID, &d.IsRead, &d.ReadAt, &d.DeliveredAt); err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

// MarkRead marks the recipient's delivery read.
func (r *Repository) MarkRead(ctx context.Context, messageID, recipientID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE message_deliveries SET is_read = TRUE, read_at = now()
		WHERE message_id = $1 AND recipient_id = $2 AND NOT is_read`, messageID, recipientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM message_deliveries
			WHERE message_id = $1 AND recipient_id = $2)`, messageID, recipientID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}
