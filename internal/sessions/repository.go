package sessions

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cybercon/speaker-portal/internal/models"
)

var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("session not found")
	// ErrNotSubmittable is returned when submit preconditions fail.
	ErrNotSubmittable = errors.New("session cannot be submitted")
)

// Repository handles session persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a sessions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const sessionColumns = `id, title, description, abstract, session_type_id,
	primary_speaker_id, status, submitted_at, created_at, updated_at`

func scanSession(row pgx.Row) (*models.Session, error) {
	var s models.Session
	err := row.Scan(&s.ID, &s.Title, &s.Description, &s.Abstract, &s.SessionTypeID,
		&s.PrimarySpeakerID, &s.Status, &s.SubmittedAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// GetByID returns a session with its additional speakers loaded.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	s, err := scanSession(r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	s.Speakers, err = r.speakersFor(ctx, s.ID)
	return s, err
}

func (r *Repository) speakersFor(ctx context.Context, sessionID uuid.UUID) ([]models.SessionSpeaker, error) {
	rows, err := r.pool.Query(ctx, `SELECT ss.session_id, ss.user_id, u.email,
		u.first_name || ' ' || u.last_name, ss.role_label, ss.added_at
		FROM session_speakers ss JOIN users u ON u.id = ss.user_id
		WHERE ss.session_id = $1 ORDER BY ss.added_at`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var speakers []models.SessionSpeaker
	for rows.Next() {
		var sp models.SessionSpeaker
		if err := rows.Scan(&sp.SessionID, &sp.UserID, &sp.Email, &sp.Name, &sp.RoleLabel, &sp.AddedAt); err != nil {
			return nil, err
		}
		speakers = append(speakers, sp)
	}
	return speakers, rows.Err()
}

// CreateParams describes a new session draft.
type CreateParams struct {
	Title            string
	Description      string
	Abstract         string
	SessionTypeID    *uuid.UUID
	PrimarySpeakerID uuid.UUID
}

// Create inserts a draft session.
func (r *Repository) Create(ctx context.Context, p CreateParams) (*models.Session, error) {
	return scanSession(r.pool.QueryRow(ctx, `INSERT INTO sessions
		(title, description, abstract, session_type_id, primary_speaker_id)
		VALUES ($1, $2, $3, $4, $5) RETURNING `+sessionColumns,
		p.Title, p.Description, p.Abstract, p.SessionTypeID, p.PrimarySpeakerID))
}

// Update modifies the editable fields.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, title, description, abstract string, sessionTypeID *uuid.UUID) (*models.Session, error) {
	s, err := scanSession(r.pool.QueryRow(ctx, `UPDATE sessions SET
		title = $2, description = $3, abstract = $4, session_type_id = $5, updated_at = now()
		WHERE id = $1 RETURNING `+sessionColumns,
		id, title, description, abstract, sessionTypeID))
	if err != nil {
		return nil, err
	}
	s.Speakers, err = r.speakersFor(ctx, s.ID)
	return s, err
}

// SetSpeakers replaces the additional-speaker set. Speakers are resolved by
// email; unknown emails are reported back to the caller.
func (r *Repository) SetSpeakers(ctx context.Context, sessionID uuid.UUID, speakers []SpeakerInput) (missing []string, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM session_speakers WHERE session_id = $1`, sessionID); err != nil {
		return nil, err
	}
	for _, sp := range speakers {
		label := sp.RoleLabel
		if label == "" {
			label = "co-speaker"
		}
		tag, err := tx.Exec(ctx, `INSERT INTO session_speakers (session_id, user_id, role_label)
			SELECT $1, id, $3 FROM users WHERE lower(email) = lower($2)
			ON CONFLICT (session_id, user_id) DO NOTHING`, sessionID, sp.Email, label)
		if err != nil {
			return nil, err
		}
		if tag.RowsAffected() == 0 {
			missing = append(missing, sp.Email)
		}
	}
	return missing, tx.Commit(ctx)
}

// SpeakerInput is one additional speaker given by email.
type SpeakerInput struct {
	Email     string `json:"email" binding:"required,email"`
	RoleLabel string `json:"role_label"`
}

// Delete removes a draft session.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Submit moves a draft to submitted. Requires title, description and a
// current file; enforced in SQL so the check and the transition are atomic.
func (r *Repository) Submit(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	s, err := scanSession(r.pool.QueryRow(ctx, `UPDATE sessions SET
		status = 'submitted', submitted_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'draft'
		AND title <> '' AND description <> ''
		AND EXISTS (SELECT 1 FROM session_files WHERE session_id = $1 AND is_current_version)
		RETURNING `+sessionColumns, id))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotSubmittable
		}
		return nil, err
	}
	s.Speakers, err = r.speakersFor(ctx, s.ID)
	return s, err
}

// Resubmit forces the session back to submitted from any state and retires
// every existing file version so the next upload starts a fresh current file.
func (r *Repository) Resubmit(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	s, err := scanSession(tx.QueryRow(ctx, `UPDATE sessions SET
		status = 'submitted', submitted_at = now(), updated_at = now()
		WHERE id = $1 RETURNING `+sessionColumns, id))
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE session_files SET is_current_version = FALSE WHERE session_id = $1`, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.Speakers, err = r.speakersFor(ctx, s.ID)
	return s, err
}

// SetStatus updates the lifecycle status.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status models.SessionStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE sessions SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListFilter scopes and pages session listings.
type ListFilter struct {
	Status string
	Limit  int
	Offset int

	// Exactly one of the scopes below is set by the handler.
	SpeakerID  *uuid.UUID // own sessions (speaker scope)
	ApproverID *uuid.UUID // assigned ∪ non-draft (manager scope)
	All        bool       // admin scope
}

// List returns sessions for the caller's scope, newest first, plus the total
// count for pagination.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]models.Session, int, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}

	where := `WHERE 1=1`
	args := []interface{}{}
	n := 0
	arg := func(v interface{}) string {
		n++
		args = append(args, v)
		return "$" + strconv.Itoa(n)
	}

	switch {
	case f.All:
	case f.ApproverID != nil:
		where += ` AND (s.status <> 'draft' OR EXISTS (
			SELECT 1 FROM session_assignments a
			WHERE a.session_id = s.id AND a.approver_id = ` + arg(*f.ApproverID) + ` AND a.status = 'active'))`
	case f.SpeakerID != nil:
		where += ` AND (s.primary_speaker_id = ` + arg(*f.SpeakerID) + ` OR EXISTS (
			SELECT 1 FROM session_speakers ss WHERE ss.session_id = s.id AND ss.user_id = ` + arg(*f.SpeakerID) + `))`
	default:
		return nil, 0, errors.New("list scope not set")
	}
	if f.Status != "" {
		where += ` AND s.status = ` + arg(f.Status)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM sessions s `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT s.id, s.title, s.description, s.abstract, s.session_type_id,
		s.primary_speaker_id, s.status, s.submitted_at, s.created_at, s.updated_at
		FROM sessions s ` + where + ` ORDER BY s.created_at DESC LIMIT ` + arg(f.Limit) + ` OFFSET ` + arg(f.Offset)
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *s)
	}
	return list, total, rows.Err()
}

// ReviewSummary aggregates completed reviews for the session detail view.
func (r *Repository) ReviewSummary(ctx context.Context, sessionID uuid.UUID) (*models.ReviewSummary, error) {
	var sum models.ReviewSummary
	err := r.pool.QueryRow(ctx, `SELECT
		count(*),
		count(*) FILTER (WHERE status = 'completed'),
		count(*) FILTER (WHERE status = 'completed' AND decision = 'approve'),
		count(*) FILTER (WHERE status = 'completed' AND decision = 'reject'),
		COALESCE(avg(score) FILTER (WHERE status = 'completed' AND score IS NOT NULL), 0)
		FROM session_reviews WHERE session_id = $1`, sessionID).
		Scan(&sum.Total, &sum.Completed, &sum.Approvals, &sum.Rejections, &sum.AverageScore)
	if err != nil {
		return nil, err
	}
	sum.Recommendation = Recommendation(sum.Approvals, sum.Rejections)
	return &sum, nil
}

// Recommendation is the majority call over completed review decisions.
func Recommendation(approvals, rejections int) string {
	switch {
	case approvals == 0 && rejections == 0:
		return "pending"
	case approvals > rejections:
		return "approve"
	case rejections > approvals:
		return "reject"
	default:
		return "split"
	}
}

// ListTypes returns active session types.
func (r *Repository) ListTypes(ctx context.Context) ([]models.SessionType, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, duration_minutes, is_active
		FROM session_types WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.SessionType
	for rows.Next() {
		var t models.SessionType
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.DurationMinutes, &t.IsActive); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}
