package reviews

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cybercon/speaker-portal/internal/models"
)

var (
	// ErrNotFound is returned when an assignment or review does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateAssignment is returned when an active assignment already
	// links the approver to the session.
	ErrDuplicateAssignment = errors.New("active assignment already exists")
)

// Repository handles assignment, review and comment persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a reviews repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ApproverHoldsRole reports whether the user holds a manager or admin role.
func (r *Repository) ApproverHoldsRole(ctx context.Context, userID uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM user_roles ur JOIN roles ro ON ro.id = ur.role_id
		WHERE ur.user_id = $1 AND ro.name IN ('manager', 'admin'))`, userID).Scan(&ok)
	return ok, err
}

const assignmentColumns = `id, session_id, approver_id, assigned_by, status, assigned_at, completed_at`

func scanAssignment(row pgx.Row) (*models.SessionAssignment, error) {
	var a models.SessionAssignment
	err := row.Scan(&a.ID, &a.SessionID, &a.ApproverID, &a.AssignedBy, &a.Status, &a.AssignedAt, &a.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Assign links an approver to a session. Fails with ErrDuplicateAssignment
// when an active assignment for the pair already exists.
func (r *Repository) Assign(ctx context.Context, sessionID, approverID, assignedBy uuid.UUID) (*models.SessionAssignment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM session_assignments
		WHERE session_id = $1 AND approver_id = $2 AND status = 'active')`, sessionID, approverID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateAssignment
	}

	a, err := scanAssignment(tx.QueryRow(ctx, `INSERT INTO session_assignments (session_id, approver_id, assigned_by)
		VALUES ($1, $2, $3) RETURNING `+assignmentColumns, sessionID, approverID, assignedBy))
	if err != nil {
		return nil, err
	}
	return a, tx.Commit(ctx)
}

// Cancel sets an assignment's status to cancelled.
func (r *Repository) Cancel(ctx context.Context, assignmentID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE session_assignments SET status = 'cancelled'
		WHERE id = $1 AND status = 'active'`, assignmentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListForSession returns all assignments on a session.
func (r *Repository) ListForSession(ctx context.Context, sessionID uuid.UUID) ([]models.SessionAssignment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+assignmentColumns+` FROM session_assignments
		WHERE session_id = $1 ORDER BY assigned_at DESC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.SessionAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

// HasActiveAssignment reports whether the approver is actively assigned.
func (r *Repository) HasActiveAssignment(ctx context.Context, sessionID, approverID uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM session_assignments
		WHERE session_id = $1 AND approver_id = $2 AND status = 'active')`, sessionID, approverID).Scan(&ok)
	return ok, err
}

const reviewColumns = `id, session_id, reviewer_id, status, decision, score,
	internal_comments, speaker_feedback, started_at, completed_at`

func scanReview(row pgx.Row) (*models.SessionReview, error) {
	var v models.SessionReview
	err := row.Scan(&v.ID, &v.SessionID, &v.ReviewerID, &v.Status, &v.Decision, &v.Score,
		&v.InternalComments, &v.SpeakerFeedback, &v.StartedAt, &v.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// SaveParams carries review content for upsert or completion.
type SaveParams struct {
	SessionID        uuid.UUID
	ReviewerID       uuid.UUID
	Decision         string
	Score            *int
	InternalComments string
	SpeakerFeedback  string
}

// Save upserts the reviewer's in-progress review for the session.
func (r *Repository) Save(ctx context.Context, p SaveParams) (*models.SessionReview, error) {
	return scanReview(r.pool.QueryRow(ctx, `INSERT INTO session_reviews
		(session_id, reviewer_id, decision, score, internal_comments, speaker_feedback)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, reviewer_id) DO UPDATE SET
			decision = EXCLUDED.decision,
			score = EXCLUDED.score,
			internal_comments = EXCLUDED.internal_comments,
			speaker_feedback = EXCLUDED.speaker_feedback
		RETURNING `+reviewColumns,
		p.SessionID, p.ReviewerID, p.Decision, p.Score, p.InternalComments, p.SpeakerFeedback))
}

// Complete upserts the review with its final content, marks it completed, and
// completes the reviewer's active assignment in the same transaction.
func (r *Repository) Complete(ctx context.Context, p SaveParams) (*models.SessionReview, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	v, err := scanReview(tx.QueryRow(ctx, `INSERT INTO session_reviews
		(session_id, reviewer_id, status, decision, score, internal_comments, speaker_feedback, completed_at)
		VALUES ($1, $2, 'completed', $3, $4, $5, $6, now())
		ON CONFLICT (session_id, reviewer_id) DO UPDATE SET
			status = 'completed',
			decision = EXCLUDED.decision,
			score = EXCLUDED.score,
			internal_comments = EXCLUDED.internal_comments,
			speaker_feedback = EXCLUDED.speaker_feedback,
			completed_at = now()
		RETURNING `+reviewColumns,
		p.SessionID, p.ReviewerID, p.Decision, p.Score, p.InternalComments, p.SpeakerFeedback))
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE session_assignments SET status = 'completed', completed_at = now()
		WHERE session_id = $1 AND approver_id = $2 AND status = 'active'`, p.SessionID, p.ReviewerID); err != nil {
		return nil, err
	}
	return v, tx.Commit(ctx)
}

// GetForReviewer returns the reviewer's review of a session.
func (r *Repository) GetForReviewer(ctx context.Context, sessionID, reviewerID uuid.UUID) (*models.SessionReview, error) {
	return scanReview(r.pool.QueryRow(ctx, `SELECT `+reviewColumns+` FROM session_reviews
		WHERE session_id = $1 AND reviewer_id = $2`, sessionID, reviewerID))
}

// ListForSession returns all reviews on a session.
func (r *Repository) ListReviews(ctx context.Context, sessionID uuid.UUID) ([]models.SessionReview, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+reviewColumns+` FROM session_reviews
		WHERE session_id = $1 ORDER BY started_at`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.SessionReview
	for rows.Next() {
		v, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *v)
	}
	return list, rows.Err()
}

// GetReview returns a review by id.
func (r *Repository) GetReview(ctx context.Context, id uuid.UUID) (*models.SessionReview, error) {
	return scanReview(r.pool.QueryRow(ctx, `SELECT `+reviewColumns+` FROM session_reviews WHERE id = $1`, id))
}

// AddComment appends a comment to a review thread.
func (r *Repository) AddComment(ctx context.Context, reviewID, authorID uuid.UUID, comment string, isInternal bool) (*models.ReviewComment, error) {
	var cm models.ReviewComment
	err := r.pool.QueryRow(ctx, `INSERT INTO session_review_comments (review_id, author_id, comment, is_internal)
		VALUES ($1, $2, $3, $4) RETURNING id, review_id, author_id, comment, is_internal, created_at`,
		reviewID, authorID, comment, isInternal).
		Scan(&cm.ID, &cm.ReviewID, &cm.AuthorID, &cm.Comment, &cm.IsInternal, &cm.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &cm, nil
}

// ListComments returns a review's comments, oldest first.
func (r *Repository) ListComments(ctx context.Context, reviewID uuid.UUID) ([]models.ReviewComment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, review_id, author_id, comment, is_internal, created_at
		FROM session_review_comments WHERE review_id = $1 ORDER BY created_at`, reviewID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.ReviewComment
	for rows.Next() {
		var cm models.ReviewComment
		if err := rows.Scan(&cm.ID, &cm.ReviewID, &cm.AuthorID, &cm.Comment, &cm.IsInternal, &cm.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, cm)
	}
	return list, rows.Err()
}

// DashboardStats aggregates the approver workload view.
type DashboardStats struct {
	SessionsByStatus map[string]int `json:"sessions_by_status"`
	OpenQuestions    int            `json:"open_questions"`
	UrgentQuestions  int            `json:"urgent_questions"`
}

// Dashboard returns per-status session counts and open question counts.
// When approverID is non-nil the counts are scoped to that approver's
// active assignments; admins pass nil for a global view.
func (r *Repository) Dashboard(ctx context.Context, approverID *uuid.UUID) (*DashboardStats, error) {
	stats := &DashboardStats{SessionsByStatus: make(map[string]int)}

	scope := ``
	args := []interface{}{}
	if approverID != nil {
		scope = ` WHERE EXISTS (SELECT 1 FROM session_assignments a
			WHERE a.session_id = s.id AND a.approver_id = $1 AND a.status = 'active')`
		args = append(args, *approverID)
	}

	rows, err := r.pool.Query(ctx, `SELECT s.status, count(*) FROM sessions s`+scope+` GROUP BY s.status`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		stats.SessionsByStatus[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	qScope := ``
	if approverID != nil {
		qScope = ` AND EXISTS (SELECT 1 FROM session_assignments a
			WHERE a.session_id = q.session_id AND a.approver_id = $1 AND a.status = 'active')`
	}
	err = r.pool.QueryRow(ctx, `SELECT
		count(*) FILTER (WHERE q.status = 'open'),
		count(*) FILTER (WHERE q.status = 'open' AND q.is_urgent)
		FROM session_questions q WHERE 1=1`+qScope, args...).
		Scan(&stats.OpenQuestions, &stats.UrgentQuestions)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
