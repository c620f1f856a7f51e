package questions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cybercon/speaker-portal/internal/models"
)

// ErrNotFound is returned when a question does not exist.
var ErrNotFound = errors.New("question not found")

// Repository handles question and response persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a questions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const questionColumns = `id, session_id, asked_by, subject, question, is_urgent, status, answered_at, created_at`

func scanQuestion(row pgx.Row) (*models.SessionQuestion, error) {
	var q models.SessionQuestion
	err := row.Scan(&q.ID, &q.SessionID, &q.AskedBy, &q.Subject, &q.Question, &q.IsUrgent, &q.Status, &q.AnsweredAt, &q.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

// Create inserts an open question.
func (r *Repository) Create(ctx context.Context, sessionID, askedBy uuid.UUID, subject, question string, urgent bool) (*models.SessionQuestion, error) {
	return scanQuestion(r.pool.QueryRow(ctx, `INSERT INTO session_questions
		(session_id, asked_by, subject, question, is_urgent)
		VALUES ($1, $2, $3, $4, $5) RETURNING `+questionColumns,
		sessionID, askedBy, subject, question, urgent))
}

// GetByID returns a question.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.SessionQuestion, error) {
	return scanQuestion(r.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM session_questions WHERE id = $1`, id))
}

// ListForSession returns a session's questions, newest first.
func (r *Repository) ListForSession(ctx context.Context, sessionID uuid.UUID) ([]models.SessionQuestion, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+questionColumns+` FROM session_questions
		WHERE session_id = $1 ORDER BY created_at DESC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// OpenQueue returns open questions, urgent first then newest first. When
// approverID is non-nil the queue is limited to sessions the approver is
// actively assigned to.
func (r *Repository) OpenQueue(ctx context.Context, approverID *uuid.UUID, limit, offset int) ([]models.SessionQuestion, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	q := `SELECT ` + questionColumns + ` FROM session_questions q WHERE q.status = 'open'`
	args := []interface{}{}
	if approverID != nil {
		args = append(args, *approverID)
		q += ` AND EXISTS (SELECT 1 FROM session_assignments a
			WHERE a.session_id = q.session_id AND a.approver_id = $1 AND a.status = 'active')
			ORDER BY q.is_urgent DESC, q.created_at DESC LIMIT $2 OFFSET $3`
	} else {
		q += ` ORDER BY q.is_urgent DESC, q.created_at DESC LIMIT $1 OFFSET $2`
	}
	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows pgx.Rows) ([]models.SessionQuestion, error) {
	var list []models.SessionQuestion
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *q)
	}
	return list, rows.Err()
}

// Respond appends a response. The first non-internal response moves the
// question from open to answered and stamps answered_at; internal responses
// leave the status untouched.
func (r *Repository) Respond(ctx context.Context, questionID, responderID uuid.UUID, text string, internal bool) (*models.QuestionResponse, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var resp models.QuestionResponse
	err = tx.QueryRow(ctx, `INSERT INTO session_question_responses (question_id, responder_id, response, is_internal)
		VALUES ($1, $2, $3, $4) RETURNING id, question_id, responder_id, response, is_internal, created_at`,
		questionID, responderID, text, internal).
		Scan(&resp.ID, &resp.QuestionID, &resp.ResponderID, &resp.Response, &resp.IsInternal, &resp.CreatedAt)
	if err != nil {
		return nil, err
	}
	if !internal {
		if _, err := tx.Exec(ctx, `UPDATE session_questions SET status = 'answered', answered_at = now()
			WHERE id = $1 AND status = 'open'`, questionID); err != nil {
			return nil, err
		}
	}
	return &resp, tx.Commit(ctx)
}

// ListResponses returns a question's responses, oldest first. Internal
// responses are filtered out for non-staff callers.
func (r *Repository) ListResponses(ctx context.Context, questionID uuid.UUID, includeInternal bool) ([]models.QuestionResponse, error) {
	q := `SELECT id, question_id, responder_id, response, is_internal, created_at
		FROM session_question_responses WHERE question_id = $1`
	if !includeInternal {
		q += ` AND NOT is_internal`
	}
	q += ` ORDER BY created_at`
	rows, err := r.pool.Query(ctx, q, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.QuestionResponse
	for rows.Next() {
		var resp models.QuestionResponse
		if err := rows.Scan(&resp.ID, &resp.QuestionID, &resp.ResponderID, &resp.Response, &resp.IsInternal, &resp.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, resp)
	}
	return list, rows.Err()
}

// Close sets a question's status to closed.
func (r *Repository) Close(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE session_questions SET status = 'closed' WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
