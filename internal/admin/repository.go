package admin

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cybercon/speaker-portal/internal/models"
)

var (
	// ErrNotFound is returned when the target row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when an invitation would duplicate an
	// account or a live invitation.
	ErrAlreadyExists = errors.New("already exists")
)

// Repository handles administrative persistence: user management, approver
// invitations, FAQs and system stats.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an admin repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UserFilter narrows the user listing.
type UserFilter struct {
	Role   string
	Search string
	Active *bool
	Limit  int
	Offset int
}

// ListUsers returns users matching the filter, newest first, with the total
// matching count for pagination.
func (r *Repository) ListUsers(ctx context.Context, f UserFilter) ([]models.User, int, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	where := ` WHERE TRUE`
	args := []interface{}{}
	n := 0
	next := func(v interface{}) string {
		args = append(args, v)
		n++
		return placeholder(n)
	}
	if f.Role != "" {
		where += ` AND EXISTS (SELECT 1 FROM user_roles ur JOIN roles ro ON ro.id = ur.role_id
			WHERE ur.user_id = u.id AND ro.name = ` + next(f.Role) + `)`
	}
	if f.Search != "" {
		p := next("%" + f.Search + "%")
		where += ` AND (u.email ILIKE ` + p + ` OR u.first_name ILIKE ` + p + ` OR u.last_name ILIKE ` + p + ` OR u.organization ILIKE ` + p + `)`
	}
	if f.Active != nil {
		where += ` AND u.is_active = ` + next(*f.Active)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users u`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT u.id, u.email, u.first_name, u.last_name, u.organization, u.phone, u.bio,
		u.is_active, u.mfa_enabled, u.last_login, u.created_at, u.updated_at,
		COALESCE(array_agg(ro.name) FILTER (WHERE ro.name IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		LEFT JOIN roles ro ON ro.id = ur.role_id` + where + `
		GROUP BY u.id
		ORDER BY u.created_at DESC LIMIT ` + next(f.Limit) + ` OFFSET ` + next(f.Offset)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Organization, &u.Phone, &u.Bio,
			&u.IsActive, &u.MFAEnabled, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt, &u.Roles); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

// SetRoles replaces the user's role set.
func (r *Repository) SetRoles(ctx context.Context, userID uuid.UUID, roles []string, assignedBy uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return err
	}
	for _, role := range roles {
		tag, err := tx.Exec(ctx, `INSERT INTO user_roles (user_id, role_id, assigned_by)
			SELECT $1, id, $3 FROM roles WHERE name = $2`, userID, role, assignedBy)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errors.New("unknown role " + role)
		}
	}
	return tx.Commit(ctx)
}

// SetActive activates or deactivates an account.
func (r *Repository) SetActive(ctx context.Context, userID uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1`, userID, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateInvitation records an approver invitation. It fails with
// ErrAlreadyExists when the email already has an account or an unexpired
// unused invitation.
func (r *Repository) CreateInvitation(ctx context.Context, email, token, roleName string, invitedBy uuid.UUID, expiresAt time.Time) (*models.ApproverInvitation, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var taken bool
	err = tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)
		OR EXISTS(SELECT 1 FROM approver_invitations WHERE email = $1 AND NOT is_used AND expires_at > now())`, email).
		Scan(&taken)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrAlreadyExists
	}

	var inv models.ApproverInvitation
	err = tx.QueryRow(ctx, `INSERT INTO approver_invitations (email, token, role_name, invited_by, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, email, token, role_name, invited_by, is_used, used_at, expires_at, created_at`,
		email, token, roleName, invitedBy, expiresAt).
		Scan(&inv.ID, &inv.Email, &inv.Token, &inv.RoleName, &inv.InvitedBy, &inv.IsUsed, &inv.UsedAt, &inv.ExpiresAt, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, tx.Commit(ctx)
}

// ListInvitations returns invitations, optionally filtered by state
// (valid, used or expired), newest first.
func (r *Repository) ListInvitations(ctx context.Context, state string) ([]models.ApproverInvitation, error) {
	q := `SELECT id, email, token, role_name, invited_by, is_used, used_at, expires_at, created_at
		FROM approver_invitations`
	switch state {
	case "valid":
		q += ` WHERE NOT is_used AND expires_at > now()`
	case "used":
		q += ` WHERE is_used`
	case "expired":
		q += ` WHERE NOT is_used AND expires_at <= now()`
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.ApproverInvitation
	for rows.Next() {
		var inv models.ApproverInvitation
		if err := rows.Scan(&inv.ID, &inv.Email, &inv.Token, &inv.RoleName, &inv.InvitedBy,
			&inv.IsUsed, &inv.UsedAt, &inv.ExpiresAt, &inv.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

const faqColumns = `id, category, question, answer, order_index, is_published, created_at, updated_at`

func scanFAQ(row pgx.Row) (*models.FAQ, error) {
	var f models.FAQ
	err := row.Scan(&f.ID, &f.Category, &f.Question, &f.Answer, &f.OrderIndex, &f.IsPublished, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// ListFAQs returns FAQs ordered by category then order index. Unpublished
// entries are only included when publishedOnly is false.
func (r *Repository) ListFAQs(ctx context.Context, category string, publishedOnly bool) ([]models.FAQ, error) {
	q := `SELECT ` + faqColumns + ` FROM faqs WHERE TRUE`
	args := []interface{}{}
	if publishedOnly {
		q += ` AND is_published`
	}
	if category != "" {
		args = append(args, category)
		q += ` AND category = $1`
	}
	q += ` ORDER BY category, order_index, created_at`
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.FAQ
	for rows.Next() {
		f, err := scanFAQ(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *f)
	}
	return list, rows.Err()
}

// CreateFAQ inserts an FAQ entry.
func (r *Repository) CreateFAQ(ctx context.Context, f *models.FAQ) (*models.FAQ, error) {
	if f.Category == "" {
		f.Category = "general"
	}
	return scanFAQ(r.pool.QueryRow(ctx, `INSERT INTO faqs (category, question, answer, order_index, is_published)
		VALUES ($1, $2, $3, $4, $5) RETURNING `+faqColumns,
		f.Category, f.Question, f.Answer, f.OrderIndex, f.IsPublished))
}

// UpdateFAQ rewrites an FAQ entry.
func (r *Repository) UpdateFAQ(ctx context.Context, id uuid.UUID, f *models.FAQ) (*models.FAQ, error) {
	return scanFAQ(r.pool.QueryRow(ctx, `UPDATE faqs SET category = $2, question = $3, answer = $4,
		order_index = $5, is_published = $6, updated_at = now()
		WHERE id = $1 RETURNING `+faqColumns,
		id, f.Category, f.Question, f.Answer, f.OrderIndex, f.IsPublished))
}

// DeleteFAQ removes an FAQ entry.
func (r *Repository) DeleteFAQ(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM faqs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ExportFile describes one session's current file for bulk export.
type ExportFile struct {
	SessionID    uuid.UUID `json:"session_id"`
	Title        string    `json:"title"`
	Status       string    `json:"status"`
	SpeakerEmail string    `json:"speaker_email"`
	FileID       uuid.UUID `json:"file_id"`
	Filename     string    `json:"filename"`
	StorageKey   string    `json:"-"`
	SizeBytes    int64     `json:"size_bytes"`
	Sha256       string    `json:"sha256"`
	Version      int       `json:"version"`
}

// CurrentFiles returns the current file of every session matching the
// optional status filter.
func (r *Repository) CurrentFiles(ctx context.Context, status string) ([]ExportFile, error) {
	q := `SELECT s.id, s.title, s.status, u.email, f.id, f.original_filename, f.storage_key,
		f.size_bytes, f.sha256, f.version
		FROM sessions s
		JOIN users u ON u.id = s.primary_speaker_id
		JOIN session_files f ON f.session_id = s.id AND f.is_current_version`
	args := []interface{}{}
	if status != "" {
		args = append(args, status)
		q += ` WHERE s.status = $1`
	}
	q += ` ORDER BY s.title`
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []ExportFile
	for rows.Next() {
		var e ExportFile
		if err := rows.Scan(&e.SessionID, &e.Title, &e.Status, &e.SpeakerEmail, &e.FileID,
			&e.Filename, &e.StorageKey, &e.SizeBytes, &e.Sha256, &e.Version); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// SystemStats aggregates portal-wide counters.
type SystemStats struct {
	TotalUsers        int            `json:"total_users"`
	ActiveUsers       int            `json:"active_users"`
	SessionsByStatus  map[string]int `json:"sessions_by_status"`
	TotalFiles        int            `json:"total_files"`
	TotalFileBytes    int64          `json:"total_file_bytes"`
	OpenQuestions     int            `json:"open_questions"`
	NewUsersLast7d    int            `json:"new_users_last_7d"`
	NewSessionsLast7d int            `json:"new_sessions_last_7d"`
	UploadsLast7d     int            `json:"uploads_last_7d"`
}

// Stats computes the system stats snapshot.
func (r *Repository) Stats(ctx context.Context) (*SystemStats, error) {
	stats := &SystemStats{SessionsByStatus: map[string]int{}}

	err := r.pool.QueryRow(ctx, `SELECT
		(SELECT count(*) FROM users),
		(SELECT count(*) FROM users WHERE is_active),
		(SELECT count(*) FROM session_files),
		(SELECT COALESCE(sum(size_bytes), 0) FROM session_files),
		(SELECT count(*) FROM session_questions WHERE status = 'open'),
		(SELECT count(*) FROM users WHERE created_at > now() - interval '7 days'),
		(SELECT count(*) FROM sessions WHERE created_at > now() - interval '7 days'),
		(SELECT count(*) FROM session_files WHERE uploaded_at > now() - interval '7 days')`).
		Scan(&stats.TotalUsers, &stats.ActiveUsers, &stats.TotalFiles, &stats.TotalFileBytes,
			&stats.OpenQuestions, &stats.NewUsersLast7d, &stats.NewSessionsLast7d, &stats.UploadsLast7d)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT status, count(*) FROM sessions GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.SessionsByStatus[status] = count
	}
	return stats, rows.Err()
}
