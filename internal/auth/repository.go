package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cybercon/speaker-portal/internal/models"
)

// ErrNotFound is returned when a user or invitation does not exist.
var ErrNotFound = errors.New("not found")

// Repository handles user, role and invitation persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, password_hash, first_name, last_name,
	organization, phone, bio, is_active, mfa_enabled, mfa_secret, last_login, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.Organization, &u.Phone, &u.Bio, &u.IsActive, &u.MFAEnabled, &u.MFASecret,
		&u.LastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByID returns a user with roles loaded.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	u.Roles, err = r.rolesFor(ctx, u.ID)
	return u, err
}

// GetByEmail returns a user with roles loaded.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return nil, err
	}
	u.Roles, err = r.rolesFor(ctx, u.ID)
	return u, err
}

func (r *Repository) rolesFor(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT r.name FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id WHERE ur.user_id = $1 ORDER BY r.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		roles = append(roles, name)
	}
	return roles, rows.Err()
}

// CreateUserParams holds registration fields.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Organization string
	Phone        string
	Bio          string
}

// Create inserts a new user and grants the named role.
func (r *Repository) Create(ctx context.Context, p CreateUserParams, roleName string) (*models.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	u, err := scanUser(tx.QueryRow(ctx, `INSERT INTO users (email, password_hash, first_name, last_name, organization, phone, bio)
		VALUES (lower($1), $2, $3, $4, $5, $6, $7)
		RETURNING `+userColumns,
		p.Email, p.PasswordHash, p.FirstName, p.LastName, p.Organization, p.Phone, p.Bio))
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO user_roles (user_id, role_id)
		SELECT $1, id FROM roles WHERE name = $2`, u.ID, roleName); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	u.Roles = []string{roleName}
	return u, nil
}

// UpdateProfile updates mutable profile fields.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, firstName, lastName, organization, phone, bio string) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `UPDATE users SET
		first_name = $2, last_name = $3, organization = $4, phone = $5, bio = $6, updated_at = now()
		WHERE id = $1 RETURNING `+userColumns,
		id, firstName, lastName, organization, phone, bio))
	if err != nil {
		return nil, err
	}
	u.Roles, err = r.rolesFor(ctx, u.ID)
	return u, err
}

// UpdatePassword replaces the password hash.
func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
	return err
}

// RecordLogin stamps last_login.
func (r *Repository) RecordLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login = now() WHERE id = $1`, id)
	return err
}

// SetMFASecret stores a pending TOTP secret (not yet enabled).
func (r *Repository) SetMFASecret(ctx context.Context, id uuid.UUID, secret string) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET mfa_secret = $2, updated_at = now() WHERE id = $1`, id, secret)
	return err
}

// SetMFAEnabled flips MFA on or off; disabling clears the secret.
func (r *Repository) SetMFAEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	if enabled {
		_, err := r.pool.Exec(ctx, `UPDATE users SET mfa_enabled = TRUE, updated_at = now() WHERE id = $1`, id)
		return err
	}
	_, err := r.pool.Exec(ctx, `UPDATE users SET mfa_enabled = FALSE, mfa_secret = '', updated_at = now() WHERE id = $1`, id)
	return err
}

// GetInvitationByToken returns an invitation by its token.
func (r *Repository) GetInvitationByToken(ctx context.Context, token string) (*models.ApproverInvitation, error) {
	var inv models.ApproverInvitation
	err := r.pool.QueryRow(ctx, `SELECT id, email, token, role_name, invited_by, is_used, used_at, expires_at, created_at
		FROM approver_invitations WHERE token = $1`, token).
		Scan(&inv.ID, &inv.Email, &inv.Token, &inv.RoleName, &inv.InvitedBy, &inv.IsUsed, &inv.UsedAt, &inv.ExpiresAt, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// MarkInvitationUsed stamps the invitation as redeemed.
func (r *Repository) MarkInvitationUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE approver_invitations SET is_used = TRUE, used_at = $2 WHERE id = $1`, id, at)
	return err
}
