package files

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cybercon/speaker-portal/internal/models"
)

// ErrNotFound is returned when a file record does not exist.
var ErrNotFound = errors.New("file not found")

// Repository handles session file persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a files repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const fileColumns = `id, session_id, uploaded_by, original_filename, storage_key,
	content_type, size_bytes, sha256, version, is_current_version, uploaded_at`

func scanFile(row pgx.Row) (*models.SessionFile, error) {
	var f models.SessionFile
	err := row.Scan(&f.ID, &f.SessionID, &f.UploadedBy, &f.OriginalFilename, &f.StorageKey,
		&f.ContentType, &f.SizeBytes, &f.SHA256, &f.Version, &f.IsCurrentVersion, &f.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// CreateVersionParams describes a stored upload awaiting its version row.
type CreateVersionParams struct {
	ID               uuid.UUID
	SessionID        uuid.UUID
	UploadedBy       uuid.UUID
	OriginalFilename string
	StorageKey       string
	ContentType      string
	SizeBytes        int64
	SHA256           string
}

// CreateVersion assigns the next version number and makes the new row the
// current one. The session row is locked for the duration so concurrent
// uploads serialize; the partial unique index on (session_id) where
// is_current_version backs the same guarantee at the storage level.
func (r *Repository) CreateVersion(ctx context.Context, p CreateVersionParams) (*models.SessionFile, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var sessionID uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM sessions WHERE id = $1 FOR UPDATE`, p.SessionID).Scan(&sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if _, err := tx.Exec(ctx, `UPDATE session_files SET is_current_version = FALSE
		WHERE session_id = $1 AND is_current_version`, p.SessionID); err != nil {
		return nil, err
	}

	f, err := scanFile(tx.QueryRow(ctx, `INSERT INTO session_files
		(id, session_id, uploaded_by, original_filename, storage_key, content_type, size_bytes, sha256, version, is_current_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8,
			(SELECT COALESCE(max(version), 0) + 1 FROM session_files WHERE session_id = $2),
			TRUE)
		RETURNING `+fileColumns,
		p.ID, p.SessionID, p.UploadedBy, p.OriginalFilename, p.StorageKey, p.ContentType, p.SizeBytes, p.SHA256))
	if err != nil {
		return nil, err
	}
	return f, tx.Commit(ctx)
}

// GetByID returns a file record.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.SessionFile, error) {
	return scanFile(r.pool.QueryRow(ctx, `SELECT `+fileColumns+` FROM session_files WHERE id = $1`, id))
}

// GetCurrent returns the current version for a session.
func (r *Repository) GetCurrent(ctx context.Context, sessionID uuid.UUID) (*models.SessionFile, error) {
	return scanFile(r.pool.QueryRow(ctx, `SELECT `+fileColumns+` FROM session_files
		WHERE session_id = $1 AND is_current_version`, sessionID))
}

// ListVersions returns all versions for a session, newest first.
func (r *Repository) ListVersions(ctx context.Context, sessionID uuid.UUID) ([]models.SessionFile, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+fileColumns+` FROM session_files
		WHERE session_id = $1 ORDER BY version DESC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.SessionFile
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *f)
	}
	return list, rows.Err()
}

// Delete removes a file record and returns it so the caller can remove the
// stored object. Deleting the current version promotes the latest remaining
// version, keeping the one-current invariant.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (*models.SessionFile, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	f, err := scanFile(tx.QueryRow(ctx, `DELETE FROM session_files WHERE id = $1 RETURNING `+fileColumns, id))
	if err != nil {
		return nil, err
	}
	if f.IsCurrentVersion {
		if _, err := tx.Exec(ctx, `UPDATE session_files SET is_current_version = TRUE
			WHERE id = (SELECT id FROM session_files WHERE session_id = $1 ORDER BY version DESC LIMIT 1)`, f.SessionID); err != nil {
			return nil, err
		}
	}
	return f, tx.Commit(ctx)
}
