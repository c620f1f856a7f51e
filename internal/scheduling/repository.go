package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cybercon/speaker-portal/internal/models"
)

var (
	// ErrNotFound is returned when a room or schedule does not exist.
	ErrNotFound = errors.New("not found")
)

// ConflictError reports a room/day/time collision with an existing schedule.
type ConflictError struct {
	SessionID uuid.UUID
}

func (e *ConflictError) Error() string {
	return "time slot conflicts with session " + e.SessionID.String()
}

// Repository handles room and schedule persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a scheduling repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateRoom inserts a room.
func (r *Repository) CreateRoom(ctx context.Context, name string, capacity int, location string, features json.RawMessage) (*models.Room, error) {
	if len(features) == 0 {
		features = json.RawMessage(`{}`)
	}
	var room models.Room
	err := r.pool.QueryRow(ctx, `INSERT INTO rooms (name, capacity, location, features)
		VALUES ($1, $2, $3, $4) RETURNING id, name, capacity, location, features, is_active`,
		name, capacity, location, features).
		Scan(&room.ID, &room.Name, &room.Capacity, &room.Location, &room.Features, &room.IsActive)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// ListRooms returns active rooms.
func (r *Repository) ListRooms(ctx context.Context) ([]models.Room, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, capacity, location, features, is_active
		FROM rooms WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Room
	for rows.Next() {
		var room models.Room
		if err := rows.Scan(&room.ID, &room.Name, &room.Capacity, &room.Location, &room.Features, &room.IsActive); err != nil {
			return nil, err
		}
		list = append(list, room)
	}
	return list, rows.Err()
}

// GetRoom returns a room by id.
func (r *Repository) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	var room models.Room
	err := r.pool.QueryRow(ctx, `SELECT id, name, capacity, location, features, is_active FROM rooms WHERE id = $1`, id).
		Scan(&room.ID, &room.Name, &room.Capacity, &room.Location, &room.Features, &room.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &room, nil
}

const scheduleColumns = `id, session_id, room_id, day,
	to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'),
	status, scheduled_by, created_at, updated_at`

func scanSchedule(row pgx.Row) (*models.SessionSchedule, error) {
	var s models.SessionSchedule
	err := row.Scan(&s.ID, &s.SessionID, &s.RoomID, &s.Day, &s.StartTime, &s.EndTime,
		&s.Status, &s.ScheduledBy, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// PlaceParams describes a scheduling attempt.
type PlaceParams struct {
	SessionID   uuid.UUID
	RoomID      uuid.UUID
	Day         time.Time
	StartTime   string // "HH:MM"
	EndTime     string // "HH:MM"
	ScheduledBy uuid.UUID
}

// Place creates or replaces the session's schedule row. The room row is
// locked while checking for conflicts so two placements for the same room
// serialize. A tentative or confirmed row in the same room and day whose
// range intersects the candidate fails with ConflictError carrying the
// conflicting session id.
func (r *Repository) Place(ctx context.Context, p PlaceParams) (*models.SessionSchedule, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var roomID uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM rooms WHERE id = $1 AND is_active FOR UPDATE`, p.RoomID).Scan(&roomID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var conflicting uuid.UUID
	err = tx.QueryRow(ctx, `SELECT session_id FROM session_schedules
		WHERE room_id = $1 AND day = $2 AND session_id <> $3
		AND status IN ('tentative', 'confirmed')
		AND start_time < $5::time AND end_time > $4::time
		LIMIT 1`,
		p.RoomID, p.Day, p.SessionID, p.StartTime, p.EndTime).Scan(&conflicting)
	if err == nil {
		return nil, &ConflictError{SessionID: conflicting}
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	s, err := scanSchedule(tx.QueryRow(ctx, `INSERT INTO session_schedules
		(session_id, room_id, day, start_time, end_time, scheduled_by)
		VALUES ($1, $2, $3, $4::time, $5::time, $6)
		ON CONFLICT (session_id) DO UPDATE SET
			room_id = EXCLUDED.room_id,
			day = EXCLUDED.day,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			status = 'tentative',
			scheduled_by = EXCLUDED.scheduled_by,
			updated_at = now()
		RETURNING `+scheduleColumns,
		p.SessionID, p.RoomID, p.Day, p.StartTime, p.EndTime, p.ScheduledBy))
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE sessions SET status = 'scheduled', updated_at = now() WHERE id = $1`, p.SessionID); err != nil {
		return nil, err
	}
	return s, tx.Commit(ctx)
}

// SpeakerWarning flags a speaker double-booked across overlapping slots.
type SpeakerWarning struct {
	SpeakerID      uuid.UUID `json:"speaker_id"`
	OtherSessionID uuid.UUID `json:"other_session_id"`
}

// SpeakerConflicts returns advisory warnings: speakers of the given session
// who are also on another session scheduled at an overlapping time that day,
// in any room. These never block placement.
func (r *Repository) SpeakerConflicts(ctx context.Context, p PlaceParams) ([]SpeakerWarning, error) {
	rows, err := r.pool.Query(ctx, `
		WITH mine AS (
			SELECT primary_speaker_id AS user_id FROM sessions WHERE id = $1
			UNION
			SELECT user_id FROM session_speakers WHERE session_id = $1
		)
		SELECT DISTINCT m.user_id, sc.session_id
		FROM session_schedules sc
		JOIN sessions s ON s.id = sc.session_id
		JOIN mine m ON m.user_id = s.primary_speaker_id
			OR EXISTS (SELECT 1 FROM session_speakers ss WHERE ss.session_id = s.id AND ss.user_id = m.user_id)
		WHERE sc.session_id <> $1 AND sc.day = $2
		AND sc.status IN ('tentative', 'confirmed')
		AND sc.start_time < $4::time AND sc.end_time > $3::time`,
		p.SessionID, p.Day, p.StartTime, p.EndTime)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var warnings []SpeakerWarning
	for rows.Next() {
		var w SpeakerWarning
		if err := rows.Scan(&w.SpeakerID, &w.OtherSessionID); err != nil {
			return nil, err
		}
		warnings = append(warnings, w)
	}
	return warnings, rows.Err()
}

// SetStatus confirms or cancels a schedule.
func (r *Repository) SetStatus(ctx context.Context, scheduleID uuid.UUID, status string) (*models.SessionSchedule, error) {
	return scanSchedule(r.pool.QueryRow(ctx, `UPDATE session_schedules SET status = $2, updated_at = now()
		WHERE id = $1 RETURNING `+scheduleColumns, scheduleID, status))
}

// GetForSession returns the session's schedule row.
func (r *Repository) GetForSession(ctx context.Context, sessionID uuid.UUID) (*models.SessionSchedule, error) {
	return scanSchedule(r.pool.QueryRow(ctx, `SELECT `+scheduleColumns+` FROM session_schedules WHERE session_id = $1`, sessionID))
}

// List returns schedules filtered by optional day and room, ordered by day
// then start time.
func (r *Repository) List(ctx context.Context, day *time.Time, roomID *uuid.UUID) ([]models.SessionSchedule, error) {
	q := `SELECT ` + scheduleColumns + ` FROM session_schedules WHERE status <> 'cancelled'`
	args := []interface{}{}
	if day != nil {
		args = append(args, *day)
		q += ` AND day = $1`
	}
	if roomID != nil {
		args = append(args, *roomID)
		if len(args) == 1 {
			q += ` AND room_id = $1`
		} else {
			q += ` AND room_id = $2`
		}
	}
	q += ` ORDER BY day, start_time`
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.SessionSchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}
