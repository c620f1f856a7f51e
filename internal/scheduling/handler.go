package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cybercon/speaker-portal/internal/auth"
	"github.com/cybercon/speaker-portal/internal/metrics"
	"github.com/cybercon/speaker-portal/internal/models"
	"github.com/cybercon/speaker-portal/internal/notifications"
	"github.com/cybercon/speaker-portal/pkg/response"
)

// Store is the room and schedule persistence surface. *Repository implements it.
type Store interface {
	CreateRoom(ctx context.Context, name string, capacity int, location string, features json.RawMessage) (*models.Room, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
	Place(ctx context.Context, p PlaceParams) (*models.SessionSchedule, error)
	SpeakerConflicts(ctx context.Context, p PlaceParams) ([]SpeakerWarning, error)
	SetStatus(ctx context.Context, scheduleID uuid.UUID, status string) (*models.SessionSchedule, error)
	GetForSession(ctx context.Context, sessionID uuid.UUID) (*models.SessionSchedule, error)
	List(ctx context.Context, day *time.Time, roomID *uuid.UUID) ([]models.SessionSchedule, error)
}

// SessionSource loads sessions for status checks. *sessions.Repository
// implements it.
type SessionSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
}

// Notifier fans out notifications. *notifications.Service implements it.
type Notifier interface {
	Notify(ctx context.Context, p notifications.CreateParams) (*models.Notification, error)
}

// Handler handles room and schedule HTTP endpoints.
type Handler struct {
	repo        Store
	sessionRepo SessionSource
	notifier    Notifier
	logger      *zap.Logger
}

// NewHandler creates a scheduling handler.
func NewHandler(repo Store, sessionRepo SessionSource, notifier Notifier, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, sessionRepo: sessionRepo, notifier: notifier, logger: logger}
}

// CreateRoomRequest is the body for POST /admin/rooms.
type CreateRoomRequest struct {
	Name     string          `json:"name" binding:"required"`
	Capacity int             `json:"capacity"`
	Location string          `json:"location"`
	Features json.RawMessage `json:"features"`
}

// CreateRoom handles POST /admin/rooms.
func (h *Handler) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	room, err := h.repo.CreateRoom(c.Request.Context(), req.Name, req.Capacity, req.Location, req.Features)
	if err != nil {
		response.Internal(c, "failed to create room")
		return
	}
	response.Created(c, room)
}

// ListRooms handles GET /rooms.
func (h *Handler) ListRooms(c *gin.Context) {
	rooms, err := h.repo.ListRooms(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list rooms")
		return
	}
	response.OK(c, rooms)
}

// PlaceRequest is the body for POST /approver/sessions/:id/schedule.
type PlaceRequest struct {
	RoomID    uuid.UUID `json:"room_id" binding:"required"`
	Day       string    `json:"day" binding:"required"` // YYYY-MM-DD
	StartTime string    `json:"start_time" binding:"required"`
	EndTime   string    `json:"end_time" binding:"required"`
}

// Place handles POST /approver/sessions/:id/schedule. Approved sessions only;
// a room conflict answers 409 with the conflicting session id; speaker
// double-bookings come back as non-blocking warnings.
func (h *Handler) Place(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	var req PlaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := ValidateTimeRange(req.StartTime, req.EndTime); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	day, err := time.Parse("2006-01-02", req.Day)
	if err != nil {
		response.BadRequest(c, "day must be formatted YYYY-MM-DD")
		return
	}

	session, err := h.sessionRepo.GetByID(c.Request.Context(), sessionID)
	if err != nil {
		response.NotFound(c, "session not found")
		return
	}
	if session.Status != models.SessionApproved && session.Status != models.SessionScheduled {
		response.BadRequest(c, "only approved sessions can be scheduled")
		return
	}

	claims := auth.ClaimsFrom(c)
	params := PlaceParams{
		SessionID:   sessionID,
		RoomID:      req.RoomID,
		Day:         day,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		ScheduledBy: claims.UserID,
	}

	schedule, err := h.repo.Place(c.Request.Context(), params)
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			metrics.ScheduleConflicts.Inc()
			response.Conflict(c, "time slot conflicts with session "+conflict.SessionID.String())
			return
		}
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "room not found")
			return
		}
		h.logger.Error("schedule placement failed", zap.Error(err), zap.String("session_id", sessionID.String()))
		response.Internal(c, "failed to schedule session")
		return
	}

	warnings, err := h.repo.SpeakerConflicts(c.Request.Context(), params)
	if err != nil {
		h.logger.Warn("speaker conflict check failed", zap.Error(err))
	}

	if _, err := h.notifier.Notify(c.Request.Context(), notifications.CreateParams{
		UserID:           session.PrimarySpeakerID,
		Type:             models.NotifyScheduleUpdate,
		Title:            "Your session has been scheduled",
		Message:          "Your session was placed on " + req.Day + " from " + req.StartTime + " to " + req.EndTime + ".",
		RelatedSessionID: &sessionID,
	}); err != nil {
		h.logger.Warn("schedule notification failed", zap.Error(err))
	}

	response.OK(c, gin.H{"schedule": schedule, "speaker_warnings": warnings})
}

// SetStatusRequest is the body for PATCH /approver/schedules/:scheduleId.
type SetStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetStatus handles PATCH /approver/schedules/:scheduleId (confirm/cancel).
func (h *Handler) SetStatus(c *gin.Context) {
	scheduleID, err := uuid.Parse(c.Param("scheduleId"))
	if err != nil {
		response.BadRequest(c, "invalid schedule id")
		return
	}
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	switch req.Status {
	case models.ScheduleConfirmed, models.ScheduleCancelled:
	default:
		response.BadRequest(c, "status must be confirmed or cancelled")
		return
	}
	schedule, err := h.repo.SetStatus(c.Request.Context(), scheduleID, req.Status)
	if err != nil {
		response.NotFound(c, "schedule not found")
		return
	}
	response.OK(c, schedule)
}

// GetForSession handles GET /sessions/:id/schedule.
func (h *Handler) GetForSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	schedule, err := h.repo.GetForSession(c.Request.Context(), sessionID)
	if err != nil {
		response.NotFound(c, "session is not scheduled")
		return
	}
	response.OK(c, schedule)
}

// List handles GET /schedules?day=YYYY-MM-DD&room_id=.
func (h *Handler) List(c *gin.Context) {
	var day *time.Time
	if d := c.Query("day"); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			response.BadRequest(c, "day must be formatted YYYY-MM-DD")
			return
		}
		day = &parsed
	}
	var roomID *uuid.UUID
	if rid := c.Query("room_id"); rid != "" {
		parsed, err := uuid.Parse(rid)
		if err != nil {
			response.BadRequest(c, "invalid room_id")
			return
		}
		roomID = &parsed
	}
	list, err := h.repo.List(c.Request.Context(), day, roomID)
	if err != nil {
		response.Internal(c, "failed to list schedules")
		return
	}
	response.OK(c, list)
}
