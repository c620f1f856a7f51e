package sessions

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cybercon/speaker-portal/internal/auth"
	"github.com/cybercon/speaker-portal/internal/models"
	"github.com/cybercon/speaker-portal/internal/policy"
	"github.com/cybercon/speaker-portal/pkg/response"
)

// Store is the persistence surface the session endpoints use. *Repository
// implements it; handler tests substitute in-memory fakes.
type Store interface {
	ListTypes(ctx context.Context) ([]models.SessionType, error)
	List(ctx context.Context, f ListFilter) ([]models.Session, int, error)
	Create(ctx context.Context, p CreateParams) (*models.Session, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	Update(ctx context.Context, id uuid.UUID, title, description, abstract string, sessionTypeID *uuid.UUID) (*models.Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetSpeakers(ctx context.Context, sessionID uuid.UUID, speakers []SpeakerInput) ([]string, error)
	Submit(ctx context.Context, id uuid.UUID) (*models.Session, error)
	Resubmit(ctx context.Context, id uuid.UUID) (*models.Session, error)
	ReviewSummary(ctx context.Context, sessionID uuid.UUID) (*models.ReviewSummary, error)
}

// Handler handles session HTTP endpoints.
type Handler struct {
	repo   Store
	logger *zap.Logger
}

// NewHandler creates a sessions handler.
func NewHandler(repo Store, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

func actorFrom(c *gin.Context) policy.Actor {
	claims := auth.ClaimsFrom(c)
	return policy.Actor{UserID: claims.UserID, Roles: claims.Roles}
}

// load parses :id, fetches the session and checks the policy decision.
// Replies and returns nil when the caller may not proceed.
func (h *Handler) load(c *gin.Context, action policy.Action) *models.Session {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return nil
	}
	session, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "session not found")
		} else {
			response.Internal(c, "failed to load session")
		}
		return nil
	}
	if !policy.CanAccess(actorFrom(c), session, action) {
		response.Forbidden(c, "not allowed for this session")
		return nil
	}
	return session
}

// ListTypes handles GET /session-types.
func (h *Handler) ListTypes(c *gin.Context) {
	types, err := h.repo.ListTypes(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list session types")
		return
	}
	response.OK(c, types)
}

// List handles GET /sessions with role-scoped visibility:
// admins see everything, managers see assigned plus all non-draft,
// speakers see their own.
func (h *Handler) List(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	f := ListFilter{
		Status: c.Query("status"),
		Limit:  limit,
		Offset: offset,
	}
	actor := actorFrom(c)
	switch {
	case actor.IsStaff() && hasRole(claims.Roles, models.RoleAdmin):
		f.All = true
	case actor.IsStaff():
		f.ApproverID = &claims.UserID
	default:
		f.SpeakerID = &claims.UserID
	}

	list, total, err := h.repo.List(c.Request.Context(), f)
	if err != nil {
		response.Internal(c, "failed to list sessions")
		return
	}
	response.OK(c, gin.H{"sessions": list, "total": total, "limit": f.Limit, "offset": f.Offset})
}

func hasRole(roles []string, name string) bool {
	for _, r := range roles {
		if r == name {
			return true
		}
	}
	return false
}

// CreateRequest is the body for POST /sessions.
type CreateRequest struct {
	Title         string         `json:"title" binding:"required"`
	Description   string         `json:"description"`
	Abstract      string         `json:"abstract"`
	SessionTypeID *uuid.UUID     `json:"session_type_id"`
	Speakers      []SpeakerInput `json:"speakers"`
}

// Create handles POST /sessions: a new draft owned by the caller.
func (h *Handler) Create(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	session, err := h.repo.Create(c.Request.Context(), CreateParams{
		Title:            req.Title,
		Description:      req.Description,
		Abstract:         req.Abstract,
		SessionTypeID:    req.SessionTypeID,
		PrimarySpeakerID: claims.UserID,
	})
	if err != nil {
		h.logger.Error("create session failed", zap.Error(err))
		response.Internal(c, "failed to create session")
		return
	}
	var missing []string
	if len(req.Speakers) > 0 {
		missing, err = h.repo.SetSpeakers(c.Request.Context(), session.ID, req.Speakers)
		if err != nil {
			response.Internal(c, "failed to set speakers")
			return
		}
		session, err = h.repo.GetByID(c.Request.Context(), session.ID)
		if err != nil {
			response.Internal(c, "failed to reload session")
			return
		}
	}
	response.Created(c, gin.H{"session": session, "unknown_speaker_emails": missing})
}

// Get handles GET /sessions/:id with the review summary embedded.
func (h *Handler) Get(c *gin.Context) {
	session := h.load(c, policy.ActionView)
	if session == nil {
		return
	}
	summary, err := h.repo.ReviewSummary(c.Request.Context(), session.ID)
	if err != nil {
		response.Internal(c, "failed to load review summary")
		return
	}
	// Internal review detail stays staff-only.
	if !actorFrom(c).IsStaff() {
		summary = &models.ReviewSummary{Recommendation: summary.Recommendation}
	}
	response.OK(c, gin.H{"session": session, "review_summary": summary})
}

// UpdateRequest is the body for PUT /sessions/:id.
type UpdateRequest struct {
	Title         string         `json:"title" binding:"required"`
	Description   string         `json:"description"`
	Abstract      string         `json:"abstract"`
	SessionTypeID *uuid.UUID     `json:"session_type_id"`
	Speakers      []SpeakerInput `json:"speakers"`
}

// Update handles PUT /sessions/:id.
func (h *Handler) Update(c *gin.Context) {
	session := h.load(c, policy.ActionEdit)
	if session == nil {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	updated, err := h.repo.Update(c.Request.Context(), session.ID, req.Title, req.Description, req.Abstract, req.SessionTypeID)
	if err != nil {
		response.Internal(c, "failed to update session")
		return
	}
	missing, err := h.repo.SetSpeakers(c.Request.Context(), session.ID, req.Speakers)
	if err != nil {
		response.Internal(c, "failed to set speakers")
		return
	}
	updated, err = h.repo.GetByID(c.Request.Context(), session.ID)
	if err != nil {
		response.Internal(c, "failed to reload session")
		return
	}
	response.OK(c, gin.H{"session": updated, "unknown_speaker_emails": missing})
}

// Delete handles DELETE /sessions/:id. Only drafts can be deleted.
func (h *Handler) Delete(c *gin.Context) {
	session := h.load(c, policy.ActionEdit)
	if session == nil {
		return
	}
	if session.Status != models.SessionDraft {
		response.BadRequest(c, "only draft sessions can be deleted")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), session.ID); err != nil {
		response.Internal(c, "failed to delete session")
		return
	}
	response.NoContent(c)
}

// Submit handles POST /sessions/:id/submit.
func (h *Handler) Submit(c *gin.Context) {
	session := h.load(c, policy.ActionEdit)
	if session == nil {
		return
	}
	if session.Status != models.SessionDraft {
		response.BadRequest(c, "only draft sessions can be submitted")
		return
	}
	submitted, err := h.repo.Submit(c.Request.Context(), session.ID)
	if err != nil {
		if errors.Is(err, ErrNotSubmittable) {
			response.BadRequest(c, "submission requires a title, a description and an uploaded file")
			return
		}
		response.Internal(c, "failed to submit session")
		return
	}
	response.OK(c, submitted)
}

// Resubmit handles POST /sessions/:id/resubmit: returns the session to the
// submitted state from any status and retires all previous file versions.
func (h *Handler) Resubmit(c *gin.Context) {
	session := h.load(c, policy.ActionView)
	if session == nil {
		return
	}
	actor := actorFrom(c)
	if !actor.IsStaff() && session.PrimarySpeakerID != actor.UserID {
		response.Forbidden(c, "only the primary speaker can resubmit")
		return
	}
	resubmitted, err := h.repo.Resubmit(c.Request.Context(), session.ID)
	if err != nil {
		response.Internal(c, "failed to resubmit session")
		return
	}
	response.OK(c, resubmitted)
}
