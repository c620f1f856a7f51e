package broadcast

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cybercon/speaker-portal/internal/auth"
	"github.com/cybercon/speaker-portal/internal/models"
	"github.com/cybercon/speaker-portal/internal/notifications"
	"github.com/cybercon/speaker-portal/pkg/response"
)

// Handler handles broadcast HTTP endpoints.
type Handler struct {
	repo     *Repository
	notifier *notifications.Service
	logger   *zap.Logger
}

// NewHandler creates a broadcast handler.
func NewHandler(repo *Repository, notifier *notifications.Service, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, notifier: notifier, logger: logger}
}

// CreateRequest is the body for POST /admin/broadcasts.
type CreateRequest struct {
	Subject             string `json:"subject" binding:"required"`
	Message             string `json:"message" binding:"required"`
	MessageType         string `json:"message_type"`
	TargetAudience      string `json:"target_audience" binding:"required"`
	TargetSessionStatus string `json:"target_session_status"`
}

func validAudience(a string) bool {
	switch a {
	case models.AudienceAllSpeakers, models.AudienceSubmittedSpeakers, models.AudienceApprovedSpeakers:
		return true
	}
	return false
}

// Create handles POST /admin/broadcasts: creates the message and sends it
// immediately. The recipient set is resolved once at send time and snapshotted
// into delivery rows; speakers registering later never see it.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !validAudience(req.TargetAudience) {
		response.BadRequest(c, "target_audience must be all_speakers, submitted_speakers or approved_speakers")
		return
	}
	claims := auth.ClaimsFrom(c)

	msg, err := h.repo.Create(c.Request.Context(), CreateParams{
		CreatedBy:           claims.UserID,
		Subject:             req.Subject,
		Message:             req.Message,
		MessageType:         req.MessageType,
		TargetAudience:      req.TargetAudience,
		TargetSessionStatus: req.TargetSessionStatus,
	})
	if err != nil {
		response.Internal(c, "failed to create broadcast")
		return
	}

	recipients, err := h.repo.ResolveAudience(c.Request.Context(), msg)
	if err != nil {
		h.logger.Error("audience resolution failed", zap.Error(err), zap.String("message_id", msg.ID.String()))
		response.Internal(c, "failed to resolve audience")
		return
	}
	if err := h.repo.MarkSent(c.Request.Context(), msg.ID, recipients); err != nil {
		h.logger.Error("broadcast delivery snapshot failed", zap.Error(err), zap.String("message_id", msg.ID.String()))
		response.Internal(c, "failed to send broadcast")
		return
	}

	for _, rid := range recipients {
		if _, err := h.notifier.Notify(c.Request.Context(), notifications.CreateParams{
			UserID:  rid,
			Type:    models.NotifyBroadcast,
			Title:   msg.Subject,
			Message: msg.Message,
		}); err != nil {
			h.logger.Warn("broadcast notification failed", zap.Error(err), zap.String("recipient_id", rid.String()))
		}
	}

	response.Created(c, gin.H{"message": msg, "recipients": len(recipients)})
}

// List handles GET /admin/broadcasts with delivery stats.
func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	list, err := h.repo.List(c.Request.Context(), limit, offset)
	if err != nil {
		response.Internal(c, "failed to list broadcasts")
		return
	}
	response.OK(c, list)
}

// Get handles GET /admin/broadcasts/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid broadcast id")
		return
	}
	msg, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "broadcast not found")
		} else {
			response.Internal(c, "failed to load broadcast")
		}
		return
	}
	response.OK(c, msg)
}

// Inbox handles GET /messages: broadcasts delivered to the caller.
func (h *Handler) Inbox(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	list, err := h.repo.ListForRecipient(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Internal(c, "failed to list messages")
		return
	}
	response.OK(c, list)
}

// MarkRead handles POST /messages/:id/read.
func (h *Handler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid broadcast id")
		return
	}
	claims := auth.ClaimsFrom(c)
	if err := h.repo.MarkRead(c.Request.Context(), id, claims.UserID); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "message not found")
		} else {
			response.Internal(c, "failed to mark message read")
		}
		return
	}
	response.OK(c, gin.H{"message": "marked read"})
}
