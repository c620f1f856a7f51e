package notifications

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cybercon/speaker-portal/internal/auth"
	"github.com/cybercon/speaker-portal/internal/models"
	"github.com/cybercon/speaker-portal/pkg/response"
)

// Handler handles notification HTTP endpoints.
type Handler struct {
	repo    *Repository
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a notifications handler.
func NewHandler(repo *Repository, service *Service, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, service: service, logger: logger}
}

// List handles GET /notifications?unread=true&limit=&offset=.
func (h *Handler) List(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	unreadOnly := c.Query("unread") == "true"
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	list, err := h.repo.List(c.Request.Context(), claims.UserID, unreadOnly, limit, offset)
	if err != nil {
		response.Internal(c, "failed to list notifications")
		return
	}
	unread, err := h.repo.UnreadCount(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Internal(c, "failed to count notifications")
		return
	}
	response.OK(c, gin.H{"notifications": list, "unread_count": unread})
}

// MarkRead handles POST /notifications/:id/read.
func (h *Handler) MarkRead(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid notification id")
		return
	}
	if err := h.repo.MarkRead(c.Request.Context(), id, claims.UserID); err != nil {
		response.NotFound(c, "notification not found")
		return
	}
	response.OK(c, gin.H{"message": "marked read"})
}

// MarkAllRead handles PUT /notifications.
func (h *Handler) MarkAllRead(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	n, err := h.repo.MarkAllRead(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Internal(c, "failed to mark notifications read")
		return
	}
	response.OK(c, gin.H{"marked": n})
}

// Delete handles DELETE /notifications/:id.
func (h *Handler) Delete(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid notification id")
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id, claims.UserID); err != nil {
		response.NotFound(c, "notification not found")
		return
	}
	response.NoContent(c)
}

// GetPreferences handles GET /notification-preferences.
func (h *Handler) GetPreferences(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	prefs, err := h.repo.GetPreferences(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Internal(c, "failed to load preferences")
		return
	}
	response.OK(c, prefs)
}

// UpdatePreferencesRequest is the body for PUT /notification-preferences.
type UpdatePreferencesRequest struct {
	EmailSessionUpdates  bool   `json:"email_session_updates"`
	EmailReviewUpdates   bool   `json:"email_review_updates"`
	EmailScheduleUpdates bool   `json:"email_schedule_updates"`
	EmailQuestions       bool   `json:"email_questions"`
	EmailBroadcasts      bool   `json:"email_broadcasts"`
	PushEnabled          bool   `json:"push_enabled"`
	DigestFrequency      string `json:"digest_frequency"`
}

// UpdatePreferences handles PUT /notification-preferences.
func (h *Handler) UpdatePreferences(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	var req UpdatePreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	switch req.DigestFrequency {
	case "", "immediate", "daily", "weekly":
	default:
		response.BadRequest(c, "invalid digest_frequency")
		return
	}
	if req.DigestFrequency == "" {
		req.DigestFrequency = "immediate"
	}
	prefs := &models.NotificationPreferences{
		UserID:               claims.UserID,
		EmailSessionUpdates:  req.EmailSessionUpdates,
		EmailReviewUpdates:   req.EmailReviewUpdates,
		EmailScheduleUpdates: req.EmailScheduleUpdates,
		EmailQuestions:       req.EmailQuestions,
		EmailBroadcasts:      req.EmailBroadcasts,
		PushEnabled:          req.PushEnabled,
		DigestFrequency:      req.DigestFrequency,
	}
	if err := h.repo.UpdatePreferences(c.Request.Context(), prefs); err != nil {
		response.Internal(c, "failed to update preferences")
		return
	}
	response.OK(c, prefs)
}

// SendRequest is the body for POST /admin/notifications (admin send-to-user).
type SendRequest struct {
	UserID   uuid.UUID `json:"user_id" binding:"required"`
	Type     string    `json:"notification_type"`
	Title    string    `json:"title" binding:"required"`
	Message  string    `json:"message" binding:"required"`
	Priority string    `json:"priority"`
}

// Send handles POST /admin/notifications.
func (h *Handler) Send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Type == "" {
		req.Type = models.NotifySystem
	}
	n, err := h.service.Notify(c.Request.Context(), CreateParams{
		UserID:   req.UserID,
		Type:     req.Type,
		Title:    req.Title,
		Message:  req.Message,
		Priority: req.Priority,
	})
	if err != nil {
		response.Internal(c, "failed to send notification")
		return
	}
	response.Created(c, n)
}
