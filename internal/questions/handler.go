package questions

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cybercon/speaker-portal/internal/auth"
	"github.com/cybercon/speaker-portal/internal/models"
	"github.com/cybercon/speaker-portal/internal/notifications"
	"github.com/cybercon/speaker-portal/internal/policy"
	"github.com/cybercon/speaker-portal/internal/sessions"
	"github.com/cybercon/speaker-portal/pkg/response"
)

// Handler handles question HTTP endpoints.
type Handler struct {
	repo        *Repository
	sessionRepo *sessions.Repository
	notifier    *notifications.Service
	logger      *zap.Logger
}

// NewHandler creates a questions handler.
func NewHandler(repo *Repository, sessionRepo *sessions.Repository, notifier *notifications.Service, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, sessionRepo: sessionRepo, notifier: notifier, logger: logger}
}

func (h *Handler) actorFrom(c *gin.Context) policy.Actor {
	claims := auth.ClaimsFrom(c)
	return policy.Actor{UserID: claims.UserID, Roles: claims.Roles}
}

// requireSessionView checks the caller may view the question's session.
func (h *Handler) requireSessionView(c *gin.Context, sessionID uuid.UUID) bool {
	session, err := h.sessionRepo.GetByID(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			response.NotFound(c, "session not found")
		} else {
			response.Internal(c, "failed to load session")
		}
		return false
	}
	if !policy.CanAccess(h.actorFrom(c), session, policy.ActionView) {
		response.Forbidden(c, "not allowed for this session")
		return false
	}
	return true
}

// AskRequest is the body for POST /sessions/:id/questions.
type AskRequest struct {
	Subject  string `json:"subject" binding:"required"`
	Question string `json:"question" binding:"required"`
	IsUrgent bool   `json:"is_urgent"`
}

// Ask handles POST /sessions/:id/questions.
func (h *Handler) Ask(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	if !h.requireSessionView(c, sessionID) {
		return
	}
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	claims := auth.ClaimsFrom(c)
	question, err := h.repo.Create(c.Request.Context(), sessionID, claims.UserID, req.Subject, req.Question, req.IsUrgent)
	if err != nil {
		response.Internal(c, "failed to create question")
		return
	}
	response.Created(c, question)
}

// ListForSession handles GET /sessions/:id/questions.
func (h *Handler) ListForSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	if !h.requireSessionView(c, sessionID) {
		return
	}
	list, err := h.repo.ListForSession(c.Request.Context(), sessionID)
	if err != nil {
		response.Internal(c, "failed to list questions")
		return
	}
	response.OK(c, list)
}

// Queue handles GET /approver/questions: open questions for assigned
// sessions, urgent first. Admins see the global queue.
func (h *Handler) Queue(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	var approverID *uuid.UUID
	if !h.actorFrom(c).IsStaff() {
		response.Forbidden(c, "insufficient permissions")
		return
	}
	isAdmin := false
	for _, r := range claims.Roles {
		if r == models.RoleAdmin {
			isAdmin = true
		}
	}
	if !isAdmin {
		approverID = &claims.UserID
	}

	list, err := h.repo.OpenQueue(c.Request.Context(), approverID, limit, offset)
	if err != nil {
		response.Internal(c, "failed to load question queue")
		return
	}
	response.OK(c, list)
}

// RespondRequest is the body for POST /questions/:questionId/responses.
type RespondRequest struct {
	Response   string `json:"response" binding:"required"`
	IsInternal bool   `json:"is_internal"`
}

// Respond handles POST /questions/:questionId/responses. Internal responses
// are staff-only and do not answer the question.
func (h *Handler) Respond(c *gin.Context) {
	questionID, err := uuid.Parse(c.Param("questionId"))
	if err != nil {
		response.BadRequest(c, "invalid question id")
		return
	}
	question, err := h.repo.GetByID(c.Request.Context(), questionID)
	if err != nil {
		response.NotFound(c, "question not found")
		return
	}
	if !h.requireSessionView(c, question.SessionID) {
		return
	}
	var req RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.IsInternal && !h.actorFrom(c).IsStaff() {
		response.Forbidden(c, "internal responses are staff only")
		return
	}
	claims := auth.ClaimsFrom(c)
	resp, err := h.repo.Respond(c.Request.Context(), questionID, claims.UserID, req.Response, req.IsInternal)
	if err != nil {
		response.Internal(c, "failed to add response")
		return
	}

	// Tell the asker when someone else answers publicly.
	if !req.IsInternal && question.AskedBy != claims.UserID {
		if _, err := h.notifier.Notify(c.Request.Context(), notifications.CreateParams{
			UserID:           question.AskedBy,
			Type:             models.NotifyQuestion,
			Title:            "Your question was answered",
			Message:          "A response was posted to: " + question.Subject,
			RelatedSessionID: &question.SessionID,
		}); err != nil {
			h.logger.Warn("question notification failed", zap.Error(err))
		}
	}
	response.Created(c, resp)
}

// ListResponses handles GET /questions/:questionId/responses.
func (h *Handler) ListResponses(c *gin.Context) {
	questionID, err := uuid.Parse(c.Param("questionId"))
	if err != nil {
		response.BadRequest(c, "invalid question id")
		return
	}
	question, err := h.repo.GetByID(c.Request.Context(), questionID)
	if err != nil {
		response.NotFound(c, "question not found")
		return
	}
	if !h.requireSessionView(c, question.SessionID) {
		return
	}
	list, err := h.repo.ListResponses(c.Request.Context(), questionID, h.actorFrom(c).IsStaff())
	if err != nil {
		response.Internal(c, "failed to list responses")
		return
	}
	response.OK(c, list)
}

// CloseQuestion handles POST /questions/:questionId/close (staff only).
func (h *Handler) CloseQuestion(c *gin.Context) {
	questionID, err := uuid.Parse(c.Param("questionId"))
	if err != nil {
		response.BadRequest(c, "invalid question id")
		return
	}
	if !h.actorFrom(c).IsStaff() {
		response.Forbidden(c, "insufficient permissions")
		return
	}
	if err := h.repo.Close(c.Request.Context(), questionID); err != nil {
		response.NotFound(c, "question not found")
		return
	}
	response.OK(c, gin.H{"message": "question closed"})
}
