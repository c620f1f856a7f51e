package reviews

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cybercon/speaker-portal/internal/auth"
	"github.com/cybercon/speaker-portal/internal/metrics"
	"github.com/cybercon/speaker-portal/internal/models"
	"github.com/cybercon/speaker-portal/internal/notifications"
	"github.com/cybercon/speaker-portal/pkg/response"
)

// Store is the assignment and review persistence surface. *Repository
// implements it.
type Store interface {
	ApproverHoldsRole(ctx context.Context, userID uuid.UUID) (bool, error)
	Assign(ctx context.Context, sessionID, approverID, assignedBy uuid.UUID) (*models.SessionAssignment, error)
	Cancel(ctx context.Context, assignmentID uuid.UUID) error
	ListForSession(ctx context.Context, sessionID uuid.UUID) ([]models.SessionAssignment, error)
	HasActiveAssignment(ctx context.Context, sessionID, approverID uuid.UUID) (bool, error)
	Save(ctx context.Context, p SaveParams) (*models.SessionReview, error)
	Complete(ctx context.Context, p SaveParams) (*models.SessionReview, error)
	GetForReviewer(ctx context.Context, sessionID, reviewerID uuid.UUID) (*models.SessionReview, error)
	ListReviews(ctx context.Context, sessionID uuid.UUID) ([]models.SessionReview, error)
	GetReview(ctx context.Context, id uuid.UUID) (*models.SessionReview, error)
	AddComment(ctx context.Context, reviewID, authorID uuid.UUID, comment string, isInternal bool) (*models.ReviewComment, error)
	ListComments(ctx context.Context, reviewID uuid.UUID) ([]models.ReviewComment, error)
	Dashboard(ctx context.Context, approverID *uuid.UUID) (*DashboardStats, error)
}

// SessionSource reads and transitions sessions under review.
// *sessions.Repository implements it.
type SessionSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	SetStatus(ctx context.Context, id uuid.UUID, status models.SessionStatus) error
}

// Notifier fans out notifications. *notifications.Service implements it.
type Notifier interface {
	Notify(ctx context.Context, p notifications.CreateParams) (*models.Notification, error)
}

// Handler handles assignment and review HTTP endpoints.
type Handler struct {
	repo        Store
	sessionRepo SessionSource
	notifier    Notifier
	logger      *zap.Logger
}

// NewHandler creates a reviews handler.
func NewHandler(repo Store, sessionRepo SessionSource, notifier Notifier, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, sessionRepo: sessionRepo, notifier: notifier, logger: logger}
}

func isAdmin(c *gin.Context) bool {
	claims := auth.ClaimsFrom(c)
	for _, r := range claims.Roles {
		if r == models.RoleAdmin {
			return true
		}
	}
	return false
}

// AssignRequest is the body for POST /admin/sessions/:id/assignments.
type AssignRequest struct {
	ApproverID uuid.UUID `json:"approver_id" binding:"required"`
}

// Assign handles POST /admin/sessions/:id/assignments (admin only).
func (h *Handler) Assign(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	if _, err := h.sessionRepo.GetByID(c.Request.Context(), sessionID); err != nil {
		response.NotFound(c, "session not found")
		return
	}
	holds, err := h.repo.ApproverHoldsRole(c.Request.Context(), req.ApproverID)
	if err != nil {
		response.Internal(c, "failed to check approver role")
		return
	}
	if !holds {
		response.BadRequest(c, "approver must hold a manager or admin role")
		return
	}

	claims := auth.ClaimsFrom(c)
	assignment, err := h.repo.Assign(c.Request.Context(), sessionID, req.ApproverID, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrDuplicateAssignment) {
			response.Conflict(c, "approver is already assigned to this session")
			return
		}
		response.Internal(c, "failed to create assignment")
		return
	}

	if _, err := h.notifier.Notify(c.Request.Context(), notifications.CreateParams{
		UserID:           req.ApproverID,
		Type:             models.NotifyReviewUpdate,
		Title:            "New session assigned for review",
		Message:          "A session has been assigned to you for review.",
		RelatedSessionID: &sessionID,
	}); err != nil {
		h.logger.Warn("assignment notification failed", zap.Error(err))
	}
	response.Created(c, assignment)
}

// CancelAssignment handles DELETE /admin/assignments/:assignmentId.
func (h *Handler) CancelAssignment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("assignmentId"))
	if err != nil {
		response.BadRequest(c, "invalid assignment id")
		return
	}
	if err := h.repo.Cancel(c.Request.Context(), id); err != nil {
		response.NotFound(c, "active assignment not found")
		return
	}
	response.OK(c, gin.H{"message": "assignment cancelled"})
}

// ListAssignments handles GET /admin/sessions/:id/assignments.
func (h *Handler) ListAssignments(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	list, err := h.repo.ListForSession(c.Request.Context(), sessionID)
	if err != nil {
		response.Internal(c, "failed to list assignments")
		return
	}
	response.OK(c, list)
}

// requireReviewAccess checks the caller is an admin or actively assigned.
func (h *Handler) requireReviewAccess(c *gin.Context, sessionID uuid.UUID) bool {
	if isAdmin(c) {
		return true
	}
	claims := auth.ClaimsFrom(c)
	ok, err := h.repo.HasActiveAssignment(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		response.Internal(c, "failed to check assignment")
		return false
	}
	if !ok {
		response.Forbidden(c, "not assigned to this session")
		return false
	}
	return true
}

// ReviewRequest is the body for saving or completing a review.
type ReviewRequest struct {
	Decision         string `json:"decision"`
	Score            *int   `json:"score"`
	InternalComments string `json:"internal_comments"`
	SpeakerFeedback  string `json:"speaker_feedback"`
}

// Save handles PUT /approver/sessions/:id/review (save progress).
func (h *Handler) Save(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	if !h.requireReviewAccess(c, sessionID) {
		return
	}
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := validateReview(req, false); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	claims := auth.ClaimsFrom(c)
	review, err := h.repo.Save(c.Request.Context(), SaveParams{
		SessionID:        sessionID,
		ReviewerID:       claims.UserID,
		Decision:         req.Decision,
		Score:            req.Score,
		InternalComments: req.InternalComments,
		SpeakerFeedback:  req.SpeakerFeedback,
	})
	if err != nil {
		response.Internal(c, "failed to save review")
		return
	}
	response.OK(c, review)
}

// Complete handles POST /approver/sessions/:id/review/complete: records the
// decision and moves the session to approved or rejected.
func (h *Handler) Complete(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	if !h.requireReviewAccess(c, sessionID) {
		return
	}
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := validateReview(req, true); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	session, err := h.sessionRepo.GetByID(c.Request.Context(), sessionID)
	if err != nil {
		response.NotFound(c, "session not found")
		return
	}

	claims := auth.ClaimsFrom(c)
	review, err := h.repo.Complete(c.Request.Context(), SaveParams{
		SessionID:        sessionID,
		ReviewerID:       claims.UserID,
		Decision:         req.Decision,
		Score:            req.Score,
		InternalComments: req.InternalComments,
		SpeakerFeedback:  req.SpeakerFeedback,
	})
	if err != nil {
		response.Internal(c, "failed to complete review")
		return
	}

	newStatus := models.SessionApproved
	if req.Decision == models.DecisionReject {
		newStatus = models.SessionRejected
	}
	if err := h.sessionRepo.SetStatus(c.Request.Context(), sessionID, newStatus); err != nil {
		response.Internal(c, "failed to update session status")
		return
	}
	metrics.ReviewsCompleted.WithLabelValues(req.Decision).Inc()

	title := "Your session was approved"
	if newStatus == models.SessionRejected {
		title = "Your session was not accepted"
	}
	msg := req.SpeakerFeedback
	if msg == "" {
		msg = "The review of your session is complete."
	}
	if _, err := h.notifier.Notify(c.Request.Context(), notifications.CreateParams{
		UserID:           session.PrimarySpeakerID,
		Type:             models.NotifyReviewUpdate,
		Title:            title,
		Message:          msg,
		Priority:         models.PriorityHigh,
		RelatedSessionID: &sessionID,
	}); err != nil {
		h.logger.Warn("review notification failed", zap.Error(err))
	}

	response.OK(c, gin.H{"review": review, "session_status": newStatus})
}

func validateReview(req ReviewRequest, final bool) error {
	if final && req.Decision != models.DecisionApprove && req.Decision != models.DecisionReject {
		return errors.New("decision must be approve or reject")
	}
	if !final && req.Decision != "" && req.Decision != models.DecisionApprove && req.Decision != models.DecisionReject {
		return errors.New("decision must be approve or reject")
	}
	if req.Score != nil && (*req.Score < 1 || *req.Score > 10) {
		return errors.New("score must be between 1 and 10")
	}
	return nil
}

// GetMine handles GET /approver/sessions/:id/review.
func (h *Handler) GetMine(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	if !h.requireReviewAccess(c, sessionID) {
		return
	}
	claims := auth.ClaimsFrom(c)
	review, err := h.repo.GetForReviewer(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		response.NotFound(c, "no review started")
		return
	}
	response.OK(c, review)
}

// ListReviews handles GET /approver/sessions/:id/reviews (all reviewers).
func (h *Handler) ListReviews(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	if !h.requireReviewAccess(c, sessionID) {
		return
	}
	list, err := h.repo.ListReviews(c.Request.Context(), sessionID)
	if err != nil {
		response.Internal(c, "failed to list reviews")
		return
	}
	response.OK(c, list)
}

// CommentRequest is the body for POST /approver/reviews/:reviewId/comments.
type CommentRequest struct {
	Comment    string `json:"comment" binding:"required"`
	IsInternal *bool  `json:"is_internal"`
}

// AddComment handles POST /approver/reviews/:reviewId/comments.
func (h *Handler) AddComment(c *gin.Context) {
	reviewID, err := uuid.Parse(c.Param("reviewId"))
	if err != nil {
		response.BadRequest(c, "invalid review id")
		return
	}
	review, err := h.repo.GetReview(c.Request.Context(), reviewID)
	if err != nil {
		response.NotFound(c, "review not found")
		return
	}
	if !h.requireReviewAccess(c, review.SessionID) {
		return
	}
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	isInternal := true
	if req.IsInternal != nil {
		isInternal = *req.IsInternal
	}
	claims := auth.ClaimsFrom(c)
	comment, err := h.repo.AddComment(c.Request.Context(), reviewID, claims.UserID, req.Comment, isInternal)
	if err != nil {
		response.Internal(c, "failed to add comment")
		return
	}
	response.Created(c, comment)
}

// ListComments handles GET /approver/reviews/:reviewId/comments.
func (h *Handler) ListComments(c *gin.Context) {
	reviewID, err := uuid.Parse(c.Param("reviewId"))
	if err != nil {
		response.BadRequest(c, "invalid review id")
		return
	}
	review, err := h.repo.GetReview(c.Request.Context(), reviewID)
	if err != nil {
		response.NotFound(c, "review not found")
		return
	}
	if !h.requireReviewAccess(c, review.SessionID) {
		return
	}
	list, err := h.repo.ListComments(c.Request.Context(), reviewID)
	if err != nil {
		response.Internal(c, "failed to list comments")
		return
	}
	response.OK(c, list)
}

// Dashboard handles GET /approver/dashboard.
func (h *Handler) Dashboard(c *gin.Context) {
	var approverID *uuid.UUID
	if !isAdmin(c) {
		claims := auth.ClaimsFrom(c)
		approverID = &claims.UserID
	}
	stats, err := h.repo.Dashboard(c.Request.Context(), approverID)
	if err != nil {
		response.Internal(c, "failed to load dashboard")
		return
	}
	response.OK(c, stats)
}
