package admin

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cybercon/speaker-portal/internal/audit"
	"github.com/cybercon/speaker-portal/internal/auth"
	"github.com/cybercon/speaker-portal/internal/models"
	"github.com/cybercon/speaker-portal/pkg/response"
	"github.com/cybercon/speaker-portal/pkg/storage"
	"github.com/cybercon/speaker-portal/pkg/utils"
)

const invitationTTL = 7 * 24 * time.Hour

// Handler handles administrative HTTP endpoints.
type Handler struct {
	repo      *Repository
	store     storage.Store
	auditRepo *audit.Repository
	logger    *zap.Logger
}

// NewHandler creates an admin handler.
func NewHandler(repo *Repository, store storage.Store, auditRepo *audit.Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, store: store, auditRepo: auditRepo, logger: logger}
}

func (h *Handler) record(c *gin.Context, action, resourceType, resourceID string) {
	claims := auth.ClaimsFrom(c)
	h.auditRepo.Record(c.Request.Context(), audit.Entry{
		UserID:       &claims.UserID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
	})
}

// ListUsers handles GET /admin/users?role=&search=&active=&limit=&offset=.
func (h *Handler) ListUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	f := UserFilter{
		Role:   c.Query("role"),
		Search: c.Query("search"),
		Limit:  limit,
		Offset: offset,
	}
	if a := c.Query("active"); a != "" {
		active := a == "true"
		f.Active = &active
	}
	users, total, err := h.repo.ListUsers(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("user listing failed", zap.Error(err))
		response.Internal(c, "failed to list users")
		return
	}
	response.OK(c, gin.H{"users": users, "total": total, "limit": f.Limit, "offset": f.Offset})
}

// SetRolesRequest is the body for PUT /admin/users/:id/roles.
type SetRolesRequest struct {
	Roles []string `json:"roles" binding:"required,min=1"`
}

// SetRoles handles PUT /admin/users/:id/roles.
func (h *Handler) SetRoles(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req SetRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	for _, role := range req.Roles {
		switch role {
		case models.RoleSpeaker, models.RoleManager, models.RoleAdmin:
		default:
			response.BadRequest(c, "unknown role "+role)
			return
		}
	}
	claims := auth.ClaimsFrom(c)
	if err := h.repo.SetRoles(c.Request.Context(), userID, req.Roles, claims.UserID); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "user not found")
		} else {
			response.Internal(c, "failed to update roles")
		}
		return
	}
	h.record(c, "user.roles_changed", "user", userID.String())
	response.OK(c, gin.H{"message": "roles updated"})
}

// SetActive handles PATCH /admin/users/:id/active.
func (h *Handler) SetActive(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req struct {
		IsActive *bool `json:"is_active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.repo.SetActive(c.Request.Context(), userID, *req.IsActive); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "user not found")
		} else {
			response.Internal(c, "failed to update user")
		}
		return
	}
	action := "user.deactivated"
	if *req.IsActive {
		action = "user.activated"
	}
	h.record(c, action, "user", userID.String())
	response.OK(c, gin.H{"message": "user updated"})
}

// InviteRequest is the body for POST /admin/invitations.
type InviteRequest struct {
	Email    string `json:"email" binding:"required,email"`
	RoleName string `json:"role_name" binding:"required"`
}

// Invite handles POST /admin/invitations. The token is returned once so the
// admin can forward it; it is never listed again.
func (h *Handler) Invite(c *gin.Context) {
	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.RoleName != models.RoleManager && req.RoleName != models.RoleAdmin {
		response.BadRequest(c, "role_name must be manager or admin")
		return
	}
	token, err := utils.RandomToken(32)
	if err != nil {
		response.Internal(c, "failed to generate invitation token")
		return
	}
	claims := auth.ClaimsFrom(c)
	inv, err := h.repo.CreateInvitation(c.Request.Context(), req.Email, token, req.RoleName,
		claims.UserID, time.Now().Add(invitationTTL))
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			response.Conflict(c, "email already registered or already invited")
		} else {
			response.Internal(c, "failed to create invitation")
		}
		return
	}
	h.record(c, "invitation.created", "invitation", inv.ID.String())
	response.Created(c, gin.H{"invitation": inv, "token": token})
}

// ListInvitations handles GET /admin/invitations?state=valid|used|expired.
func (h *Handler) ListInvitations(c *gin.Context) {
	state := c.Query("state")
	switch state {
	case "", "valid", "used", "expired":
	default:
		response.BadRequest(c, "state must be valid, used or expired")
		return
	}
	list, err := h.repo.ListInvitations(c.Request.Context(), state)
	if err != nil {
		response.Internal(c, "failed to list invitations")
		return
	}
	response.OK(c, list)
}

// ListFAQs handles GET /faqs (public to authenticated users).
func (h *Handler) ListFAQs(c *gin.Context) {
	list, err := h.repo.ListFAQs(c.Request.Context(), c.Query("category"), true)
	if err != nil {
		response.Internal(c, "failed to list faqs")
		return
	}
	response.OK(c, list)
}

// ListAllFAQs handles GET /admin/faqs, including unpublished entries.
func (h *Handler) ListAllFAQs(c *gin.Context) {
	list, err := h.repo.ListFAQs(c.Request.Context(), c.Query("category"), false)
	if err != nil {
		response.Internal(c, "failed to list faqs")
		return
	}
	response.OK(c, list)
}

// FAQRequest is the body for FAQ create/update.
type FAQRequest struct {
	Category    string `json:"category"`
	Question    string `json:"question" binding:"required"`
	Answer      string `json:"answer" binding:"required"`
	OrderIndex  int    `json:"order_index"`
	IsPublished *bool  `json:"is_published"`
}

func (r *FAQRequest) toModel() *models.FAQ {
	published := true
	if r.IsPublished != nil {
		published = *r.IsPublished
	}
	return &models.FAQ{
		Category:    r.Category,
		Question:    r.Question,
		Answer:      r.Answer,
		OrderIndex:  r.OrderIndex,
		IsPublished: published,
	}
}

// CreateFAQ handles POST /admin/faqs.
func (h *Handler) CreateFAQ(c *gin.Context) {
	var req FAQRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	faq, err := h.repo.CreateFAQ(c.Request.Context(), req.toModel())
	if err != nil {
		response.Internal(c, "failed to create faq")
		return
	}
	response.Created(c, faq)
}

// UpdateFAQ handles PUT /admin/faqs/:faqId.
func (h *Handler) UpdateFAQ(c *gin.Context) {
	id, err := uuid.Parse(c.Param("faqId"))
	if err != nil {
		response.BadRequest(c, "invalid faq id")
		return
	}
	var req FAQRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	m := req.toModel()
	if m.Category == "" {
		m.Category = "general"
	}
	faq, err := h.repo.UpdateFAQ(c.Request.Context(), id, m)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "faq not found")
		} else {
			response.Internal(c, "failed to update faq")
		}
		return
	}
	response.OK(c, faq)
}

// DeleteFAQ handles DELETE /admin/faqs/:faqId.
func (h *Handler) DeleteFAQ(c *gin.Context) {
	id, err := uuid.Parse(c.Param("faqId"))
	if err != nil {
		response.BadRequest(c, "invalid faq id")
		return
	}
	if err := h.repo.DeleteFAQ(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "faq not found")
		} else {
			response.Internal(c, "failed to delete faq")
		}
		return
	}
	response.OK(c, gin.H{"message": "faq deleted"})
}

// BulkDownload handles GET /admin/files/export?status=. It streams a zip of
// every matched session's current file plus a metadata.json manifest. Files
// that cannot be read from storage are skipped and noted in the manifest.
func (h *Handler) BulkDownload(c *gin.Context) {
	status := c.Query("status")
	files, err := h.repo.CurrentFiles(c.Request.Context(), status)
	if err != nil {
		h.logger.Error("export listing failed", zap.Error(err))
		response.Internal(c, "failed to collect files")
		return
	}

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", `attachment; filename="session-files.zip"`)
	c.Status(200)

	zw := zip.NewWriter(c.Writer)
	defer zw.Close()

	type manifestEntry struct {
		ExportFile
		Path  string `json:"path,omitempty"`
		Error string `json:"error,omitempty"`
	}
	manifest := make([]manifestEntry, 0, len(files))

	for _, f := range files {
		entry := manifestEntry{ExportFile: f}
		rc, err := h.store.Open(c.Request.Context(), f.StorageKey)
		if err != nil {
			h.logger.Warn("export skipped unreadable file",
				zap.Error(err), zap.String("file_id", f.FileID.String()))
			entry.Error = "file unavailable"
			manifest = append(manifest, entry)
			continue
		}
		entry.Path = f.SessionID.String() + "/" + f.Filename
		w, err := zw.Create(entry.Path)
		if err == nil {
			_, err = io.Copy(w, rc)
		}
		rc.Close()
		if err != nil {
			// The stream is already committed, nothing to do but stop.
			h.logger.Error("export write failed", zap.Error(err))
			return
		}
		manifest = append(manifest, entry)
	}

	mw, err := zw.Create("metadata.json")
	if err != nil {
		h.logger.Error("export manifest failed", zap.Error(err))
		return
	}
	enc := json.NewEncoder(mw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(manifest); err != nil {
		h.logger.Error("export manifest failed", zap.Error(err))
		return
	}
	h.record(c, "files.exported", "export", status)
}

// Stats handles GET /admin/stats.
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.repo.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("stats query failed", zap.Error(err))
		response.Internal(c, "failed to compute stats")
		return
	}
	response.OK(c, stats)
}

// AuditTrail handles GET /admin/users/:id/audit.
func (h *Handler) AuditTrail(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	list, err := h.auditRepo.ListForUser(c.Request.Context(), userID, limit)
	if err != nil {
		response.Internal(c, "failed to list audit records")
		return
	}
	response.OK(c, list)
}
