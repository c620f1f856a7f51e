package files

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cybercon/speaker-portal/internal/auth"
	"github.com/cybercon/speaker-portal/internal/metrics"
	"github.com/cybercon/speaker-portal/internal/models"
	"github.com/cybercon/speaker-portal/internal/policy"
	"github.com/cybercon/speaker-portal/internal/sessions"
	"github.com/cybercon/speaker-portal/pkg/response"
	"github.com/cybercon/speaker-portal/pkg/storage"
)

// VersionStore is the file version persistence surface. *Repository
// implements it.
type VersionStore interface {
	CreateVersion(ctx context.Context, p CreateVersionParams) (*models.SessionFile, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.SessionFile, error)
	GetCurrent(ctx context.Context, sessionID uuid.UUID) (*models.SessionFile, error)
	ListVersions(ctx context.Context, sessionID uuid.UUID) ([]models.SessionFile, error)
	Delete(ctx context.Context, id uuid.UUID) (*models.SessionFile, error)
}

// SessionSource loads sessions for access checks. *sessions.Repository
// implements it.
type SessionSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
}

// Handler handles session file HTTP endpoints.
type Handler struct {
	repo        VersionStore
	sessionRepo SessionSource
	store       storage.Store
	maxBytes    int64
	allowedExts map[string]struct{}
	logger      *zap.Logger
}

// NewHandler creates a files handler.
func NewHandler(repo VersionStore, sessionRepo SessionSource, store storage.Store, maxFileSizeMB int, allowedExtensions []string, logger *zap.Logger) *Handler {
	exts := make(map[string]struct{})
	for _, e := range allowedExtensions {
		exts[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}
	return &Handler{
		repo:        repo,
		sessionRepo: sessionRepo,
		store:       store,
		maxBytes:    int64(maxFileSizeMB) * 1024 * 1024,
		allowedExts: exts,
		logger:      logger,
	}
}

func (h *Handler) loadSession(c *gin.Context, sessionID uuid.UUID, action policy.Action) *models.Session {
	session, err := h.sessionRepo.GetByID(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			response.NotFound(c, "session not found")
		} else {
			response.Internal(c, "failed to load session")
		}
		return nil
	}
	claims := auth.ClaimsFrom(c)
	actor := policy.Actor{UserID: claims.UserID, Roles: claims.Roles}
	if !policy.CanAccess(actor, session, action) {
		response.Forbidden(c, "not allowed for this session")
		return nil
	}
	return session
}

func sessionIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return uuid.Nil, false
	}
	return id, true
}

// Upload handles POST /sessions/:id/files (multipart field "file"). The body
// streams through a SHA-256 hasher into the store; a hashing or storage
// failure aborts the upload and nothing is recorded.
func (h *Handler) Upload(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	if h.loadSession(c, sessionID, policy.ActionEdit) == nil {
		return
	}
	claims := auth.ClaimsFrom(c)

	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file field is required")
		return
	}
	if fh.Size > h.maxBytes {
		metrics.FileUploads.WithLabelValues("too_large").Inc()
		response.PayloadTooLarge(c, "file exceeds the maximum upload size")
		return
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if _, ok := h.allowedExts[ext]; !ok {
		metrics.FileUploads.WithLabelValues("bad_type").Inc()
		response.BadRequest(c, "file type not allowed")
		return
	}

	src, err := fh.Open()
	if err != nil {
		response.Internal(c, "failed to read upload")
		return
	}
	defer src.Close()

	fileID := uuid.New()
	key := storage.FileKey(sessionID.String(), fileID.String(), ext)
	hasher := sha256.New()
	written, err := h.store.Save(c.Request.Context(), key, io.TeeReader(io.LimitReader(src, h.maxBytes+1), hasher))
	if err != nil {
		h.logger.Error("store upload failed", zap.Error(err), zap.String("session_id", sessionID.String()))
		metrics.FileUploads.WithLabelValues("error").Inc()
		response.Internal(c, "failed to store file")
		return
	}
	if written > h.maxBytes {
		_ = h.store.Delete(c.Request.Context(), key)
		metrics.FileUploads.WithLabelValues("too_large").Inc()
		response.PayloadTooLarge(c, "file exceeds the maximum upload size")
		return
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(ext)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	file, err := h.repo.CreateVersion(c.Request.Context(), CreateVersionParams{
		ID:               fileID,
		SessionID:        sessionID,
		UploadedBy:       claims.UserID,
		OriginalFilename: filepath.Base(fh.Filename),
		StorageKey:       key,
		ContentType:      contentType,
		SizeBytes:        written,
		SHA256:           hex.EncodeToString(hasher.Sum(nil)),
	})
	if err != nil {
		_ = h.store.Delete(c.Request.Context(), key)
		h.logger.Error("record upload failed", zap.Error(err), zap.String("session_id", sessionID.String()))
		metrics.FileUploads.WithLabelValues("error").Inc()
		response.Internal(c, "failed to record file")
		return
	}
	metrics.FileUploads.WithLabelValues("ok").Inc()
	response.Created(c, file)
}

// ListVersions handles GET /sessions/:id/files.
func (h *Handler) ListVersions(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	if h.loadSession(c, sessionID, policy.ActionView) == nil {
		return
	}
	list, err := h.repo.ListVersions(c.Request.Context(), sessionID)
	if err != nil {
		response.Internal(c, "failed to list files")
		return
	}
	response.OK(c, list)
}

// DownloadCurrent handles GET /sessions/:id/file.
func (h *Handler) DownloadCurrent(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	if h.loadSession(c, sessionID, policy.ActionView) == nil {
		return
	}
	file, err := h.repo.GetCurrent(c.Request.Context(), sessionID)
	if err != nil {
		response.NotFound(c, "no current file for this session")
		return
	}
	h.stream(c, file, true)
}

// Download handles GET /files/:fileId (attachment) after a session access check.
func (h *Handler) Download(c *gin.Context) {
	h.serveByID(c, true)
}

// View handles GET /files/:fileId/view (inline).
func (h *Handler) View(c *gin.Context) {
	h.serveByID(c, false)
}

func (h *Handler) serveByID(c *gin.Context, attachment bool) {
	fileID, err := uuid.Parse(c.Param("fileId"))
	if err != nil {
		response.BadRequest(c, "invalid file id")
		return
	}
	file, err := h.repo.GetByID(c.Request.Context(), fileID)
	if err != nil {
		response.NotFound(c, "file not found")
		return
	}
	if h.loadSession(c, file.SessionID, policy.ActionView) == nil {
		return
	}
	h.stream(c, file, attachment)
}

func (h *Handler) stream(c *gin.Context, file *models.SessionFile, attachment bool) {
	body, err := h.store.Open(c.Request.Context(), file.StorageKey)
	if err != nil {
		h.logger.Error("open stored file failed", zap.Error(err), zap.String("file_id", file.ID.String()))
		response.Internal(c, "failed to open file")
		return
	}
	defer body.Close()

	disposition := "inline"
	if attachment {
		disposition = "attachment"
	}
	c.Header("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": file.OriginalFilename}))
	c.Header("X-Checksum-Sha256", file.SHA256)
	c.DataFromReader(200, file.SizeBytes, file.ContentType, body, nil)
}

// Delete handles DELETE /files/:fileId (edit permission on the session).
func (h *Handler) Delete(c *gin.Context) {
	fileID, err := uuid.Parse(c.Param("fileId"))
	if err != nil {
		response.BadRequest(c, "invalid file id")
		return
	}
	file, err := h.repo.GetByID(c.Request.Context(), fileID)
	if err != nil {
		response.NotFound(c, "file not found")
		return
	}
	if h.loadSession(c, file.SessionID, policy.ActionEdit) == nil {
		return
	}
	deleted, err := h.repo.Delete(c.Request.Context(), file.ID)
	if err != nil {
		response.Internal(c, "failed to delete file")
		return
	}
	if err := h.store.Delete(c.Request.Context(), deleted.StorageKey); err != nil {
		h.logger.Warn("delete stored object failed", zap.Error(err), zap.String("key", deleted.StorageKey))
	}
	response.NoContent(c)
}
