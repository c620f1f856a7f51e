package auth

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cybercon/speaker-portal/internal/audit"
	"github.com/cybercon/speaker-portal/internal/models"
	"github.com/cybercon/speaker-portal/pkg/response"
	"github.com/cybercon/speaker-portal/pkg/utils"
)

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required"`
	FirstName       string `json:"first_name" binding:"required"`
	LastName        string `json:"last_name" binding:"required"`
	Organization    string `json:"organization"`
	Phone           string `json:"phone"`
	Bio             string `json:"bio"`
	InvitationToken string `json:"invitation_token"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	MFACode  string `json:"mfa_code"`
}

// TokenResponse is the auth response with access and refresh JWTs.
type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user"`
}

// TokenIssuer issues and validates the JWT pair the auth endpoints hand out.
// *JWTService implements it.
type TokenIssuer interface {
	GenerateAccess(userID uuid.UUID, email string, roles []string) (string, error)
	GenerateRefresh(userID uuid.UUID, email string, roles []string) (string, error)
	ValidateRefresh(token string) (*Claims, error)
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo    *Repository
	jwt     TokenIssuer
	mfa     *MFA
	revoker *Revoker
	audit   *audit.Repository
	logger  *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, jwt TokenIssuer, mfa *MFA, revoker *Revoker, auditRepo *audit.Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, jwt: jwt, mfa: mfa, revoker: revoker, audit: auditRepo, logger: logger}
}

func (h *Handler) record(c *gin.Context, userID *uuid.UUID, action, resourceType, resourceID string, details map[string]interface{}) {
	h.audit.Record(c.Request.Context(), audit.Entry{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
		IPAddress:    c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
	})
}

// Register handles POST /auth/register.
// An invitation token grants the invited role; otherwise the account is a speaker.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := ValidatePassword(req.Password); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	roleName := models.RoleSpeaker
	var invitation *models.ApproverInvitation
	if req.InvitationToken != "" {
		inv, err := h.repo.GetInvitationByToken(c.Request.Context(), req.InvitationToken)
		if err != nil {
			response.BadRequest(c, "invalid invitation token")
			return
		}
		if !inv.Valid(time.Now()) {
			response.BadRequest(c, "invitation token is expired or already used")
			return
		}
		roleName = inv.RoleName
		invitation = inv
	}

	if _, err := h.repo.GetByEmail(c.Request.Context(), req.Email); err == nil {
		response.Conflict(c, "email already registered")
		return
	} else if !errors.Is(err, ErrNotFound) {
		response.Internal(c, "failed to check email")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	user, err := h.repo.Create(c.Request.Context(), CreateUserParams{
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Organization: req.Organization,
		Phone:        req.Phone,
		Bio:          req.Bio,
	}, roleName)
	if err != nil {
		h.logger.Error("create user failed", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}

	if invitation != nil {
		if err := h.repo.MarkInvitationUsed(c.Request.Context(), invitation.ID, time.Now()); err != nil {
			h.logger.Error("mark invitation used failed", zap.Error(err), zap.String("invitation_id", invitation.ID.String()))
		}
	}

	h.record(c, &user.ID, "user.register", "user", user.ID.String(), map[string]interface{}{"role": roleName})
	tokens, err := h.tokens(user)
	if err != nil {
		h.logger.Error("issue tokens failed", zap.Error(err))
		response.Internal(c, "failed to issue tokens")
		return
	}
	response.Created(c, tokens)
}

// Login handles POST /auth/login. Accounts with MFA enabled must supply a
// valid TOTP code; the first call without one gets an mfa_required reply.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil || !utils.CheckPassword(req.Password, user.PasswordHash) {
		h.record(c, nil, "user.login_failed", "user", req.Email, nil)
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if !user.IsActive {
		h.record(c, &user.ID, "user.login_inactive", "user", user.ID.String(), nil)
		response.Forbidden(c, "account is deactivated")
		return
	}

	if user.MFAEnabled {
		if req.MFACode == "" {
			response.OK(c, gin.H{"mfa_required": true})
			return
		}
		if !h.mfa.VerifyCode(user.MFASecret, req.MFACode) {
			h.record(c, &user.ID, "user.login_mfa_failed", "user", user.ID.String(), nil)
			response.Unauthorized(c, "invalid MFA code")
			return
		}
	}

	if err := h.repo.RecordLogin(c.Request.Context(), user.ID); err != nil {
		h.logger.Warn("record login failed", zap.Error(err))
	}
	h.record(c, &user.ID, "user.login", "user", user.ID.String(), nil)
	tokens, err := h.tokens(user)
	if err != nil {
		h.logger.Error("issue tokens failed", zap.Error(err))
		response.Internal(c, "failed to issue tokens")
		return
	}
	response.OK(c, tokens)
}

func (h *Handler) tokens(user *models.User) (*TokenResponse, error) {
	access, err := h.jwt.GenerateAccess(user.ID, user.Email, user.Roles)
	if err != nil {
		return nil, err
	}
	refresh, err := h.jwt.GenerateRefresh(user.ID, user.Email, user.Roles)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

// RefreshRequest is the body for POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh handles POST /auth/refresh: refresh token in, new access token out.
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	claims, err := h.jwt.ValidateRefresh(req.RefreshToken)
	if err != nil {
		response.Unauthorized(c, "invalid refresh token")
		return
	}
	if revoked, err := h.revoker.IsRevoked(c.Request.Context(), claims.ID); err == nil && revoked {
		response.Unauthorized(c, "token revoked")
		return
	}
	user, err := h.repo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil || !user.IsActive {
		response.Unauthorized(c, "account unavailable")
		return
	}
	access, err := h.jwt.GenerateAccess(user.ID, user.Email, user.Roles)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, gin.H{"access_token": access})
}

// Logout handles POST /auth/logout: revokes the presented token's jti.
func (h *Handler) Logout(c *gin.Context) {
	claims := claimsFrom(c)
	if claims == nil {
		response.Unauthorized(c, "not authenticated")
		return
	}
	until := time.Now().Add(time.Hour)
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	if err := h.revoker.Revoke(c.Request.Context(), claims.ID, until); err != nil {
		response.Internal(c, "failed to revoke token")
		return
	}
	h.record(c, &claims.UserID, "user.logout", "user", claims.UserID.String(), nil)
	response.OK(c, gin.H{"message": "logged out"})
}

// Profile handles GET /auth/profile.
func (h *Handler) Profile(c *gin.Context) {
	claims := claimsFrom(c)
	user, err := h.repo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}
	response.OK(c, user)
}

// UpdateProfileRequest is the body for PUT /auth/profile.
type UpdateProfileRequest struct {
	FirstName    string `json:"first_name" binding:"required"`
	LastName     string `json:"last_name" binding:"required"`
	Organization string `json:"organization"`
	Phone        string `json:"phone"`
	Bio          string `json:"bio"`
}

// UpdateProfile handles PUT /auth/profile.
func (h *Handler) UpdateProfile(c *gin.Context) {
	claims := claimsFrom(c)
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	user, err := h.repo.UpdateProfile(c.Request.Context(), claims.UserID,
		req.FirstName, req.LastName, req.Organization, req.Phone, req.Bio)
	if err != nil {
		response.Internal(c, "failed to update profile")
		return
	}
	response.OK(c, user)
}

// ChangePasswordRequest is the body for POST /auth/change-password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// ChangePassword handles POST /auth/change-password.
func (h *Handler) ChangePassword(c *gin.Context) {
	claims := claimsFrom(c)
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	user, err := h.repo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}
	if !utils.CheckPassword(req.CurrentPassword, user.PasswordHash) {
		response.Unauthorized(c, "current password is incorrect")
		return
	}
	if err := ValidatePassword(req.NewPassword); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	if err := h.repo.UpdatePassword(c.Request.Context(), user.ID, hash); err != nil {
		response.Internal(c, "failed to update password")
		return
	}
	h.record(c, &user.ID, "user.change_password", "user", user.ID.String(), nil)
	response.OK(c, gin.H{"message": "password updated"})
}

// MFASetup handles POST /auth/mfa/setup: generates a pending secret and
// returns the otpauth provisioning URI. MFA is not enabled until verified.
func (h *Handler) MFASetup(c *gin.Context) {
	claims := claimsFrom(c)
	user, err := h.repo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}
	if user.MFAEnabled {
		response.BadRequest(c, "MFA is already enabled")
		return
	}
	secret, uri, err := h.mfa.GenerateSecret(user.Email)
	if err != nil {
		response.Internal(c, "failed to generate MFA secret")
		return
	}
	if err := h.repo.SetMFASecret(c.Request.Context(), user.ID, secret); err != nil {
		response.Internal(c, "failed to store MFA secret")
		return
	}
	response.OK(c, gin.H{"secret": secret, "provisioning_uri": uri})
}

// MFACodeRequest carries a TOTP code.
type MFACodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// MFAVerify handles POST /auth/mfa/verify: a valid code enables MFA.
func (h *Handler) MFAVerify(c *gin.Context) {
	claims := claimsFrom(c)
	var req MFACodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	user, err := h.repo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}
	if user.MFASecret == "" {
		response.BadRequest(c, "MFA setup has not been started")
		return
	}
	if !h.mfa.VerifyCode(user.MFASecret, req.Code) {
		response.BadRequest(c, "invalid MFA code")
		return
	}
	if err := h.repo.SetMFAEnabled(c.Request.Context(), user.ID, true); err != nil {
		response.Internal(c, "failed to enable MFA")
		return
	}
	h.record(c, &user.ID, "user.mfa_enabled", "user", user.ID.String(), nil)
	response.OK(c, gin.H{"message": "MFA enabled"})
}

// MFADisableRequest requires both the password and a valid code.
type MFADisableRequest struct {
	Password string `json:"password" binding:"required"`
	Code     string `json:"code" binding:"required"`
}

// MFADisable handles POST /auth/mfa/disable.
func (h *Handler) MFADisable(c *gin.Context) {
	claims := claimsFrom(c)
	var req MFADisableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	user, err := h.repo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}
	if !user.MFAEnabled {
		response.BadRequest(c, "MFA is not enabled")
		return
	}
	if !utils.CheckPassword(req.Password, user.PasswordHash) {
		response.Unauthorized(c, "password is incorrect")
		return
	}
	if !h.mfa.VerifyCode(user.MFASecret, req.Code) {
		response.BadRequest(c, "invalid MFA code")
		return
	}
	if err := h.repo.SetMFAEnabled(c.Request.Context(), user.ID, false); err != nil {
		response.Internal(c, "failed to disable MFA")
		return
	}
	h.record(c, &user.ID, "user.mfa_disabled", "user", user.ID.String(), nil)
	response.OK(c, gin.H{"message": "MFA disabled"})
}
