// Package auth handles back-office accounts and tokens.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stride-coaching/backend/internal/models"
	"github.com/stride-coaching/backend/pkg/response"
	"github.com/stride-coaching/backend/pkg/utils"
)

// ContextUserID is the gin context key holding the caller's uuid.UUID, set by the JWT middleware.
const ContextUserID = "user_id"

// Store persists users.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.UserPublic, error)
	Create(ctx context.Context, u *models.User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
}

// ParseRole accepts the back-office roles.
func ParseRole(s string) (models.Role, bool) {
	switch r := models.Role(strings.ToLower(strings.TrimSpace(s))); r {
	case models.RoleAdmin, models.RoleEditor:
		return r, true
	}
	return "", false
}

// CreateUser hashes the password and stores a new account. Used by the admin endpoint and the CLI.
func CreateUser(ctx context.Context, store Store, email, password, fullName string, role models.Role) (*models.User, error) {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &models.User{Email: strings.TrimSpace(email), Password: hash, FullName: strings.TrimSpace(fullName), Role: role}
	if err := store.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// CreateUserRequest is the body for POST /admin/users.
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"full_name" binding:"required"`
	Role     string `json:"role"` // defaults to editor
}

// ChangePasswordRequest is the body for PUT /auth/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	store  Store
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(store Store, jwt *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, jwt: jwt, logger: logger}
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.store.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			h.logger.Error("load user failed", zap.Error(err))
		}
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		h.logger.Info("login rejected", zap.String("user_id", user.ID.String()))
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	c.JSON(http.StatusOK, response.Body{Success: true, Data: TokenResponse{Token: token, User: user.ToPublic()}})
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	user, ok := h.current(c)
	if !ok {
		return
	}
	response.OK(c, user.ToPublic())
}

// ChangePassword handles PUT /auth/password.
func (h *Handler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	user, ok := h.current(c)
	if !ok {
		return
	}
	if !utils.CheckPassword(req.CurrentPassword, user.Password) {
		response.Unauthorized(c, "current password is incorrect")
		return
	}
	hash, err := utils.HashPassword(req.NewPassword)
	if errors.Is(err, utils.ErrPasswordTooShort) {
		response.BadRequest(c, err.Error())
		return
	}
	if err == nil {
		err = h.store.UpdatePassword(c.Request.Context(), user.ID, hash)
	}
	if err != nil {
		h.logger.Error("change password failed", zap.Error(err))
		response.Internal(c, "failed to change password")
		return
	}
	response.NoContent(c)
}

// List handles GET /admin/users.
func (h *Handler) List(c *gin.Context) {
	list, err := h.store.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list users")
		return
	}
	if list == nil {
		list = []models.UserPublic{}
	}
	c.JSON(http.StatusOK, response.Body{Success: true, Data: list})
}

// Create handles POST /admin/users.
func (h *Handler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	role := models.RoleEditor
	if req.Role != "" {
		r, ok := ParseRole(req.Role)
		if !ok {
			response.BadRequest(c, "invalid role")
			return
		}
		role = r
	}

	user, err := CreateUser(c.Request.Context(), h.store, req.Email, req.Password, req.FullName, role)
	switch {
	case errors.Is(err, utils.ErrPasswordTooShort):
		response.BadRequest(c, err.Error())
		return
	case errors.Is(err, ErrEmailTaken):
		response.Conflict(c, err.Error())
		return
	case err != nil:
		h.logger.Error("create user failed", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}
	h.logger.Info("user created", zap.String("user_id", user.ID.String()), zap.String("role", string(role)))
	response.Created(c, user.ToPublic())
}

func (h *Handler) current(c *gin.Context) (*models.User, bool) {
	id, _ := c.Get(ContextUserID)
	userID, ok := id.(uuid.UUID)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return nil, false
	}
	user, err := h.store.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.Unauthorized(c, "user no longer exists")
		return nil, false
	}
	return user, true
}
