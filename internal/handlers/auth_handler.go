package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"

	"storefront/internal/auth"
	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/repository"
)

type AuthHandler struct {
	users  UserStore
	tokens *auth.TokenManager
	logger *slog.Logger
}

func NewAuthHandler(users UserStore, tokens *auth.TokenManager, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:  users,
		tokens: tokens,
		logger: logger.Resolve(log),
	}
}

// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	password, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(c, h.logger, err, "user")
		return
	}
	answer, err := auth.HashPassword(auth.NormalizeAnswer(req.Answer))
	if err != nil {
		respondError(c, h.logger, err, "user")
		return
	}

	user := &models.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    req.Email,
		Password: password,
		Phone:    strings.TrimSpace(req.Phone),
		Address:  strings.TrimSpace(req.Address),
		Answer:   answer,
		Role:     models.RoleUser,
	}
	if err := h.users.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "email is already registered, please login"})
			return
		}
		respondError(c, h.logger, err, "user")
		return
	}

	h.logger.Info("user registered", "user_id", user.ID.Hex())
	c.JSON(http.StatusCreated, gin.H{"message": "user registered", "user": user})
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	user, err := h.users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		respondError(c, h.logger, err, "user")
		return
	}
	if user == nil || !auth.CheckPassword(user.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid email or password"})
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		respondError(c, h.logger, err, "token")
		return
	}

	c.JSON(http.StatusOK, models.AuthResponse{User: user, Token: token})
}

// POST /api/v1/auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	user, err := h.users.FindByEmail(c.Request.Context(), req.Email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		respondError(c, h.logger, err, "user")
		return
	}
	if user == nil || !auth.CheckPassword(user.Answer, auth.NormalizeAnswer(req.Answer)) {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "wrong email or answer"})
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		respondError(c, h.logger, err, "user")
		return
	}
	if err := h.users.UpdatePassword(c.Request.Context(), user.ID, hash); err != nil {
		respondError(c, h.logger, err, "user")
		return
	}

	h.logger.Info("password reset", "user_id", user.ID.Hex())
	c.JSON(http.StatusOK, SuccessResponse{Message: "password reset successfully"})
}

// GET /api/v1/auth/user-auth and /api/v1/auth/admin-auth. The guards do
// the work; reaching the handler means the check passed.
func (h *AuthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// PUT /api/v1/auth/profile
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	var req models.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	fields := bson.M{}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		fields["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.Address != nil {
		fields["address"] = strings.TrimSpace(*req.Address)
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			respondError(c, h.logger, err, "user")
			return
		}
		fields["password"] = hash
	}

	if len(fields) == 0 {
		badRequest(c, "no valid fields to update")
		return
	}

	user, err := h.users.Update(c.Request.Context(), userID, fields)
	if err != nil {
		respondError(c, h.logger, err, "user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "profile updated", "user": user})
}
