package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mockprep/coach-gateway/internal/backend"
	"github.com/mockprep/coach-gateway/internal/config"
	"github.com/mockprep/coach-gateway/internal/middleware"
	"github.com/mockprep/coach-gateway/internal/model"
	"github.com/mockprep/coach-gateway/internal/response"
	"github.com/mockprep/coach-gateway/internal/service"
	"github.com/mockprep/coach-gateway/internal/validator"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService *service.AuthService
	cfg         *config.Config
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{authService: authService, cfg: cfg}
}

// Signup godoc
// POST /api/v1/auth/signup
// Registers a new account with the interview backend.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req model.SignupRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.authService.Signup(c.Request.Context(), req); err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest {
			response.FailWithMessage(c, http.StatusConflict, response.ErrAccountExists, apiErr.Detail)
			return
		}
		fail(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"message": "User registered successfully"})
}

// Login godoc
// POST /api/v1/auth/login
// Verifies credentials with the backend, sets the session cookie and returns
// the same token for clients that prefer the Authorization header.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	token, sess, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	h.setSessionCookie(c, token, int(h.cfg.JWTExpiry.Seconds()))
	response.Success(c, http.StatusOK, model.LoginResponse{
		Token:     token,
		ExpiresAt: sess.ExpiresAt.Unix(),
		User:      sess.User(),
	})
}

// Logout godoc
// POST /api/v1/auth/logout
// Ends the backend session and drops the gateway session.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims.ID); err != nil {
		fail(c, err)
		return
	}

	h.setSessionCookie(c, "", -1)
	response.Success(c, http.StatusOK, gin.H{})
}

// Me godoc
// GET /api/v1/auth/me
// Returns the logged-in user as the backend currently knows them.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sess, err := h.authService.Refresh(c.Request.Context(), claims.ID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": sess.User()})
}

// ForgotPassword godoc
// POST /api/v1/auth/forgot-password
// Sets a new password for the account with the given email.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req model.ForgotPasswordRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.authService.ForgotPassword(c.Request.Context(), req); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Password updated successfully"})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.SessionCookie, value, maxAge, "/", "", h.cfg.GinMode == gin.ReleaseMode, true)
}
