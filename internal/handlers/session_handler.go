package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/busticket-client/internal/models"
	"github.com/smarttransit/busticket-client/internal/session"
	"github.com/smarttransit/busticket-client/internal/utils"
	"github.com/smarttransit/busticket-client/pkg/validator"
)

// SessionManager is the part of the session store driven over HTTP
type SessionManager interface {
	Login(ctx context.Context, email, password string) (*models.User, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Refresh(ctx context.Context) (string, error)
	Logout(ctx context.Context)
	Snapshot() session.Snapshot
}

// SessionHandler handles login, registration and logout
type SessionHandler struct {
	sessions  SessionManager
	validator *validator.Validator
	logger    *logrus.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions SessionManager, v *validator.Validator, logger *logrus.Logger) *SessionHandler {
	return &SessionHandler{
		sessions:  sessions,
		validator: v,
		logger:    logger,
	}
}

// Login handles POST /api/v1/session/login
func (h *SessionHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Email and password are required")
		return
	}

	user, err := h.sessions.Login(c.Request.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"email":     req.Email,
			"client_ip": utils.ClientIP(c),
		}).Warn("Login failed")
		respondError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"user_id":   user.ID,
		"client_ip": utils.ClientIP(c),
	}).Info("User logged in")

	c.JSON(http.StatusOK, gin.H{
		"user":    user,
		"session": h.sessions.Snapshot(),
	})
}

// Register handles POST /api/v1/session/register
func (h *SessionHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Name, email and password are required")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Phone != "" {
		phone, err := h.validator.Phone().Validate(req.Phone)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
				Error:   "validation_error",
				Message: "Please enter a valid phone number",
				Code:    "INVALID_PHONE",
				Field:   "phone",
			})
			return
		}
		req.Phone = phone
	}

	user, err := h.sessions.Register(c.Request.Context(), req)
	if err != nil {
		h.logger.WithField("email", req.Email).Warn("Registration failed")
		respondError(c, h.logger, err)
		return
	}

	h.logger.WithField("user_id", user.ID).Info("User registered")

	c.JSON(http.StatusCreated, gin.H{
		"user":    user,
		"session": h.sessions.Snapshot(),
	})
}

// Refresh handles POST /api/v1/session/refresh
func (h *SessionHandler) Refresh(c *gin.Context) {
	if _, err := h.sessions.Refresh(c.Request.Context()); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": h.sessions.Snapshot()})
}

// Logout handles POST /api/v1/session/logout
func (h *SessionHandler) Logout(c *gin.Context) {
	h.sessions.Logout(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Get handles GET /api/v1/session
func (h *SessionHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.sessions.Snapshot())
}
