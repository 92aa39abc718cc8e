package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"foundermatch/internal/model"
	"foundermatch/internal/service/auth"
)

type AuthHandler struct {
	auth   *auth.Service
	logger *zap.Logger
}

func NewAuthHandler(svc *auth.Service, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: svc, logger: logger}
}

type registerRequest struct {
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Name     string     `json:"name"`
	Role     model.Role `json:"role"`
}

// Register POST /register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.auth.Register(c.Request.Context(), req.Email, req.Password, req.Name, req.Role)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login POST /login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	token, user, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// Me GET /me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.auth.Me(c.Request.Context(), Actor(c))
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
