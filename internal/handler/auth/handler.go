package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/newsletter-api/internal/handler"
	"github.com/jwalitptl/newsletter-api/internal/service/auth"
	apperrors "github.com/jwalitptl/newsletter-api/pkg/errors"
)

type Handler struct {
	svc auth.Service
}

func NewHandler(svc auth.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/login", h.Login)
}

type loginRequest struct {
	Email    string `form:"email" json:"email" binding:"required,email"`
	Password string `form:"password" json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		handler.RespondError(c, apperrors.Validation("invalid login request", err))
		return
	}

	token, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"token": token}))
}
