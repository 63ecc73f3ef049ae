package subscription

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/newsletter-api/internal/handler"
	"github.com/jwalitptl/newsletter-api/internal/service/subscription"
	apperrors "github.com/jwalitptl/newsletter-api/pkg/errors"
)

type Handler struct {
	svc subscription.Service
}

func NewHandler(svc subscription.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/subscriptions", h.Subscribe)
	r.GET("/subscriptions/confirm", h.Confirm)
}

type subscribeRequest struct {
	Email string `form:"email" json:"email" binding:"required,email"`
	Name  string `form:"name" json:"name" binding:"required"`
}

func (h *Handler) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBind(&req); err != nil {
		handler.RespondError(c, apperrors.Validation("invalid subscription request", err))
		return
	}

	sub, err := h.svc.Subscribe(c.Request.Context(), req.Email, req.Name)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(sub))
}

func (h *Handler) Confirm(c *gin.Context) {
	token := c.Query("token")
	if err := h.svc.Confirm(c.Request.Context(), token); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"status": "confirmed"}))
}
