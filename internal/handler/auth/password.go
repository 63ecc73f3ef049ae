package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/newsletter-api/internal/handler"
	"github.com/jwalitptl/newsletter-api/internal/middleware"
	"github.com/jwalitptl/newsletter-api/internal/service/auth"
	apperrors "github.com/jwalitptl/newsletter-api/pkg/errors"
)

// PasswordHandler serves the authenticated password-change route.
type PasswordHandler struct {
	svc auth.Service
}

func NewPasswordHandler(svc auth.Service) *PasswordHandler {
	return &PasswordHandler{svc: svc}
}

func (h *PasswordHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/password", h.ChangePassword)
}

type changePasswordRequest struct {
	CurrentPassword  string `form:"current_password" json:"current_password" binding:"required"`
	NewPassword      string `form:"new_password" json:"new_password" binding:"required"`
	NewPasswordCheck string `form:"new_password_check" json:"new_password_check" binding:"required"`
}

func (h *PasswordHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		handler.RespondError(c, apperrors.Validation("invalid password change request", err))
		return
	}
	if req.NewPassword != req.NewPasswordCheck {
		handler.RespondError(c, apperrors.Validation("new passwords do not match", nil))
		return
	}

	userID, ok := middleware.UserID(c)
	if !ok {
		handler.RespondError(c, apperrors.Unauthorized(nil))
		return
	}

	if err := h.svc.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"status": "password changed"}))
}
