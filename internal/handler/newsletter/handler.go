package newsletter

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/newsletter-api/internal/handler"
	"github.com/jwalitptl/newsletter-api/internal/middleware"
	"github.com/jwalitptl/newsletter-api/internal/model"
	"github.com/jwalitptl/newsletter-api/internal/service/newsletter"
	apperrors "github.com/jwalitptl/newsletter-api/pkg/errors"
)

type Handler struct {
	svc newsletter.Service
}

func NewHandler(svc newsletter.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/newsletters", h.Publish)
}

type publishRequest struct {
	Title          string `form:"title" json:"title" binding:"required"`
	TextContent    string `form:"text_content" json:"text_content" binding:"required"`
	HTMLContent    string `form:"html_content" json:"html_content" binding:"required"`
	IdempotencyKey string `form:"idempotency_key" json:"idempotency_key" binding:"required"`
}

// Publish accepts a newsletter issue for delivery. Submitting the same
// idempotency key again returns the original response unchanged.
func (h *Handler) Publish(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBind(&req); err != nil {
		handler.RespondError(c, apperrors.Validation("invalid publish request", err))
		return
	}

	key, err := model.ParseIdempotencyKey(req.IdempotencyKey)
	if err != nil {
		handler.RespondError(c, apperrors.Validation(err.Error(), err))
		return
	}

	userID, ok := middleware.UserID(c)
	if !ok {
		handler.RespondError(c, apperrors.Unauthorized(nil))
		return
	}

	resp, err := h.svc.Publish(c.Request.Context(), userID, key, newsletter.PublishInput{
		Title:       req.Title,
		TextContent: req.TextContent,
		HTMLContent: req.HTMLContent,
	})
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	writeSavedResponse(c, resp)
}

// writeSavedResponse replays a cached response verbatim: status, ordered
// headers (duplicates preserved), raw body bytes.
func writeSavedResponse(c *gin.Context, resp *model.SavedResponse) {
	for _, header := range resp.Headers {
		c.Writer.Header().Add(header.Name, header.Value)
	}
	c.Status(resp.StatusCode)
	if len(resp.Body) > 0 {
		c.Writer.Write(resp.Body)
	}
}
