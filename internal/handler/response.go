package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/newsletter-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// RespondError maps the application error taxonomy to HTTP statuses.
func RespondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch apperrors.Code(err) {
	case apperrors.ErrValidation:
		status = http.StatusBadRequest
		message = err.Error()
	case apperrors.ErrConflict:
		status = http.StatusConflict
		message = err.Error()
	case apperrors.ErrNotFound:
		status = http.StatusNotFound
		message = err.Error()
	case apperrors.ErrUnauthorized:
		status = http.StatusUnauthorized
		message = "unauthorized"
	}

	c.JSON(status, NewErrorResponse(message))
}
