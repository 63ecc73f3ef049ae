package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/newsletter-api/internal/middleware"
)

type fakeAuthService struct {
	changeErr   error
	changeCalls int
	userID      uuid.UUID
	current     string
	newPass     string
}

func (f *fakeAuthService) Login(ctx context.Context, email, password string) (string, error) {
	return "", nil
}

func (f *fakeAuthService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	f.changeCalls++
	f.userID = userID
	f.current = currentPassword
	f.newPass = newPassword
	return f.changeErr
}

func postPassword(svc *fakeAuthService, userID *uuid.UUID, form url.Values) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if userID != nil {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.ContextUserID, *userID)
			c.Next()
		})
	}
	NewPasswordHandler(svc).RegisterRoutes(&r.RouterGroup)

	req := httptest.NewRequest(http.MethodPost, "/password", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestChangePasswordRoute(t *testing.T) {
	userID := uuid.New()
	svc := &fakeAuthService{}

	rec := postPassword(svc, &userID, url.Values{
		"current_password":   {"original-password"},
		"new_password":       {"a-much-longer-password"},
		"new_password_check": {"a-much-longer-password"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, svc.changeCalls)
	assert.Equal(t, userID, svc.userID)
	assert.Equal(t, "original-password", svc.current)
	assert.Equal(t, "a-much-longer-password", svc.newPass)
}

func TestChangePasswordRouteRejectsMismatchedNewPasswords(t *testing.T) {
	userID := uuid.New()
	svc := &fakeAuthService{}

	rec := postPassword(svc, &userID, url.Values{
		"current_password":   {"original-password"},
		"new_password":       {"a-much-longer-password"},
		"new_password_check": {"a-different-password"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, svc.changeCalls)
}

func TestChangePasswordRouteRequiresAuthenticatedUser(t *testing.T) {
	svc := &fakeAuthService{}

	rec := postPassword(svc, nil, url.Values{
		"current_password":   {"original-password"},
		"new_password":       {"a-much-longer-password"},
		"new_password_check": {"a-much-longer-password"},
	})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 0, svc.changeCalls)
}
