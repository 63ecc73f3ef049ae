package subscription

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/jwalitptl/newsletter-api/internal/email"
	"github.com/jwalitptl/newsletter-api/internal/model"
	"github.com/jwalitptl/newsletter-api/internal/repository"
	apperrors "github.com/jwalitptl/newsletter-api/pkg/errors"
	"github.com/jwalitptl/newsletter-api/pkg/logger"
)

type Service interface {
	Subscribe(ctx context.Context, email, name string) (*model.Subscription, error)
	Confirm(ctx context.Context, token string) error
}

type service struct {
	repo    repository.SubscriptionRepository
	sender  email.Sender
	baseURL string
	logger  *logger.Logger
}

func NewService(repo repository.SubscriptionRepository, sender email.Sender, baseURL string, logger *logger.Logger) Service {
	return &service{repo: repo, sender: sender, baseURL: baseURL, logger: logger}
}

func (s *service) Subscribe(ctx context.Context, email, name string) (*model.Subscription, error) {
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.Conflict("email is already subscribed", nil)
	}

	sub := &model.Subscription{
		Email: email,
		Name:  name,
	}
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate confirmation token: %w", err)
	}

	if err := s.repo.Create(ctx, sub, token); err != nil {
		return nil, err
	}

	if err := s.sendConfirmationEmail(ctx, email, token); err != nil {
		return nil, fmt.Errorf("failed to send confirmation email: %w", err)
	}

	s.logger.Info("subscription created", "email", email, "subscription_id", sub.ID.String())
	return sub, nil
}

func (s *service) Confirm(ctx context.Context, token string) error {
	if token == "" {
		return apperrors.Validation("confirmation token is required", nil)
	}
	if err := s.repo.ConfirmByToken(ctx, token); err != nil {
		return apperrors.NotFound("confirmation token", err)
	}
	return nil
}

// sendConfirmationEmail mails the link that flips the subscription to
// confirmed. Without it the pending row is unreachable.
func (s *service) sendConfirmationEmail(ctx context.Context, recipient, token string) error {
	link := fmt.Sprintf("%s/subscriptions/confirm?token=%s", s.baseURL, token)
	htmlBody := fmt.Sprintf(
		"Welcome to our newsletter!<br />Click <a href=\"%s\">here</a> to confirm your subscription.", link)
	textBody := fmt.Sprintf(
		"Welcome to our newsletter!\nVisit %s to confirm your subscription.", link)
	return s.sender.Send(ctx, recipient, "Please confirm your subscription", htmlBody, textBody)
}

func generateToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
