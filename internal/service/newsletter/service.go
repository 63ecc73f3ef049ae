package newsletter

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/jwalitptl/newsletter-api/internal/model"
	"github.com/jwalitptl/newsletter-api/internal/repository"
	"github.com/jwalitptl/newsletter-api/internal/service/idempotency"
	apperrors "github.com/jwalitptl/newsletter-api/pkg/errors"
	"github.com/jwalitptl/newsletter-api/pkg/logger"
	"github.com/jwalitptl/newsletter-api/pkg/messaging"
	"github.com/jwalitptl/newsletter-api/pkg/metrics"
)

// PublishInput is the business payload of one publish request.
type PublishInput struct {
	Title       string
	TextContent string
	HTMLContent string
}

type Service interface {
	// Publish has exactly-once effect per (userID, key): one issue, one
	// delivery queue row per confirmed recipient, one cached response.
	// Duplicate submissions get the first response back; a submission racing
	// the in-flight original gets a Conflict error.
	Publish(ctx context.Context, userID uuid.UUID, key model.IdempotencyKey, input PublishInput) (*model.SavedResponse, error)
}

type service struct {
	coordinator idempotency.Service
	issues      repository.IssueRepository
	subs        repository.SubscriptionRepository
	broker      messaging.Broker
	logger      *logger.Logger
	metrics     *metrics.Metrics
}

func NewService(
	coordinator idempotency.Service,
	issues repository.IssueRepository,
	subs repository.SubscriptionRepository,
	broker messaging.Broker,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) Service {
	return &service{
		coordinator: coordinator,
		issues:      issues,
		subs:        subs,
		broker:      broker,
		logger:      logger,
		metrics:     metrics,
	}
}

func (s *service) Publish(ctx context.Context, userID uuid.UUID, key model.IdempotencyKey, input PublishInput) (*model.SavedResponse, error) {
	next, err := s.coordinator.TryProcessing(ctx, userID, key)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrConflict) {
			s.metrics.IdempotentConflicts.Inc()
		}
		return nil, err
	}

	switch action := next.(type) {
	case idempotency.ReturnSaved:
		s.metrics.IdempotentReplays.Inc()
		s.logger.Info("replaying cached publish response",
			"user_id", userID.String(), "idempotency_key", key.String())
		return action.Response, nil

	case idempotency.StartProcessing:
		tx := action.Tx
		committed := false
		defer func() {
			if !committed {
				tx.Rollback()
			}
		}()

		recipients, err := s.subs.GetConfirmedEmails(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load confirmed subscribers: %w", err)
		}

		issue := &model.NewsletterIssue{
			Title:       input.Title,
			TextContent: input.TextContent,
			HTMLContent: input.HTMLContent,
		}
		if err := s.issues.CreateWithDeliveryQueue(ctx, tx, issue, recipients); err != nil {
			return nil, fmt.Errorf("failed to enqueue newsletter issue: %w", err)
		}

		resp := publishedResponse()
		if err := s.coordinator.SaveResponse(ctx, tx, userID, key, resp); err != nil {
			return nil, err
		}

		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit publish transaction: %w", err)
		}
		committed = true

		s.metrics.IssuesPublished.Inc()
		s.logger.Info("newsletter issue published",
			"issue_id", issue.ID.String(),
			"recipients", len(recipients),
			"user_id", userID.String())

		// Post-commit notification only; delivery correctness never depends
		// on the broker.
		if err := s.broker.Publish(ctx, messaging.ChannelIssuePublished, map[string]interface{}{
			"issue_id":   issue.ID.String(),
			"title":      issue.Title,
			"recipients": len(recipients),
		}); err != nil {
			s.logger.Error(err, "failed to publish issue event", "issue_id", issue.ID.String())
		}

		return resp, nil

	default:
		return nil, fmt.Errorf("unknown next action %T", next)
	}
}

// publishedResponse is the response cached and replayed for a publish: the
// redirect back to the admin newsletter form.
func publishedResponse() *model.SavedResponse {
	return &model.SavedResponse{
		StatusCode: http.StatusSeeOther,
		Headers: []model.HeaderPair{
			{Name: "Location", Value: "/admin/newsletters"},
		},
		Body: nil,
	}
}
