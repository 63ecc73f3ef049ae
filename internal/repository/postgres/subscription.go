package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/newsletter-api/internal/model"
	"github.com/jwalitptl/newsletter-api/internal/repository"
	apperrors "github.com/jwalitptl/newsletter-api/pkg/errors"
)

type subscriptionRepository struct {
	BaseRepository
}

func NewSubscriptionRepository(base BaseRepository) repository.SubscriptionRepository {
	return &subscriptionRepository{base}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *model.Subscription, token string) error {
	if sub == nil {
		return fmt.Errorf("subscription cannot be nil")
	}

	sub.ID = uuid.New()
	sub.Status = model.SubscriptionStatusPending
	sub.SubscribedAt = time.Now()

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO subscriptions (id, email, name, status, subscribed_at)
			VALUES ($1, $2, $3, $4, $5)
		`
		if _, err := tx.ExecContext(ctx, query, sub.ID, sub.Email, sub.Name, sub.Status, sub.SubscribedAt); err != nil {
			// Two concurrent subscribes for one email both pass the service's
			// existence check; the unique index decides the race.
			if isUniqueViolation(err) {
				return apperrors.Conflict("email is already subscribed", err)
			}
			return fmt.Errorf("failed to create subscription: %w", err)
		}

		tokenQuery := `
			INSERT INTO subscription_tokens (token, subscription_id, created_at)
			VALUES ($1, $2, $3)
		`
		if _, err := tx.ExecContext(ctx, tokenQuery, token, sub.ID, time.Now()); err != nil {
			return fmt.Errorf("failed to store confirmation token: %w", err)
		}
		return nil
	})
}

func (r *subscriptionRepository) ConfirmByToken(ctx context.Context, token string) error {
	query := `
		UPDATE subscriptions
		SET status = $1
		WHERE id = (SELECT subscription_id FROM subscription_tokens WHERE token = $2)
	`
	result, err := r.db.ExecContext(ctx, query, model.SubscriptionStatusConfirmed, token)
	if err != nil {
		return fmt.Errorf("failed to confirm subscription: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *subscriptionRepository) GetByEmail(ctx context.Context, email string) (*model.Subscription, error) {
	query := `
		SELECT id, email, name, status, subscribed_at
		FROM subscriptions
		WHERE email = $1
	`
	var sub model.Subscription
	err := r.db.GetContext(ctx, &sub, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

func (r *subscriptionRepository) GetConfirmedEmails(ctx context.Context) ([]string, error) {
	query := `
		SELECT email
		FROM subscriptions
		WHERE status = $1
	`
	var emails []string
	err := r.db.SelectContext(ctx, &emails, query, model.SubscriptionStatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to get confirmed subscribers: %w", err)
	}
	return emails, nil
}
