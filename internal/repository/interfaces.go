package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/newsletter-api/internal/model"
)

// ErrNoPendingRecord is returned by SaveResponse when no in-progress
// processing record exists for the (user, key) pair. It indicates a
// coordinator bug or concurrent tampering, never a normal outcome.
var ErrNoPendingRecord = errors.New("no in-progress processing record for key")

// All repository interfaces in one file
type (
	// IdempotencyRepository persists processing records and cached responses.
	IdempotencyRepository interface {
		// BeginTx opens the transaction that scopes one processing attempt.
		BeginTx(ctx context.Context) (*sqlx.Tx, error)
		// InsertPending inserts an in-progress record, returning false when a
		// record for the pair already exists (uniqueness conflict).
		InsertPending(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, key model.IdempotencyKey) (bool, error)
		// GetRecord reads the record outside any transaction; nil when absent.
		GetRecord(ctx context.Context, userID uuid.UUID, key model.IdempotencyKey) (*model.ProcessingRecord, error)
		// SaveResponse completes the in-progress record with the response to
		// replay. The caller commits the transaction.
		SaveResponse(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, key model.IdempotencyKey, resp *model.SavedResponse) error
	}

	// IssueRepository is the outbox write path.
	IssueRepository interface {
		// CreateWithDeliveryQueue inserts the issue and one delivery queue row
		// per distinct recipient, all within the caller's transaction.
		CreateWithDeliveryQueue(ctx context.Context, tx *sqlx.Tx, issue *model.NewsletterIssue, recipients []string) error
		Get(ctx context.Context, id uuid.UUID) (*model.NewsletterIssue, error)
	}

	// ClaimedDelivery is one queue row held under a claim lock. Exactly one of
	// Complete, Retry, Dead or Release must be called to resolve the claim.
	ClaimedDelivery interface {
		Task() *model.DeliveryTask
		// Complete deletes the row; the delivery effect is final.
		Complete(ctx context.Context) error
		// Retry increments n_retries and reschedules the row for executeAfter.
		Retry(ctx context.Context, executeAfter time.Time, cause string) error
		// Dead excludes the row from all future claims but keeps it on record.
		Dead(ctx context.Context, cause string) error
		// Release abandons the attempt without touching the row.
		Release() error
	}

	// DeliveryQueueRepository hands out claimed queue rows to workers. Claim
	// atomicity across concurrent claimants is the repository's problem; the
	// worker needs no synchronization of its own.
	DeliveryQueueRepository interface {
		// Claim locks one eligible row (execute_after due, not dead). Returns
		// nil when the queue has no eligible row.
		Claim(ctx context.Context) (ClaimedDelivery, error)
		// PendingCount reports rows still awaiting delivery (dead excluded).
		PendingCount(ctx context.Context) (int, error)
	}

	// SubscriptionRepository is the recipient source plus subscription CRUD.
	SubscriptionRepository interface {
		Create(ctx context.Context, sub *model.Subscription, token string) error
		ConfirmByToken(ctx context.Context, token string) error
		GetByEmail(ctx context.Context, email string) (*model.Subscription, error)
		// GetConfirmedEmails returns the current confirmed recipient set.
		GetConfirmedEmails(ctx context.Context) ([]string, error)
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
		UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	}
)
