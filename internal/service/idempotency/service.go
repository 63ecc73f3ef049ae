package idempotency

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/newsletter-api/internal/model"
	"github.com/jwalitptl/newsletter-api/internal/repository"
	apperrors "github.com/jwalitptl/newsletter-api/pkg/errors"
	"github.com/jwalitptl/newsletter-api/pkg/logger"
)

// NextAction is the outcome of TryProcessing: either this caller won the key
// and must complete the handed-over transaction, or the response already
// exists and is replayed. There is no third case.
type NextAction interface {
	isNextAction()
}

// StartProcessing hands ownership of the open transaction to the caller. The
// caller performs its business writes on Tx, calls SaveResponse, then Commit.
// Abandoning Tx rolls everything back, including the in-progress record, so
// the key stays retryable.
type StartProcessing struct {
	Tx *sqlx.Tx
}

// ReturnSaved carries the response committed by an earlier call with the same
// key, byte-identical to what that caller produced.
type ReturnSaved struct {
	Response *model.SavedResponse
}

func (StartProcessing) isNextAction() {}
func (ReturnSaved) isNextAction() {}

type Service interface {
	// TryProcessing races for ownership of (userID, key).
	TryProcessing(ctx context.Context, userID uuid.UUID, key model.IdempotencyKey) (NextAction, error)
	// SaveResponse records the response to replay. Must be called on the
	// transaction handed out by TryProcessing, before the caller commits.
	SaveResponse(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, key model.IdempotencyKey, resp *model.SavedResponse) error
	// GetSavedResponse is the read-only cache lookup; nil when no completed
	// record exists.
	GetSavedResponse(ctx context.Context, userID uuid.UUID, key model.IdempotencyKey) (*model.SavedResponse, error)
}

type service struct {
	repo   repository.IdempotencyRepository
	logger *logger.Logger
}

func NewService(repo repository.IdempotencyRepository, logger *logger.Logger) Service {
	return &service{repo: repo, logger: logger}
}

func (s *service) TryProcessing(ctx context.Context, userID uuid.UUID, key model.IdempotencyKey) (NextAction, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin processing transaction: %w", err)
	}

	inserted, err := s.repo.InsertPending(ctx, tx, userID, key)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to claim idempotency key: %w", err)
	}

	if inserted {
		return StartProcessing{Tx: tx}, nil
	}

	// Lost the race. This transaction is useless now; read the winner's
	// committed record outside it.
	tx.Rollback()

	record, err := s.repo.GetRecord(ctx, userID, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read processing record: %w", err)
	}
	if record == nil || !record.Completed() {
		// The owning request is still in flight. Fail fast rather than poll
		// inside the transaction layer; the client retries.
		return nil, apperrors.Conflict("a request with this idempotency key is already being processed", nil)
	}

	resp, err := record.SavedResponse()
	if err != nil {
		return nil, apperrors.Consistency("completed record has no replayable response", err)
	}
	return ReturnSaved{Response: resp}, nil
}

func (s *service) SaveResponse(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, key model.IdempotencyKey, resp *model.SavedResponse) error {
	if err := s.repo.SaveResponse(ctx, tx, userID, key, resp); err != nil {
		if errors.Is(err, repository.ErrNoPendingRecord) {
			s.logger.Error(err, "no in-progress record at save time",
				"user_id", userID.String(), "idempotency_key", key.String())
			return apperrors.Consistency("no in-progress record for idempotency key", err)
		}
		return fmt.Errorf("failed to save response: %w", err)
	}
	return nil
}

func (s *service) GetSavedResponse(ctx context.Context, userID uuid.UUID, key model.IdempotencyKey) (*model.SavedResponse, error) {
	record, err := s.repo.GetRecord(ctx, userID, key)
	if err != nil {
		return nil, err
	}
	if record == nil || !record.Completed() {
		return nil, nil
	}
	return record.SavedResponse()
}
