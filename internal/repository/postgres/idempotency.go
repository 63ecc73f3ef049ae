package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/newsletter-api/internal/model"
	"github.com/jwalitptl/newsletter-api/internal/repository"
)

type idempotencyRepository struct {
	BaseRepository
}

func NewIdempotencyRepository(base BaseRepository) repository.IdempotencyRepository {
	return &idempotencyRepository{base}
}

func (r *idempotencyRepository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, nil)
}

// InsertPending races concurrent callers on the (user_id, idempotency_key)
// primary key. Zero rows affected means another record already exists, either
// committed or held by a transaction that commits before ours resolves.
func (r *idempotencyRepository) InsertPending(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, key model.IdempotencyKey) (bool, error) {
	query := `
		INSERT INTO idempotency (user_id, idempotency_key, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, idempotency_key) DO NOTHING
	`
	result, err := tx.ExecContext(ctx, query, userID, key.String())
	if err != nil {
		return false, fmt.Errorf("failed to insert processing record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected == 1, nil
}

func (r *idempotencyRepository) GetRecord(ctx context.Context, userID uuid.UUID, key model.IdempotencyKey) (*model.ProcessingRecord, error) {
	query := `
		SELECT user_id, idempotency_key, response_status_code,
		       response_headers, response_body, created_at
		FROM idempotency
		WHERE user_id = $1 AND idempotency_key = $2
	`
	var record model.ProcessingRecord
	err := r.db.GetContext(ctx, &record, query, userID, key.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get processing record: %w", err)
	}
	return &record, nil
}

// SaveResponse completes the in-progress record. Headers are serialized as a
// JSON array of name/value pairs so duplicates and ordering survive replay.
func (r *idempotencyRepository) SaveResponse(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, key model.IdempotencyKey, resp *model.SavedResponse) error {
	headers, err := json.Marshal(resp.Headers)
	if err != nil {
		return fmt.Errorf("failed to marshal response headers: %w", err)
	}

	query := `
		UPDATE idempotency
		SET response_status_code = $3,
		    response_headers = $4,
		    response_body = $5
		WHERE user_id = $1
		  AND idempotency_key = $2
		  AND response_status_code IS NULL
	`
	result, err := tx.ExecContext(ctx, query, userID, key.String(), resp.StatusCode, headers, resp.Body)
	if err != nil {
		return fmt.Errorf("failed to save response: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected != 1 {
		return repository.ErrNoPendingRecord
	}
	return nil
}
