package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/newsletter-api/internal/model"
	"github.com/jwalitptl/newsletter-api/internal/repository"
)

type deliveryQueueRepository struct {
	BaseRepository
}

func NewDeliveryQueueRepository(base BaseRepository) repository.DeliveryQueueRepository {
	return &deliveryQueueRepository{base}
}

// Claim locks one eligible queue row. The row lock, not any in-process mutex,
// is what keeps concurrent workers off the same row; SKIP LOCKED keeps them
// from queueing up behind each other. The claim transaction stays open for
// the duration of the delivery attempt, so a crashed worker releases its row
// automatically when the connection drops.
func (r *deliveryQueueRepository) Claim(ctx context.Context) (repository.ClaimedDelivery, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin claim transaction: %w", err)
	}

	query := `
		SELECT dq.issue_id, dq.recipient_email, dq.n_retries, dq.execute_after,
		       dq.dead_at, dq.last_error,
		       ni.title, ni.text_content, ni.html_content
		FROM issue_delivery_queue dq
		JOIN newsletter_issues ni ON ni.id = dq.issue_id
		WHERE dq.execute_after <= NOW()
		  AND dq.dead_at IS NULL
		FOR UPDATE OF dq SKIP LOCKED
		LIMIT 1
	`
	var task model.DeliveryTask
	err = tx.GetContext(ctx, &task, query)
	if errors.Is(err, sql.ErrNoRows) {
		tx.Rollback()
		return nil, nil
	}
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to claim delivery row: %w", err)
	}

	return &claimedDelivery{tx: tx, task: &task}, nil
}

func (r *deliveryQueueRepository) PendingCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM issue_delivery_queue WHERE dead_at IS NULL`)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending deliveries: %w", err)
	}
	return count, nil
}

type claimedDelivery struct {
	tx   *sqlx.Tx
	task *model.DeliveryTask
}

func (c *claimedDelivery) Task() *model.DeliveryTask {
	return c.task
}

func (c *claimedDelivery) Complete(ctx context.Context) error {
	query := `
		DELETE FROM issue_delivery_queue
		WHERE issue_id = $1 AND recipient_email = $2
	`
	if _, err := c.tx.ExecContext(ctx, query, c.task.IssueID, c.task.RecipientEmail); err != nil {
		c.tx.Rollback()
		return fmt.Errorf("failed to delete delivered row: %w", err)
	}
	if err := c.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delivery completion: %w", err)
	}
	return nil
}

func (c *claimedDelivery) Retry(ctx context.Context, executeAfter time.Time, cause string) error {
	query := `
		UPDATE issue_delivery_queue
		SET n_retries = n_retries + 1,
		    execute_after = $3,
		    last_error = $4
		WHERE issue_id = $1 AND recipient_email = $2
	`
	if _, err := c.tx.ExecContext(ctx, query, c.task.IssueID, c.task.RecipientEmail, executeAfter, cause); err != nil {
		c.tx.Rollback()
		return fmt.Errorf("failed to reschedule delivery row: %w", err)
	}
	if err := c.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delivery retry: %w", err)
	}
	return nil
}

func (c *claimedDelivery) Dead(ctx context.Context, cause string) error {
	query := `
		UPDATE issue_delivery_queue
		SET dead_at = NOW(),
		    last_error = $3
		WHERE issue_id = $1 AND recipient_email = $2
	`
	if _, err := c.tx.ExecContext(ctx, query, c.task.IssueID, c.task.RecipientEmail, cause); err != nil {
		c.tx.Rollback()
		return fmt.Errorf("failed to mark delivery row dead: %w", err)
	}
	if err := c.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dead marking: %w", err)
	}
	return nil
}

func (c *claimedDelivery) Release() error {
	return c.tx.Rollback()
}
