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
)

type issueRepository struct {
	BaseRepository
}

func NewIssueRepository(base BaseRepository) repository.IssueRepository {
	return &issueRepository{base}
}

// CreateWithDeliveryQueue materializes the durable intent to deliver: the
// issue row and one queue row per distinct recipient, nothing else. No email
// is sent here; the delivery worker drains the queue after commit.
func (r *issueRepository) CreateWithDeliveryQueue(ctx context.Context, tx *sqlx.Tx, issue *model.NewsletterIssue, recipients []string) error {
	if issue == nil {
		return fmt.Errorf("issue cannot be nil")
	}

	if issue.ID == uuid.Nil {
		issue.ID = uuid.New()
	}
	issue.CreatedAt = time.Now()

	query := `
		INSERT INTO newsletter_issues (id, title, text_content, html_content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := tx.ExecContext(ctx, query,
		issue.ID,
		issue.Title,
		issue.TextContent,
		issue.HTMLContent,
		issue.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create newsletter issue: %w", err)
	}

	queueQuery := `
		INSERT INTO issue_delivery_queue (issue_id, recipient_email, n_retries, execute_after)
		VALUES ($1, $2, 0, NOW())
		ON CONFLICT (issue_id, recipient_email) DO NOTHING
	`
	for _, email := range recipients {
		if _, err := tx.ExecContext(ctx, queueQuery, issue.ID, email); err != nil {
			return fmt.Errorf("failed to enqueue delivery for %s: %w", email, err)
		}
	}

	return nil
}

func (r *issueRepository) Get(ctx context.Context, id uuid.UUID) (*model.NewsletterIssue, error) {
	query := `
		SELECT id, title, text_content, html_content, created_at
		FROM newsletter_issues
		WHERE id = $1
	`
	var issue model.NewsletterIssue
	err := r.db.GetContext(ctx, &issue, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get newsletter issue: %w", err)
	}
	return &issue, nil
}
