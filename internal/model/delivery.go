package model

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryTask is one claimed delivery queue row joined with its issue
// content, ready to be handed to the email sender.
type DeliveryTask struct {
	IssueID        uuid.UUID  `db:"issue_id"`
	RecipientEmail string     `db:"recipient_email"`
	NRetries       int        `db:"n_retries"`
	ExecuteAfter   time.Time  `db:"execute_after"`
	DeadAt         *time.Time `db:"dead_at"`
	LastError      *string    `db:"last_error"`
	Title          string     `db:"title"`
	TextContent    string     `db:"text_content"`
	HTMLContent    string     `db:"html_content"`
}
