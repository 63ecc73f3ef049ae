package model

import (
	"time"

	"github.com/google/uuid"
)

// NewsletterIssue is one published newsletter. It is created exactly once per
// successful publish, in the same transaction as its delivery queue rows.
type NewsletterIssue struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	TextContent string    `db:"text_content" json:"text_content"`
	HTMLContent string    `db:"html_content" json:"html_content"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
