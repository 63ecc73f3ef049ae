package model

import (
	"time"

	"github.com/google/uuid"
)

// User is an admin account allowed to publish newsletter issues.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
