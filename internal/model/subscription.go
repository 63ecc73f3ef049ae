package model

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	SubscriptionStatusPending   SubscriptionStatus = "pending_confirmation"
	SubscriptionStatusConfirmed SubscriptionStatus = "confirmed"
)

type Subscription struct {
	ID           uuid.UUID          `db:"id" json:"id"`
	Email        string             `db:"email" json:"email"`
	Name         string             `db:"name" json:"name"`
	Status       SubscriptionStatus `db:"status" json:"status"`
	SubscribedAt time.Time          `db:"subscribed_at" json:"subscribed_at"`
}

// SubscriptionToken links a confirmation token to a pending subscription.
type SubscriptionToken struct {
	Token          string    `db:"token"`
	SubscriptionID uuid.UUID `db:"subscription_id"`
	CreatedAt      time.Time `db:"created_at"`
}
