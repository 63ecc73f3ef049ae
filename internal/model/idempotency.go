package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxIdempotencyKeyLength bounds caller-supplied keys so they fit the
// idempotency table's key column.
const MaxIdempotencyKeyLength = 50

// IdempotencyKey is an opaque, caller-supplied deduplication token. It is
// never generated server-side; construct one with ParseIdempotencyKey.
type IdempotencyKey string

// ParseIdempotencyKey validates a raw key from untrusted input.
func ParseIdempotencyKey(raw string) (IdempotencyKey, error) {
	if raw == "" {
		return "", fmt.Errorf("idempotency key cannot be empty")
	}
	if len(raw) > MaxIdempotencyKeyLength {
		return "", fmt.Errorf("idempotency key exceeds %d characters", MaxIdempotencyKeyLength)
	}
	return IdempotencyKey(raw), nil
}

func (k IdempotencyKey) String() string {
	return string(k)
}

// HeaderPair is a single response header. Headers are stored as an ordered
// list, not a map: duplicates and ordering must survive the round trip.
type HeaderPair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SavedResponse is the cached HTTP response recorded for a completed
// processing record. Replays must be byte-identical to the first response.
type SavedResponse struct {
	StatusCode int
	Headers    []HeaderPair
	Body       []byte
}

// ProcessingRecord tracks one (user, idempotency key) pair. A record with a
// NULL response status code is still in progress; completion is only ever
// written in the same transaction as the business side effects.
type ProcessingRecord struct {
	UserID             uuid.UUID `db:"user_id"`
	IdempotencyKey     string    `db:"idempotency_key"`
	ResponseStatusCode *int      `db:"response_status_code"`
	ResponseHeaders    []byte    `db:"response_headers"`
	ResponseBody       []byte    `db:"response_body"`
	CreatedAt          time.Time `db:"created_at"`
}

func (r *ProcessingRecord) Completed() bool {
	return r.ResponseStatusCode != nil
}

// SavedResponse reconstructs the cached HTTP response from a completed
// record.
func (r *ProcessingRecord) SavedResponse() (*SavedResponse, error) {
	if !r.Completed() {
		return nil, fmt.Errorf("processing record is not completed")
	}

	var headers []HeaderPair
	if len(r.ResponseHeaders) > 0 {
		if err := json.Unmarshal(r.ResponseHeaders, &headers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response headers: %w", err)
		}
	}

	return &SavedResponse{
		StatusCode: *r.ResponseStatusCode,
		Headers:    headers,
		Body:       r.ResponseBody,
	}, nil
}
