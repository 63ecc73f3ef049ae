package email

import (
	"context"
	"errors"
	"fmt"
)

// Sender sends one email and either succeeds or fails. It performs no retries
// of its own; all retry policy belongs to the delivery worker.
type Sender interface {
	Send(ctx context.Context, recipient, subject, htmlBody, textBody string) error
}

// TransientError marks a failure worth retrying (timeouts, provider 4xx
// greylisting, connection errors).
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient send failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// PermanentError marks a failure that will never succeed on retry (rejected
// recipient, malformed address).
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent send failure: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

func Transient(err error) error {
	return &TransientError{Err: err}
}

func Permanent(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent classifies a Sender error. Anything not explicitly permanent is
// treated as transient so a flaky provider never kills deliveries.
func IsPermanent(err error) bool {
	var perm *PermanentError
	return errors.As(err, &perm)
}
