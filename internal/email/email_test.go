package email

import (
	"context"
	"errors"
	"fmt"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/newsletter-api/internal/config"
)

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		permanent bool
	}{
		{"permanent wrapper", Permanent(errors.New("rejected")), true},
		{"transient wrapper", Transient(errors.New("timeout")), false},
		{"wrapped permanent", fmt.Errorf("sending: %w", Permanent(errors.New("rejected"))), true},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.permanent, IsPermanent(tt.err))
		})
	}
}

func TestClassifySMTPReplies(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		permanent bool
	}{
		{"550 mailbox unavailable", &textproto.Error{Code: 550, Msg: "mailbox unavailable"}, true},
		{"554 rejected", &textproto.Error{Code: 554, Msg: "transaction failed"}, true},
		{"450 greylisted", &textproto.Error{Code: 450, Msg: "try again later"}, false},
		{"421 service unavailable", &textproto.Error{Code: 421, Msg: "closing channel"}, false},
		{"dial failure", errors.New("dial tcp: connection refused"), false},
		{"wrapped 550", fmt.Errorf("smtp: %w", &textproto.Error{Code: 550, Msg: "no such user"}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.permanent, IsPermanent(classify(tt.err)))
		})
	}
}

func TestSMTPSenderRejectsInvalidRecipient(t *testing.T) {
	s := NewSMTPSender(config.SMTPConfig{Host: "localhost", Port: 25, From: "news@example.com"})

	for _, recipient := range []string{"", "not-an-address"} {
		err := s.Send(context.Background(), recipient, "s", "<p>h</p>", "t")
		assert.True(t, IsPermanent(err), "recipient %q", recipient)
	}
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := &textproto.Error{Code: 550, Msg: "no such user"}

	var protoErr *textproto.Error
	assert.True(t, errors.As(Permanent(cause), &protoErr))
	assert.Equal(t, 550, protoErr.Code)

	protoErr = nil
	assert.True(t, errors.As(Transient(cause), &protoErr))
	assert.Equal(t, 550, protoErr.Code)
}
