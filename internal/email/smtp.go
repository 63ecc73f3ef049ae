package email

import (
	"context"
	"errors"
	"fmt"
	"net/textproto"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/newsletter-api/internal/config"
)

type smtpSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender creates a Sender backed by an SMTP relay.
func NewSMTPSender(cfg config.SMTPConfig) Sender {
	return &smtpSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpSender) Send(ctx context.Context, recipient, subject, htmlBody, textBody string) error {
	if recipient == "" || !strings.Contains(recipient, "@") {
		return Permanent(fmt.Errorf("invalid recipient address %q", recipient))
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", textBody)
	msg.AddAlternative("text/html", htmlBody)

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(msg)
	}()

	select {
	case <-ctx.Done():
		return Transient(ctx.Err())
	case err := <-done:
		if err != nil {
			return classify(err)
		}
		return nil
	}
}

// classify maps SMTP reply codes onto the retry taxonomy: 5xx replies are
// permanent rejections, everything else (4xx, dial and TLS errors) is
// transient.
func classify(err error) error {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) && protoErr.Code >= 500 {
		return Permanent(err)
	}
	return Transient(err)
}
