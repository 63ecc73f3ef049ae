package subscription

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/newsletter-api/internal/model"
	apperrors "github.com/jwalitptl/newsletter-api/pkg/errors"
	"github.com/jwalitptl/newsletter-api/pkg/logger"
)

type fakeSubscriptionRepo struct {
	byEmail   map[string]*model.Subscription
	tokens    map[string]string
	confirmed []string
	createErr error
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{
		byEmail: map[string]*model.Subscription{},
		tokens:  map[string]string{},
	}
}

func (f *fakeSubscriptionRepo) Create(ctx context.Context, sub *model.Subscription, token string) error {
	if f.createErr != nil {
		return f.createErr
	}
	sub.Status = model.SubscriptionStatusPending
	f.byEmail[sub.Email] = sub
	f.tokens[token] = sub.Email
	return nil
}

func (f *fakeSubscriptionRepo) ConfirmByToken(ctx context.Context, token string) error {
	email, ok := f.tokens[token]
	if !ok {
		return errors.New("token not found")
	}
	f.byEmail[email].Status = model.SubscriptionStatusConfirmed
	f.confirmed = append(f.confirmed, email)
	return nil
}

func (f *fakeSubscriptionRepo) GetByEmail(ctx context.Context, email string) (*model.Subscription, error) {
	return f.byEmail[email], nil
}

func (f *fakeSubscriptionRepo) GetConfirmedEmails(ctx context.Context) ([]string, error) {
	return f.confirmed, nil
}

type recordingSender struct {
	recipients []string
	subjects   []string
	htmlBodies []string
	textBodies []string
	err        error
}

func (s *recordingSender) Send(ctx context.Context, recipient, subject, htmlBody, textBody string) error {
	if s.err != nil {
		return s.err
	}
	s.recipients = append(s.recipients, recipient)
	s.subjects = append(s.subjects, subject)
	s.htmlBodies = append(s.htmlBodies, htmlBody)
	s.textBodies = append(s.textBodies, textBody)
	return nil
}

const testBaseURL = "https://news.example.com"

func newSubscriptionFixture() (*fakeSubscriptionRepo, *recordingSender, Service) {
	repo := newFakeSubscriptionRepo()
	sender := &recordingSender{}
	svc := NewService(repo, sender, testBaseURL, logger.FromZerolog(zerolog.Nop()))
	return repo, sender, svc
}

func TestSubscribeSendsConfirmationEmailWithToken(t *testing.T) {
	repo, sender, svc := newSubscriptionFixture()

	_, err := svc.Subscribe(context.Background(), "jane@example.com", "Jane")
	require.NoError(t, err)

	require.Len(t, repo.tokens, 1)
	var token string
	for tok := range repo.tokens {
		token = tok
	}
	assert.Len(t, token, 32, "token is 16 random bytes hex encoded")

	require.Len(t, sender.recipients, 1)
	assert.Equal(t, "jane@example.com", sender.recipients[0])
	assert.Equal(t, "Please confirm your subscription", sender.subjects[0])

	link := fmt.Sprintf("%s/subscriptions/confirm?token=%s", testBaseURL, token)
	assert.Contains(t, sender.htmlBodies[0], link, "html body carries the stored token")
	assert.Contains(t, sender.textBodies[0], link, "text body carries the stored token")
}

func TestSubscribeThenConfirm(t *testing.T) {
	repo, _, svc := newSubscriptionFixture()

	sub, err := svc.Subscribe(context.Background(), "jane@example.com", "Jane")
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionStatusPending, sub.Status)

	var token string
	for tok := range repo.tokens {
		token = tok
	}
	require.NoError(t, svc.Confirm(context.Background(), token))

	emails, err := repo.GetConfirmedEmails(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"jane@example.com"}, emails)
}

func TestSubscribeFailsWhenConfirmationEmailFails(t *testing.T) {
	_, sender, svc := newSubscriptionFixture()
	sender.err = errors.New("relay refused connection")

	_, err := svc.Subscribe(context.Background(), "jane@example.com", "Jane")
	assert.ErrorContains(t, err, "failed to send confirmation email")
}

func TestSubscribeRejectsDuplicateEmail(t *testing.T) {
	_, _, svc := newSubscriptionFixture()

	_, err := svc.Subscribe(context.Background(), "jane@example.com", "Jane")
	require.NoError(t, err)

	_, err = svc.Subscribe(context.Background(), "jane@example.com", "Jane")
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
}

func TestSubscribeSurfacesCreateConflict(t *testing.T) {
	// A concurrent subscribe can slip past the existence check and lose on
	// the unique index; the repository's Conflict must reach the caller.
	repo, _, svc := newSubscriptionFixture()
	repo.createErr = apperrors.Conflict("email is already subscribed", nil)

	_, err := svc.Subscribe(context.Background(), "jane@example.com", "Jane")
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
}

func TestConfirmUnknownToken(t *testing.T) {
	_, _, svc := newSubscriptionFixture()

	assert.True(t, apperrors.Is(svc.Confirm(context.Background(), "nope"), apperrors.ErrNotFound))
	assert.True(t, apperrors.Is(svc.Confirm(context.Background(), ""), apperrors.ErrValidation))
}
