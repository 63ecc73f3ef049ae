package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/newsletter-api/internal/email"
	"github.com/jwalitptl/newsletter-api/internal/repository"
	"github.com/jwalitptl/newsletter-api/pkg/logger"
	"github.com/jwalitptl/newsletter-api/pkg/messaging"
	"github.com/jwalitptl/newsletter-api/pkg/metrics"
)

// DeliveryWorkerConfig tunes one delivery loop. Retry ceiling and backoff are
// deployment policy, not constants.
type DeliveryWorkerConfig struct {
	PollInterval time.Duration
	MaxRetries   int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
}

// DeliveryWorker drains the issue delivery queue. Any number of workers may
// run concurrently; the queue's claim locking is the only coordination they
// need.
type DeliveryWorker struct {
	queue   repository.DeliveryQueueRepository
	sender  email.Sender
	broker  messaging.Broker
	config  DeliveryWorkerConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewDeliveryWorker(
	queue repository.DeliveryQueueRepository,
	sender email.Sender,
	broker messaging.Broker,
	config DeliveryWorkerConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *DeliveryWorker {
	// Config validation instead of defaults
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		panic("MaxRetries must be greater than 0")
	}
	if config.BaseDelay <= 0 {
		panic("BaseDelay must be greater than 0")
	}
	if config.MaxDelay < config.BaseDelay {
		panic("MaxDelay must not be less than BaseDelay")
	}

	return &DeliveryWorker{
		queue:   queue,
		sender:  sender,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Start runs the claim loop until ctx is cancelled. An attempt that is already
// in flight at shutdown is resolved before Start returns, so no row is left
// claimed and abandoned.
func (w *DeliveryWorker) Start(ctx context.Context) {
	w.logger.Info("starting delivery worker")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("shutting down delivery worker")
			return
		default:
		}

		worked, err := w.deliverOne(ctx)
		if err != nil {
			// Store trouble is transient at loop level: log, back off, go on.
			w.logger.Error(err, "delivery cycle failed")
			w.sleep(ctx, w.config.PollInterval)
			continue
		}
		if !worked {
			w.refreshQueueDepth(ctx)
			w.sleep(ctx, w.config.PollInterval)
		}
	}
}

// refreshQueueDepth updates the depth gauge on idle polls only; a busy worker
// has better things to count.
func (w *DeliveryWorker) refreshQueueDepth(ctx context.Context) {
	pending, err := w.queue.PendingCount(ctx)
	if err != nil {
		w.logger.Warn("failed to read delivery queue depth", "error", err.Error())
		return
	}
	w.metrics.QueueDepth.Set(float64(pending))
}

// deliverOne claims and resolves a single queue row. Returns false when no
// row was eligible.
func (w *DeliveryWorker) deliverOne(ctx context.Context) (bool, error) {
	claimed, err := w.queue.Claim(ctx)
	if err != nil {
		w.metrics.DatabaseOperations.WithLabelValues("claim_delivery", "error").Inc()
		return false, fmt.Errorf("failed to claim delivery row: %w", err)
	}
	w.metrics.DatabaseOperations.WithLabelValues("claim_delivery", "success").Inc()
	if claimed == nil {
		return false, nil
	}

	timer := time.Now()
	defer func() {
		w.metrics.DeliveryLatency.Observe(time.Since(timer).Seconds())
	}()

	task := claimed.Task()
	// The send itself runs detached from loop cancellation so an in-flight
	// attempt resolves during shutdown.
	sendErr := w.sender.Send(context.WithoutCancel(ctx), task.RecipientEmail, task.Title, task.HTMLContent, task.TextContent)
	if sendErr == nil {
		if err := claimed.Complete(context.WithoutCancel(ctx)); err != nil {
			return true, err
		}
		w.metrics.DeliveriesSent.Inc()
		w.logger.Debug("newsletter delivered",
			"issue_id", task.IssueID.String(), "recipient", task.RecipientEmail)
		return true, nil
	}

	return true, w.resolveFailure(context.WithoutCancel(ctx), claimed, sendErr)
}

func (w *DeliveryWorker) resolveFailure(ctx context.Context, claimed repository.ClaimedDelivery, sendErr error) error {
	task := claimed.Task()

	if email.IsPermanent(sendErr) {
		w.logger.Error(sendErr, "permanent delivery failure",
			"issue_id", task.IssueID.String(), "recipient", task.RecipientEmail)
		return w.markDead(ctx, claimed, sendErr.Error())
	}

	// Retries are allowed until n_retries would exceed the ceiling; the dead
	// row records n_retries == MaxRetries.
	if task.NRetries+1 > w.config.MaxRetries {
		w.logger.Error(sendErr, "delivery retries exhausted",
			"issue_id", task.IssueID.String(),
			"recipient", task.RecipientEmail,
			"n_retries", task.NRetries)
		return w.markDead(ctx, claimed, sendErr.Error())
	}

	executeAfter := w.now().Add(w.backoff(task.NRetries))
	if err := claimed.Retry(ctx, executeAfter, sendErr.Error()); err != nil {
		return err
	}
	w.metrics.DeliveriesRetried.Inc()
	w.logger.Warn("delivery rescheduled",
		"issue_id", task.IssueID.String(),
		"recipient", task.RecipientEmail,
		"n_retries", task.NRetries+1,
		"execute_after", executeAfter)
	return nil
}

func (w *DeliveryWorker) markDead(ctx context.Context, claimed repository.ClaimedDelivery, cause string) error {
	task := claimed.Task()
	if err := claimed.Dead(ctx, cause); err != nil {
		return err
	}
	w.metrics.DeliveriesDead.Inc()

	if err := w.broker.Publish(ctx, messaging.ChannelDeliveryDead, map[string]interface{}{
		"issue_id":  task.IssueID.String(),
		"recipient": task.RecipientEmail,
		"n_retries": task.NRetries,
		"cause":     cause,
	}); err != nil {
		w.logger.Error(err, "failed to publish dead delivery event",
			"issue_id", task.IssueID.String(), "recipient", task.RecipientEmail)
	}
	return nil
}

// backoff doubles per retry from BaseDelay, capped at MaxDelay.
func (w *DeliveryWorker) backoff(nRetries int) time.Duration {
	delay := w.config.BaseDelay
	for i := 0; i < nRetries; i++ {
		delay *= 2
		if delay >= w.config.MaxDelay {
			return w.config.MaxDelay
		}
	}
	return delay
}

func (w *DeliveryWorker) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
