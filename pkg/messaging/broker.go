package messaging

import (
	"context"
)

// Event channels published by this service.
const (
	ChannelIssuePublished = "newsletter.issue.published"
	ChannelDeliveryDead   = "newsletter.delivery.dead"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
