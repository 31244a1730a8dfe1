package infrastructure

import (
	"context"
)

// MessagePublisher publishes raw payloads to a message bus subject
type MessagePublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// MessageSubscriber delivers raw payloads from a message bus subject
type MessageSubscriber interface {
	Subscribe(subject string, handler func([]byte) error) error
}
