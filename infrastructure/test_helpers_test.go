package infrastructure

import (
	"context"
	"errors"
	"sync"
)

type publishedMessage struct {
	subject string
	data    []byte
}

// memoryBus records published payloads and lets tests deliver to subscribers
type memoryBus struct {
	mu         sync.Mutex
	published  []publishedMessage
	handlers   map[string]func([]byte) error
	publishErr error
}

func newMemoryBus() *memoryBus {
	return &memoryBus{handlers: make(map[string]func([]byte) error)}
}

func (b *memoryBus) Publish(ctx context.Context, subject string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published = append(b.published, publishedMessage{subject: subject, data: data})
	return nil
}

func (b *memoryBus) Subscribe(subject string, handler func([]byte) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[subject] = handler
	return nil
}

func (b *memoryBus) deliver(subject string, data []byte) error {
	b.mu.Lock()
	handler, ok := b.handlers[subject]
	b.mu.Unlock()
	if !ok {
		return errors.New("no subscriber")
	}
	return handler(data)
}
