package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// LedgerEventStream is the JetStream stream carrying every ledger notification
const LedgerEventStream = "ledger_events"

const (
	consumerMaxDeliver = 3
	consumerAckWait    = 30 * time.Second
	streamMaxAge       = 7 * 24 * time.Hour
)

var errNATSNotConnected = errors.New("not connected to NATS JetStream")

// NATSClient is the JetStream connection shared by the event publisher and subscriber
type NATSClient struct {
	servers       string
	reconnectWait time.Duration
	maxReconnects int
	mu            sync.RWMutex
	conn          *nats.Conn
	js            nats.JetStreamContext
	consumers     map[string]*nats.Subscription
}

// NewNATSClient creates a client for a comma-separated server list. Call Connect before use.
func NewNATSClient(servers string) *NATSClient {
	return &NATSClient{
		servers:       servers,
		reconnectWait: 2 * time.Second,
		maxReconnects: 10,
		consumers:     make(map[string]*nats.Subscription),
	}
}

// Connect dials the servers and opens a JetStream context. A ctx deadline bounds the dial.
func (c *NATSClient) Connect(ctx context.Context) error {
	opts := c.connectOptions()
	if deadline, ok := ctx.Deadline(); ok {
		opts = append(opts, nats.Timeout(time.Until(deadline)))
	}

	conn, err := nats.Connect(c.servers, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", c.servers, err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open JetStream: %w", err)
	}

	c.mu.Lock()
	c.conn, c.js = conn, js
	c.mu.Unlock()

	log.WithField("servers", c.servers).Info("Connected to NATS with JetStream")
	return nil
}

func (c *NATSClient) connectOptions() []nats.Option {
	return []nats.Option{
		nats.Name("prizeledger"),
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.WithError(err).Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			log.WithField("url", conn.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			fields := log.Fields{"error": err}
			if sub != nil {
				fields["subject"] = sub.Subject
			}
			log.WithFields(fields).Error("NATS async error")
		}),
	}
}

func (c *NATSClient) jetStream() (nats.JetStreamContext, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.js == nil {
		return nil, errNATSNotConnected
	}
	return c.js, nil
}

// Publish stores data on subject and waits for the stream acknowledgement
func (c *NATSClient) Publish(ctx context.Context, subject string, data []byte) error {
	js, err := c.jetStream()
	if err != nil {
		return err
	}

	ack, err := js.Publish(subject, data, nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	log.WithFields(log.Fields{
		"subject":  subject,
		"stream":   ack.Stream,
		"sequence": ack.Sequence,
	}).Debug("Published message")
	return nil
}

// Subscribe binds handler to a durable consumer on subject. A handler error naks the
// message for redelivery until consumerMaxDeliver attempts are spent.
func (c *NATSClient) Subscribe(subject string, handler func([]byte) error) error {
	js, err := c.jetStream()
	if err != nil {
		return err
	}

	durable := consumerName(subject)
	sub, err := js.Subscribe(subject, func(msg *nats.Msg) {
		settle(msg, subject, handler(msg.Data))
	},
		nats.Durable(durable),
		nats.ManualAck(),
		nats.AckExplicit(),
		nats.MaxDeliver(consumerMaxDeliver),
		nats.AckWait(consumerAckWait),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	c.mu.Lock()
	c.consumers[subject] = sub
	c.mu.Unlock()

	log.WithFields(log.Fields{
		"subject":  subject,
		"consumer": durable,
	}).Info("Subscribed to NATS subject")
	return nil
}

func settle(msg *nats.Msg, subject string, handlerErr error) {
	if handlerErr == nil {
		if err := msg.Ack(); err != nil {
			log.WithFields(log.Fields{"subject": subject, "error": err}).Error("Failed to ack message")
		}
		return
	}

	log.WithFields(log.Fields{"subject": subject, "error": handlerErr}).Error("Message handler failed")
	if err := msg.Nak(); err != nil {
		log.WithFields(log.Fields{"subject": subject, "error": err}).Error("Failed to nak message")
	}
}

// consumerName derives a durable consumer name, which may not contain dots or wildcards
func consumerName(subject string) string {
	return "prizeledger-" + strings.NewReplacer(".", "_", "*", "wildcard", ">", "all").Replace(subject)
}

// Healthy reports an error unless the connection is up and the server answers a round trip
func (c *NATSClient) Healthy(ctx context.Context) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return errNATSNotConnected
	}
	if err := conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("NATS round trip failed: %w", err)
	}
	return nil
}

// Close drops every consumer binding and closes the connection
func (c *NATSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for subject, sub := range c.consumers {
		if err := sub.Unsubscribe(); err != nil {
			log.WithFields(log.Fields{"subject": subject, "error": err}).Warn("Failed to unsubscribe")
		}
	}
	clear(c.consumers)

	if c.conn != nil {
		c.conn.Close()
		c.conn, c.js = nil, nil
		log.Info("NATS connection closed")
	}
	return nil
}

// ensureStream creates streamName, or widens its subjects when new event types were added
func (c *NATSClient) ensureStream(streamName string, subjects []string) error {
	js, err := c.jetStream()
	if err != nil {
		return err
	}

	info, err := js.StreamInfo(streamName)
	switch {
	case errors.Is(err, nats.ErrStreamNotFound):
		_, err = js.AddStream(&nats.StreamConfig{
			Name:        streamName,
			Description: "Wallet, withdrawal and raffle notifications",
			Subjects:    subjects,
			Retention:   nats.LimitsPolicy,
			Storage:     nats.FileStorage,
			MaxAge:      streamMaxAge,
			Replicas:    1,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream %s: %w", streamName, err)
		}
		log.WithFields(log.Fields{"stream": streamName, "subjects": subjects}).Info("Created JetStream stream")
		return nil
	case err != nil:
		return fmt.Errorf("failed to inspect stream %s: %w", streamName, err)
	}

	missing := missingSubjects(info.Config.Subjects, subjects)
	if len(missing) == 0 {
		return nil
	}

	cfg := info.Config
	cfg.Subjects = append(slices.Clone(cfg.Subjects), missing...)
	if _, err := js.UpdateStream(&cfg); err != nil {
		return fmt.Errorf("failed to add subjects to stream %s: %w", streamName, err)
	}
	log.WithFields(log.Fields{"stream": streamName, "added": missing}).Info("Updated JetStream stream subjects")
	return nil
}

func missingSubjects(have, want []string) []string {
	var missing []string
	for _, subject := range want {
		if !slices.Contains(have, subject) {
			missing = append(missing, subject)
		}
	}
	return missing
}
