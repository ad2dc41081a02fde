// Package events publishes store change notifications to NATS.
package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"airroutes/internal/store"
)

// DefaultPrefix is the subject prefix used when none is configured.
const DefaultPrefix = "airroutes"

// Event is the JSON payload published for each store change.
type Event struct {
	ID       uuid.UUID    `json:"id"`
	Seq      uint64       `json:"seq"`
	Entity   store.Entity `json:"entity"`
	Op       store.Op     `json:"op"`
	Key      string       `json:"key"`
	Cascaded int          `json:"cascaded,omitempty"`
	At       time.Time    `json:"at"`
}

// NewEvent wraps a store change with a fresh ID and timestamp.
func NewEvent(c store.Change) Event {
	return Event{
		ID:       uuid.New(),
		Seq:      c.Seq,
		Entity:   c.Entity,
		Op:       c.Op,
		Key:      c.Key,
		Cascaded: c.Cascaded,
		At:       time.Now().UTC(),
	}
}

// Subject returns the subject an event is published on: <prefix>.<entity>.<op>.
func Subject(prefix string, e Event) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return strings.Join([]string{prefix, string(e.Entity), string(e.Op)}, ".")
}

// conn is the subset of *nats.Conn the publisher needs.
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// Publisher sends store changes to NATS.
type Publisher struct {
	nc     conn
	prefix string
	logger *zap.Logger

	published atomic.Int64
	failed    atomic.Int64
}

// Connect dials NATS and returns a publisher. The connection reconnects
// indefinitely; disconnects and reconnects are logged.
func Connect(url, prefix string, logger *zap.Logger) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("airroutes"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return newPublisher(nc, prefix, logger), nil
}

func newPublisher(nc conn, prefix string, logger *zap.Logger) *Publisher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Publisher{nc: nc, prefix: prefix, logger: logger}
}

// Publish sends one event.
func (p *Publisher) Publish(e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.nc.Publish(Subject(p.prefix, e), data); err != nil {
		p.failed.Add(1)
		return fmt.Errorf("publish event: %w", err)
	}
	p.published.Add(1)
	return nil
}

// Attach publishes every change made to s. Publish failures are logged and
// never affect the mutation that caused them.
func (p *Publisher) Attach(s *store.Store) {
	s.OnChange(func(c store.Change) {
		e := NewEvent(c)
		if err := p.Publish(e); err != nil {
			p.logger.Warn("failed to publish change event",
				zap.String("subject", Subject(p.prefix, e)),
				zap.Error(err))
		}
	})
}

// Counts returns the number of published and failed events.
func (p *Publisher) Counts() (published, failed int64) {
	return p.published.Load(), p.failed.Load()
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() error {
	return p.nc.Drain()
}
