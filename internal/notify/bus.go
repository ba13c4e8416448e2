package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

type BusConfig struct {
	URL            string
	Name           string
	SubjectPrefix  string
	ReconnectWait  time.Duration
	MaxReconnects  int
	ConnectTimeout time.Duration
}

// BusNotifier publishes lifecycle events onto NATS so downstream consumers
// (dashboards, paging, reporting) can react without touching the worker.
type BusNotifier struct {
	conn          *nats.Conn
	subjectPrefix string
}

func NewBusNotifier(cfg BusConfig) (*BusNotifier, error) {
	if cfg.Name == "" {
		cfg.Name = "monarch-worker"
	}

	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "monarch.incident"
	}

	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 2 * time.Second
	}

	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = 10
	}

	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.Timeout(cfg.ConnectTimeout),
	)

	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &BusNotifier{conn: conn, subjectPrefix: cfg.SubjectPrefix}, nil
}

func (b *BusNotifier) Channel() string {
	return "bus"
}

func (b *BusNotifier) Notify(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)

	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", b.subjectPrefix, event.Kind)

	if err := b.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	return nil
}

// Close drains the connection so queued publishes flush before shutdown.
func (b *BusNotifier) Close() {
	if b.conn != nil {
		b.conn.Drain()
	}
}
