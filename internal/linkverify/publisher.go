package linkverify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/docpipe/internal/config"
	"git.home.luguber.info/inful/docpipe/internal/logfields"
)

// Publisher delivers broken link events.
type Publisher interface {
	Publish(ctx context.Context, event *BrokenLinkEvent) error
	Close() error
}

// NATSPublisher publishes events as JSON messages on a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	now     func() time.Time
}

// NewNATSPublisher connects to the configured server.
func NewNATSPublisher(cfg config.LinkVerifyConfig) (*NATSPublisher, error) {
	if cfg.NATSURL == "" {
		return nil, fmt.Errorf("link verification nats_url is required")
	}
	conn, err := nats.Connect(cfg.NATSURL,
		nats.Name("docpipe"),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	slog.Info("NATS publisher initialized for link verification",
		slog.String("url", cfg.NATSURL),
		slog.String("subject", cfg.Subject))
	return &NATSPublisher{conn: conn, subject: cfg.Subject, now: time.Now}, nil
}

// Publish sends event and waits for the server to acknowledge the flush.
func (p *NATSPublisher) Publish(ctx context.Context, event *BrokenLinkEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}
	slog.Debug("Published broken link event",
		logfields.Target(event.Target),
		logfields.File(event.SourcePath))
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
