// Package notify publishes broken-link events over NATS JetStream so
// downstream tooling can track reference rot across runs. Publishing is
// best effort; failures are logged, never fatal for a check.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/mdcheck/internal/check"
	"git.home.luguber.info/inful/mdcheck/internal/config"
)

// Event describes one broken or errored reference.
type Event struct {
	RunID     string    `json:"run_id"`
	URL       string    `json:"url"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail,omitempty"`
	File      string    `json:"file"`
	Line      int       `json:"line"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher manages the NATS connection for one run.
type Publisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewPublisher connects to the configured NATS server.
func NewPublisher(opts config.NotifyOptions) (*Publisher, error) {
	conn, err := nats.Connect(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	slog.Debug("NATS publisher initialized", "url", opts.URL, "subject", opts.Subject)
	return &Publisher{conn: conn, js: js, subject: opts.Subject}, nil
}

// PublishReport emits one event per broken or errored result.
func (p *Publisher) PublishReport(ctx context.Context, report *check.Report) {
	for _, res := range report.Results {
		if !res.Invalid() {
			continue
		}
		event := Event{
			RunID:     report.RunID,
			URL:       res.Reference.FullTarget(),
			Status:    string(res.Status),
			Detail:    res.Detail,
			File:      res.Reference.File,
			Line:      res.Reference.Line,
			Timestamp: time.Now(),
		}
		if err := p.publish(ctx, event); err != nil {
			slog.Warn("Failed to publish broken link event", "url", event.URL, "error", err)
		}
	}
}

func (p *Publisher) publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := p.js.Publish(pubCtx, p.subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close closes the NATS connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
