// Package nats fans a run's event log out onto a NATS subject, one
// message per event, for deployments with more than one event consumer
// (dashboards, audit sinks, other services) where SSE and WebSocket's
// one-relay-per-subscriber model doesn't scale.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/lumenpath/investigator/internal/orchestrator"
)

// Publisher republishes a run's events onto subject.<runID> as they are
// emitted.
type Publisher struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// Connect dials url and returns a Publisher that will publish under
// subjectPrefix. A nil logger falls back to slog.Default.
func Connect(url, subjectPrefix string, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := nats.Connect(url, nats.Name("investigator"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("nats: connect: %w", err)
	}
	return &Publisher{conn: conn, subject: subjectPrefix, logger: logger}, nil
}

// Close drains and closes the underlying connection.
func (p *Publisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("nats drain failed", "error", err)
	}
}

// Relay subscribes to runID's event log and publishes every event to
// p.subject.<runID> until the log closes or ctx is cancelled.
func (p *Publisher) Relay(ctx context.Context, o *orchestrator.Orchestrator, runID string) error {
	events, cancel, err := o.Subscribe(runID)
	if err != nil {
		return err
	}
	defer cancel()

	subject := fmt.Sprintf("%s.%s", p.subject, runID)
	logger := p.logger.With("run_id", runID, "subject", subject)

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				logger.Warn("failed to marshal event for nats publish", "error", err)
				continue
			}
			if err := p.conn.Publish(subject, payload); err != nil {
				logger.Warn("nats publish failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
