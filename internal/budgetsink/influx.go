// Package budgetsink writes a run's terminal budget consumption (images
// searched, images recognized, planner calls) to InfluxDB as an optional
// time-series companion to the Prometheus counters in
// internal/observability, for operators who want budget-over-time
// dashboards rather than point-in-time counter values.
package budgetsink

import (
	"context"
	"log/slog"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/lumenpath/investigator/internal/events"
	"github.com/lumenpath/investigator/internal/orchestrator"
)

// Sink writes terminal-event budget fields to an InfluxDB bucket.
type Sink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	logger   *slog.Logger
}

// Connect builds a Sink against url/org/bucket using token. A nil logger
// falls back to slog.Default.
func Connect(url, token, org, bucket string, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	client := influxdb2.NewClient(url, token)
	return &Sink{client: client, writeAPI: client.WriteAPIBlocking(org, bucket), logger: logger}
}

// Close releases the underlying HTTP client.
func (s *Sink) Close() {
	s.client.Close()
}

// Relay subscribes to runID's event log and writes one point per terminal
// event, then returns. Non-terminal events are ignored; this sink only
// cares about the final budget tally.
func (s *Sink) Relay(ctx context.Context, o *orchestrator.Orchestrator, runID string) error {
	ch, cancel, err := o.Subscribe(runID)
	if err != nil {
		return err
	}
	defer cancel()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			if ev.Type != events.TypeFinal && ev.Type != events.TypeNoPath {
				continue
			}
			point := write.NewPointWithMeasurement("investigation_budget").
				AddTag("run_id", runID).
				AddTag("status", string(ev.Type)).
				AddField("images_searched", intField(ev.Data, "imagesSearched")).
				AddField("images_recognized", intField(ev.Data, "imagesRecognized")).
				AddField("planner_calls", intField(ev.Data, "plannerCalls")).
				SetTime(ev.Timestamp)
			if err := s.writeAPI.WritePoint(ctx, point); err != nil {
				s.logger.Warn("influx write failed", "run_id", runID, "error", err)
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func intField(data map[string]any, key string) int {
	v, ok := data[key].(int)
	if !ok {
		return 0
	}
	return v
}
