// Package ws relays one investigation run's event stream over a
// WebSocket connection, adapted from the upgrader/connection-loop shape
// used for live data feeds elsewhere in the example pack: an
// Upgrader with a permissive CheckOrigin, a per-connection write
// deadline, and a read loop kept alive only to notice client
// disconnects.
package ws

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/lumenpath/investigator/internal/orchestrator"
)

const writeDeadline = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Relay serves one run's event stream over WebSocket connections.
type Relay struct {
	Orchestrator *orchestrator.Orchestrator
	Logger       *slog.Logger
}

// NewRelay builds a Relay. A nil logger falls back to slog.Default.
func NewRelay(o *orchestrator.Orchestrator, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{Orchestrator: o, Logger: logger}
}

// Handle upgrades the request and streams runID's events until the run
// reaches a terminal event or the client disconnects.
func (r *Relay) Handle(c *gin.Context) {
	runID := c.Param("id")
	logger := r.Logger.With("run_id", runID)

	events, cancel, err := r.Orchestrator.Subscribe(runID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": "NOT_FOUND"})
		return
	}
	defer cancel()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Drain client reads only to detect disconnects; this relay never
	// accepts inbound messages.
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := conn.WriteJSON(ev); err != nil {
				logger.Warn("websocket write failed", "error", err)
				return
			}
		case <-disconnected:
			return
		}
	}
}
