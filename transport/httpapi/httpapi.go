// Package httpapi exposes the orchestrator over HTTP: start a run, poll
// its snapshot, and stream its event log as Server-Sent Events. Modeled
// on the teacher's services/trace handler/route split — one Handlers
// type holding its collaborators, a RegisterRoutes function wiring them
// onto a router group, gin.H/ErrorResponse-shaped JSON bodies, and a
// request-id attached to every log line.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/lumenpath/investigator/internal/orchestrator"
)

// ErrorResponse is the JSON body returned for every non-2xx response,
// matching the teacher's services/trace handler convention.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// StartRequest is the JSON body for POST /v1/investigations.
type StartRequest struct {
	PersonA string `json:"personA" validate:"required"`
	PersonB string `json:"personB" validate:"required"`
}

// StartResponse is the JSON body returned by a successful start.
type StartResponse struct {
	RunID string `json:"runId"`
}

var validate = validator.New()

// Handlers holds the orchestrator the HTTP routes drive.
type Handlers struct {
	Orchestrator *orchestrator.Orchestrator
	Logger       *slog.Logger
	// DefaultOptions configures every run HandleStart creates. The zero
	// value lets Orchestrator.Start apply its own defaults.
	DefaultOptions orchestrator.Options
	// OnStart, if set, is called with the new run ID after a successful
	// start — the hook point for fan-out relays (NATS, InfluxDB) that
	// need to subscribe to a run as soon as it exists.
	OnStart func(runID string)
}

// NewHandlers builds a Handlers. A nil logger falls back to slog.Default.
func NewHandlers(o *orchestrator.Orchestrator, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{Orchestrator: o, Logger: logger}
}

// RegisterRoutes registers the investigation endpoints onto rg, the same
// shape as the teacher's trace.RegisterRoutes(rg *gin.RouterGroup, ...).
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	rg.POST("/investigations", h.HandleStart)
	rg.GET("/investigations/:id", h.HandleGet)
	rg.GET("/investigations/:id/events", h.HandleEvents)
}

func requestID(c *gin.Context) string {
	if id := c.GetHeader("X-Request-Id"); id != "" {
		return id
	}
	return uuid.NewString()
}

// HandleStart starts a new investigation run and returns its run ID.
func (h *Handlers) HandleStart(c *gin.Context) {
	reqID := requestID(c)
	logger := h.Logger.With("request_id", reqID, "handler", "HandleStart")

	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_BODY"})
		return
	}
	if err := validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "VALIDATION_FAILED"})
		return
	}

	runID, err := h.Orchestrator.Start(c.Request.Context(), req.PersonA, req.PersonB, h.DefaultOptions)
	if err != nil {
		logger.Warn("failed to start investigation", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "START_FAILED"})
		return
	}

	if h.OnStart != nil {
		h.OnStart(runID)
	}
	c.JSON(http.StatusAccepted, StartResponse{RunID: runID})
}

// HandleGet returns the current snapshot of a run.
func (h *Handlers) HandleGet(c *gin.Context) {
	runID := c.Param("id")
	snap, err := h.Orchestrator.Get(runID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "NOT_FOUND"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// HandleEvents streams the run's event log as Server-Sent Events until
// the client disconnects or the run reaches a terminal event.
func (h *Handlers) HandleEvents(c *gin.Context) {
	runID := c.Param("id")
	ch, cancel, err := h.Orchestrator.Subscribe(runID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "NOT_FOUND"})
		return
	}
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w http.ResponseWriter) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Type), ev)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// NewRouter builds a gin.Engine with otelgin tracing middleware and the
// investigation routes mounted under /v1, mirroring cmd/trace/main.go's
// router setup.
func NewRouter(h *Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("investigator"))

	v1 := router.Group("/v1")
	RegisterRoutes(v1, h)

	return router
}
