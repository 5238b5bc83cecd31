// Package mcp exposes the orchestrator as two MCP tools, start_investigation
// and get_investigation, so an external LLM client can drive and poll a run
// the same way it would call any other tool. Built on the same
// github.com/modelcontextprotocol/go-sdk package the teacher's mcphost
// package uses on the client side of an MCP connection; here the module is
// the server.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lumenpath/investigator/internal/orchestrator"
)

// Server wraps an MCP server exposing the orchestrator's Start/Get
// operations as tools.
type Server struct {
	mcp          *mcpsdk.Server
	orchestrator *orchestrator.Orchestrator
	logger       *slog.Logger
}

// startInvestigationParams is the input schema for start_investigation.
type startInvestigationParams struct {
	PersonA string `json:"personA" jsonschema:"the first public figure's name"`
	PersonB string `json:"personB" jsonschema:"the second public figure's name"`
}

// getInvestigationParams is the input schema for get_investigation.
type getInvestigationParams struct {
	RunID string `json:"runId" jsonschema:"the run id returned by start_investigation"`
}

// New builds a Server wrapping o, registering its tools with the MCP SDK.
func New(o *orchestrator.Orchestrator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	impl := &mcpsdk.Implementation{Name: "investigator", Version: "0.1.0"}
	srv := mcpsdk.NewServer(impl, nil)

	s := &Server{mcp: srv, orchestrator: o, logger: logger}

	mcpsdk.AddTool(srv, &mcpsdk.Tool{
		Name:        "start_investigation",
		Description: "Start a new investigation searching for a visually verified co-appearance chain between two public figures.",
	}, s.handleStart)

	mcpsdk.AddTool(srv, &mcpsdk.Tool{
		Name:        "get_investigation",
		Description: "Get the current status and, if complete, the confirmed chain of a previously started investigation.",
	}, s.handleGet)

	return s
}

// Run serves the MCP server over t until ctx is cancelled.
func (s *Server) Run(ctx context.Context, t mcpsdk.Transport) error {
	return s.mcp.Run(ctx, t)
}

func (s *Server) handleStart(ctx context.Context, req *mcpsdk.CallToolRequest, params startInvestigationParams) (*mcpsdk.CallToolResult, any, error) {
	runID, err := s.orchestrator.Start(ctx, params.PersonA, params.PersonB, orchestrator.Options{})
	if err != nil {
		s.logger.Warn("mcp start_investigation failed", "error", err)
		return &mcpsdk.CallToolResult{
			IsError: true,
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
		}, nil, nil
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: fmt.Sprintf("started investigation %s", runID)}},
	}, map[string]string{"runId": runID}, nil
}

func (s *Server) handleGet(ctx context.Context, req *mcpsdk.CallToolRequest, params getInvestigationParams) (*mcpsdk.CallToolResult, any, error) {
	snap, err := s.orchestrator.Get(params.RunID)
	if err != nil {
		return &mcpsdk.CallToolResult{
			IsError: true,
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
		}, nil, nil
	}

	text := fmt.Sprintf("status=%s reason=%q", snap.Status, snap.Reason)
	if snap.Path != nil {
		text = fmt.Sprintf("%s hops=%d confidence=%.1f", text, snap.Path.Hops(), snap.Path.Confidence())
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
	}, snap, nil
}
