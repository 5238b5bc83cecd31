package main

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lumenpath/investigator/internal/budgetsink"
	"github.com/lumenpath/investigator/internal/observability"
	"github.com/lumenpath/investigator/internal/orchestrator"
	"github.com/lumenpath/investigator/internal/planner/providerfactory"
	"github.com/lumenpath/investigator/transport/httpapi"
	mcptransport "github.com/lumenpath/investigator/transport/mcp"
	natstransport "github.com/lumenpath/investigator/transport/nats"
	wstransport "github.com/lumenpath/investigator/transport/ws"
)

var serveMCPStdio bool

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP, WebSocket, metrics, and (optionally) MCP and NATS adapters",
		RunE:  runServe,
	}
	cmd.Flags().BoolVar(&serveMCPStdio, "mcp-stdio", false, "also serve the MCP tool surface over stdio")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obsProvider, err := observability.Bootstrap(ctx, observability.Config{
		ServiceName:    cfg.Observability.ServiceName,
		OTLPEndpoint:   cfg.Observability.OTLPEndpoint,
		StdoutFallback: cfg.Observability.StdoutFallback,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), observability.DefaultShutdownTimeout)
		defer cancel()
		if err := obsProvider.Shutdown(shutdownCtx); err != nil {
			slog.Warn("observability shutdown failed", "error", err)
		}
	}()

	planner, err := providerfactory.New().Build(cfg.ToProviderConfig())
	if err != nil {
		return err
	}

	search, scene, recognizer := demoProviders()
	o := orchestrator.New(search, demoFetcher(), scene, recognizer, slog.Default())
	opts := cfg.ToOrchestratorOptions()
	opts.Planner = planner

	g, gctx := errgroup.WithContext(ctx)

	var onStartHooks []func(runID string)

	var natsPub *natstransport.Publisher
	if cfg.NATS.URL != "" {
		natsPub, err = natstransport.Connect(cfg.NATS.URL, cfg.NATS.Subject, slog.Default())
		if err != nil {
			return err
		}
		defer natsPub.Close()
		slog.Info("nats fan-out enabled", "url", cfg.NATS.URL, "subject", cfg.NATS.Subject)
		onStartHooks = append(onStartHooks, func(runID string) {
			go func() {
				if err := natsPub.Relay(gctx, o, runID); err != nil {
					slog.Warn("nats relay ended with error", "run_id", runID, "error", err)
				}
			}()
		})
	}

	var influxSink *budgetsink.Sink
	if cfg.Influx.URL != "" {
		influxSink = budgetsink.Connect(cfg.Influx.URL, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket, slog.Default())
		defer influxSink.Close()
		slog.Info("influx budget sink enabled", "url", cfg.Influx.URL, "bucket", cfg.Influx.Bucket)
		onStartHooks = append(onStartHooks, func(runID string) {
			go func() {
				if err := influxSink.Relay(gctx, o, runID); err != nil {
					slog.Warn("influx relay ended with error", "run_id", runID, "error", err)
				}
			}()
		})
	}

	handlers := httpapi.NewHandlers(o, slog.Default())
	handlers.DefaultOptions = opts
	handlers.OnStart = func(runID string) {
		for _, hook := range onStartHooks {
			hook(runID)
		}
	}
	httpRouter := httpapi.NewRouter(handlers)
	httpRouter.GET("/metrics", gin.WrapH(promhttp.HandlerFor(obsProvider.Registry, promhttp.HandlerOpts{})))
	httpServer := &http.Server{Addr: cfg.Server.HTTPAddr, Handler: httpRouter}

	wsRouter := gin.New()
	wsRouter.Use(gin.Recovery())
	relay := wstransport.NewRelay(o, slog.Default())
	wsRouter.GET("/v1/investigations/:id/ws", relay.Handle)
	wsServer := &http.Server{Addr: cfg.Server.WSAddr, Handler: wsRouter}

	g.Go(func() error { return runAndShutdown(gctx, httpServer) })
	g.Go(func() error { return runAndShutdown(gctx, wsServer) })

	if serveMCPStdio {
		mcpServer := mcptransport.New(o, slog.Default())
		g.Go(func() error { return mcpServer.Run(gctx, &mcpsdk.StdioTransport{}) })
	}

	slog.Info("investigator serving", "http_addr", cfg.Server.HTTPAddr, "ws_addr", cfg.Server.WSAddr)
	return g.Wait()
}

func runAndShutdown(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), observability.DefaultShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
