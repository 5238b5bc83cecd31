// Command investigate starts the investigation orchestrator's transport
// adapters, or drives a single investigation from a terminal.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lumenpath/investigator/internal/config"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "investigate",
		Short: "Find a visually verified co-appearance chain between two public figures",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (defaults plus environment if omitted)")

	root.AddCommand(newServeCommand())
	root.AddCommand(newRunCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig loads the configuration and sets the default slog logger to
// match its log level, mirroring the teacher's JSON-handler-in-production
// logging convention.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Observability.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))

	return cfg, nil
}
