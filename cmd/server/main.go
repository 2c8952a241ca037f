// Command server runs the mmbridge chat gateway in front of MiniMax.
//
// Configuration is read from a YAML file (see -config), an optional .env
// file and MMBRIDGE_* environment variables. Run with -h for flags.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/rhuss/mmbridge/pkg/config"
	"github.com/rhuss/mmbridge/pkg/debug"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	debug.Init(debug.Options{
		Categories: cfg.Logging.Debug,
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
	})

	gw, err := newGateway(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer gw.Close()

	slog.Info("server starting",
		"port", cfg.Server.Port,
		"minimax", cfg.MiniMax.BaseURL,
		"model", cfg.MiniMax.DefaultModel,
		"storage", cfg.Storage.Type,
		"auth", cfg.Auth.Type,
	)
	return gw.server.ListenAndServe()
}
