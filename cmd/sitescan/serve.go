package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitescan/internal/config"
	"github.com/nao1215/sitescan/internal/database"
	"github.com/nao1215/sitescan/internal/server"
)

// shutdownTimeout bounds the graceful shutdown of the HTTP API.
const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API for a browser front end",
		Long: `Serve runs an HTTP API that lets a browser submit scans and watch their
progress. Each browser session holds at most one scan at a time.

Endpoints:
  POST   /api/scan            submit {"url": "..."}
  GET    /api/session         current session state
  DELETE /api/session         reset the session
  GET    /ws/session          websocket stream of session states
  GET    /api/checks          check names, labels and guidance
  GET    /api/scans/history   recent scans (?limit=N)
  GET    /api/scans/{id}      a stored report

Examples:
  # Listen on the default address (:8080)
  sitescan serve

  # Listen on another port and log JSON
  sitescan serve --listen :9000 --log-json`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("listen", "l", config.DefaultListenAddr,
		"HTTP listen address")
	cmd.Flags().StringP("service-url", "u", config.DefaultServiceURL,
		"Scan endpoint of the scan service")
	cmd.Flags().Float64("scan-rate", 0,
		"Maximum scan submissions per second across all sessions (0 = unlimited)")
	cmd.Flags().String("allowed-origin", config.DefaultAllowedOrigin,
		"CORS origin allowed to call the API")
	cmd.Flags().Bool("no-save", false,
		"Do not store the scans in the history database")
	cmd.Flags().Bool("log-json", false,
		"Write logs as JSON")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildServeConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logJSON, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		return err
	}
	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose, logJSON)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logger)
}

// buildServeConfig applies the serve flags that were set on top of the
// shared configuration.
func buildServeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("listen") {
		if cfg.ListenAddr, err = flags.GetString("listen"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("service-url") {
		if cfg.ServiceURL, err = flags.GetString("service-url"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("scan-rate") {
		if cfg.ScanRate, err = flags.GetFloat64("scan-rate"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("allowed-origin") {
		if cfg.AllowedOrigin, err = flags.GetString("allowed-origin"); err != nil {
			return nil, err
		}
	}
	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	cfg.DBDir = cfg.DatabaseDir()
	return cfg, nil
}

// serve runs the HTTP API until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	client, err := newTransportClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create scan service client: %w", err)
	}

	var history server.HistoryStore
	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		history = db
	}

	srv, err := server.NewServer(server.Config{
		ListenAddr:    cfg.ListenAddr,
		MaxSessions:   cfg.MaxSessions,
		ScanRate:      cfg.ScanRate,
		AllowedOrigin: cfg.AllowedOrigin,
		HistoryLimit:  cfg.HistoryLimit,
		Logger:        logger,
	}, client, history)
	if err != nil {
		return err
	}
	defer srv.Close()

	httpServer := srv.HTTPServer()
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	logger.Warn("sitescan API listening", "addr", cfg.ListenAddr, "serviceURL", cfg.ServiceURL)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	srv.Close()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
