package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitescan/internal/batch"
	"github.com/nao1215/sitescan/internal/config"
	"github.com/nao1215/sitescan/internal/database"
	"github.com/nao1215/sitescan/internal/model"
	"github.com/nao1215/sitescan/internal/report"
	"github.com/nao1215/sitescan/internal/session"
	"github.com/nao1215/sitescan/internal/transport"
)

// ErrScansIncomplete is returned when at least one target produced no report.
var ErrScansIncomplete = errors.New("some scans did not complete")

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [url]...",
		Short: "Scan websites through the scan service",
		Long: `Scan submits each website to the scan service and prints a report of the
security checks it ran.

A scan either completes with findings, finds nothing to view (the service
could not validate or reach the target), fails to connect to the service, or
receives a server error from it. All four are reports, not command failures.

Examples:
  # Scan a single website
  sitescan scan https://example.com

  # Scan several websites, four at a time
  sitescan scan --batch 4 site1.example site2.example site3.example

  # Use a scan service on another host
  sitescan scan --service-url https://scanner.internal/api/scan example.com

  # Reach the scan service through a SOCKS5 proxy
  sitescan scan --proxy 127.0.0.1:1080 example.com

  # Output a Markdown report to a file
  sitescan scan --markdown -o reports/example.md example.com`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Scan service flags
	cmd.Flags().StringP("service-url", "u", config.DefaultServiceURL,
		"Scan endpoint of the scan service")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Deadline of one scan request")
	cmd.Flags().StringP("proxy", "x", "",
		"SOCKS5 proxy used to reach the scan service (host:port)")

	// Batch scanning flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent scans")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-save", false,
		"Do not store the scans in the history database")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.ValidateScan(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose, false)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runScan(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// buildConfig creates a Config from the shared configuration and the scan
// command flags. Flags override the file and environment only when set.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("service-url") {
		if cfg.ServiceURL, err = flags.GetString("service-url"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy") {
		if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("batch") {
		if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
			return nil, err
		}
	}

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	cfg.DBDir = cfg.DatabaseDir()

	cfg.Targets = args
	return cfg, nil
}

// newTransportClient creates the scan service client described by cfg.
func newTransportClient(cfg *config.Config, logger *slog.Logger) (*transport.Client, error) {
	opts := []transport.Option{
		transport.WithTimeout(cfg.Timeout),
		transport.WithUserAgent(cfg.UserAgent),
		transport.WithMaxBodySize(cfg.MaxBodySize),
		transport.WithLogger(logger),
	}
	if cfg.ProxyAddress != "" {
		opts = append(opts, transport.WithProxy(cfg.ProxyAddress))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, transport.WithHeaders(cfg.Headers))
	}
	return transport.NewClient(cfg.ServiceURL, opts...)
}

// runScan executes the scan. Reports go to out, progress to progress.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger, out, progress io.Writer) error {
	// Reject every invalid target before anything is sent.
	for _, target := range cfg.Targets {
		if _, err := model.NormalizeIdentifier(target); err != nil {
			return fmt.Errorf("invalid target %q: %w", target, err)
		}
	}

	logger.Info("starting scan",
		"targets", cfg.Targets,
		"serviceURL", cfg.ServiceURL,
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	client, err := newTransportClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create scan service client: %w", err)
	}

	if cfg.ProxyAddress != "" {
		if status := client.CheckProxy(ctx); status != transport.ProxyStatusOK {
			return fmt.Errorf("proxy check failed: %w (make sure a SOCKS5 proxy is running at %s)",
				status.Error(), cfg.ProxyAddress)
		}
		logger.Info("proxy connection verified", "address", cfg.ProxyAddress)
	}

	var db *database.HistoryDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	output, closeOutput, err := openOutput(cfg.ReportFile, out)
	if err != nil {
		return err
	}
	defer closeOutput()

	s := &scanner{
		cfg:      cfg,
		sender:   client,
		db:       db,
		writer:   newReportWriter(cfg, output),
		progress: progress,
		logger:   logger,
	}

	if len(cfg.Targets) > 1 && cfg.BatchSize > 1 {
		return s.runBatch(ctx)
	}
	return s.runSequential(ctx)
}

// scanner runs the scans of one command invocation.
type scanner struct {
	cfg      *config.Config
	sender   session.Sender
	db       *database.HistoryDB
	writer   report.Writer
	progress io.Writer
	logger   *slog.Logger
}

func (s *scanner) newController() *session.Controller {
	return session.NewController(s.sender, session.WithLogger(s.logger))
}

// runSequential scans targets one at a time.
func (s *scanner) runSequential(ctx context.Context) error {
	incomplete := 0
	for _, target := range s.cfg.Targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fmt.Fprintf(s.progress, "Scanning %s...\n", target)

		c := s.newController()
		st, err := c.Scan(ctx, target)
		c.Close()
		if err != nil {
			s.logger.Error("scan failed", "target", target, "error", err)
			fmt.Fprintf(s.progress, "Scan error for %s: %v\n", target, err)
			incomplete++
			continue
		}

		s.handleSettled(ctx, st)
	}

	if incomplete > 0 {
		return fmt.Errorf("%w: %d of %d", ErrScansIncomplete, incomplete, len(s.cfg.Targets))
	}
	return nil
}

// runBatch scans multiple targets concurrently.
func (s *scanner) runBatch(ctx context.Context) error {
	fmt.Fprintf(s.progress, "Starting batch scan of %d targets (concurrency: %d)...\n\n",
		len(s.cfg.Targets), s.cfg.BatchSize)

	startTime := time.Now()

	bp := batch.NewProcessor(s.newController,
		batch.WithConcurrency(s.cfg.BatchSize),
		batch.WithLogger(s.logger),
	)

	var (
		mu         sync.Mutex
		incomplete int
	)
	err := bp.ProcessBatchWithCallback(ctx, s.cfg.Targets, func(r batch.Result) {
		mu.Lock()
		defer mu.Unlock()

		if r.Err != nil {
			fmt.Fprintf(s.progress, "[%d/%d] Scan error for %s: %v\n", r.Index+1, len(s.cfg.Targets), r.Target, r.Err)
			incomplete++
			return
		}
		fmt.Fprintf(s.progress, "[%d/%d] Scan completed: %s\n", r.Index+1, len(s.cfg.Targets), r.Target)
		s.handleSettled(ctx, r.State)
	})

	fmt.Fprintf(s.progress, "\nBatch scan completed in %s\n", time.Since(startTime).Round(time.Millisecond))

	if err != nil {
		return err
	}
	if incomplete > 0 {
		return fmt.Errorf("%w: %d of %d", ErrScansIncomplete, incomplete, len(s.cfg.Targets))
	}
	return nil
}

// handleSettled writes the report of a settled scan and stores it.
func (s *scanner) handleSettled(ctx context.Context, st session.State) {
	scanReport := st.Report()
	if scanReport == nil {
		return
	}

	if _, err := s.writer.Write(scanReport); err != nil {
		s.logger.Error("report failed", "target", scanReport.Identifier.String(), "error", err)
	}

	if err := saveScanReport(ctx, s.db, scanReport, s.logger); err != nil {
		s.logger.Error("failed to save scan report", "target", scanReport.Identifier.String(), "error", err)
	}
}

// newReportWriter returns the writer for the report format selected in cfg.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
}

// openOutput returns the report destination: the file at path, or fallback
// when path is empty. The returned function closes the file.
func openOutput(path string, fallback io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return fallback, func() {}, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports may contain sensitive information that should only be readable by the owner
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// saveScanReport saves the scan report to the database if enabled.
// If db is nil, this function is a no-op.
func saveScanReport(ctx context.Context, db *database.HistoryDB, scanReport *model.ScanReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	id, err := db.SaveScanReport(ctx, scanReport)
	if err != nil {
		return fmt.Errorf("failed to save scan report: %w", err)
	}

	logger.Info("scan report saved to database", "target", scanReport.Identifier.String(), "id", id)
	return nil
}
