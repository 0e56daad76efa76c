package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitescan/internal/config"
	"github.com/nao1215/sitescan/internal/database"
	"github.com/nao1215/sitescan/internal/model"
	"github.com/nao1215/sitescan/internal/report"
)

// ErrScanNotFound is returned when the requested history entry does not exist.
var ErrScanNotFound = errors.New("scan not found")

// NewHistoryCmd creates the history command.
// This command reads scan reports stored by the scan and serve commands.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "Show stored scan reports",
		Long: `History displays scans stored in the history database.

Without arguments it lists the most recent scans across all targets. With a
target it shows the latest report for that target, its full history with
--list, or every stored report with --all. Stored reports are never reused to answer a new scan.

Examples:
  # List the 50 most recent scans
  sitescan history

  # Show the latest report for a website
  sitescan history example.com

  # List every scan of a website
  sitescan history --list example.com

  # Show every stored report of a website, newest first
  sitescan history --all example.com

  # Show a stored report by ID
  sitescan history --show 12

  # List all scanned targets
  sitescan history --list-targets`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list", "l", false,
		"List scan history for the specified target")
	cmd.Flags().BoolP("all", "a", false,
		"Show every stored report for the specified target, newest first")
	cmd.Flags().BoolP("list-targets", "L", false,
		"List all scanned targets in the database")
	cmd.Flags().Int64P("show", "s", 0,
		"Show a stored report by ID (use --list to see available IDs)")
	cmd.Flags().IntP("limit", "n", config.DefaultHistoryLimit,
		"Number of recent scans to list")

	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output in Markdown format")

	return cmd
}

// historyOptions are the parsed flags of the history command.
type historyOptions struct {
	target      string
	list        bool
	all         bool
	listTargets bool
	showID      int64
	limit       int
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts, err := parseHistoryFlags(cmd, cfg, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	setupLogger(cmd.ErrOrStderr(), cfg.Verbose, false)

	// Validate arguments before opening the database
	if opts.target != "" {
		id, err := model.NormalizeIdentifier(opts.target)
		if err != nil {
			return fmt.Errorf("invalid target: %w", err)
		}
		opts.target = id.String()
	}

	db, err := database.Open(cfg.DatabaseDir(), database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return showHistory(cmd.Context(), db, newReportWriter(cfg, cmd.OutOrStdout()), cmd.OutOrStdout(), opts)
}

func parseHistoryFlags(cmd *cobra.Command, cfg *config.Config, args []string) (historyOptions, error) {
	var opts historyOptions
	var err error

	flags := cmd.Flags()
	if opts.list, err = flags.GetBool("list"); err != nil {
		return opts, err
	}
	if opts.all, err = flags.GetBool("all"); err != nil {
		return opts, err
	}
	if opts.listTargets, err = flags.GetBool("list-targets"); err != nil {
		return opts, err
	}
	if opts.showID, err = flags.GetInt64("show"); err != nil {
		return opts, err
	}
	opts.limit = cfg.HistoryLimit
	if flags.Changed("limit") {
		if opts.limit, err = flags.GetInt("limit"); err != nil {
			return opts, err
		}
		cfg.HistoryLimit = opts.limit
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return opts, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return opts, err
	}

	if len(args) > 0 {
		opts.target = args[0]
	}
	if opts.list && opts.target == "" {
		return opts, errors.New("--list requires a target (run without arguments to list recent scans)")
	}
	if opts.all && opts.target == "" {
		return opts, errors.New("--all requires a target")
	}
	return opts, nil
}

// historyStore is the part of the history database the history command reads.
type historyStore interface {
	GetRecentScans(ctx context.Context, limit int) ([]database.ScanRecord, error)
	GetScanHistory(ctx context.Context, target string) ([]*model.ScanReport, error)
	GetScanHistoryWithMetadata(ctx context.Context, target string) ([]database.ScanRecord, error)
	GetLatestScanReport(ctx context.Context, target string) (*model.ScanReport, error)
	GetScanReportByID(ctx context.Context, id int64) (*model.ScanReport, error)
	ListScannedTargets(ctx context.Context) ([]string, error)
}

// showHistory renders the history entries selected by opts.
func showHistory(ctx context.Context, db historyStore, w report.Writer, out io.Writer, opts historyOptions) error {
	switch {
	case opts.listTargets:
		return listScannedTargets(ctx, db, out)

	case opts.showID > 0:
		scanReport, err := db.GetScanReportByID(ctx, opts.showID)
		if err != nil {
			return err
		}
		if scanReport == nil {
			return fmt.Errorf("%w: id %d", ErrScanNotFound, opts.showID)
		}
		_, err = w.Write(scanReport)
		return err

	case opts.target != "" && opts.list:
		records, err := db.GetScanHistoryWithMetadata(ctx, opts.target)
		if err != nil {
			return err
		}
		_, err = w.WriteHistory(records)
		return err

	case opts.target != "" && opts.all:
		reports, err := db.GetScanHistory(ctx, opts.target)
		if err != nil {
			return err
		}
		if len(reports) == 0 {
			return fmt.Errorf("%w: no scans recorded for %s", ErrScanNotFound, opts.target)
		}
		for _, r := range reports {
			if _, err := w.Write(r); err != nil {
				return err
			}
		}
		return nil

	case opts.target != "":
		scanReport, err := db.GetLatestScanReport(ctx, opts.target)
		if err != nil {
			return err
		}
		if scanReport == nil {
			return fmt.Errorf("%w: no scans recorded for %s", ErrScanNotFound, opts.target)
		}
		_, err = w.Write(scanReport)
		return err

	default:
		records, err := db.GetRecentScans(ctx, opts.limit)
		if err != nil {
			return err
		}
		_, err = w.WriteHistory(records)
		return err
	}
}

// listScannedTargets prints every target with stored scans.
func listScannedTargets(ctx context.Context, db historyStore, out io.Writer) error {
	targets, err := db.ListScannedTargets(ctx)
	if err != nil {
		return err
	}

	if len(targets) == 0 {
		fmt.Fprintln(out, "No scanned targets in the database.")
		return nil
	}

	fmt.Fprintf(out, "Scanned targets (%d):\n", len(targets))
	for _, target := range targets {
		fmt.Fprintf(out, "  %s\n", target)
	}
	return nil
}
