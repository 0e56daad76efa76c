package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/sitescan/internal/config"
	"github.com/nao1215/sitescan/internal/database"
	"github.com/nao1215/sitescan/internal/model"
	"github.com/nao1215/sitescan/internal/report"
)

// newHistoryDB opens a database holding one scan per target, oldest first.
func newHistoryDB(t *testing.T, targets ...string) *database.HistoryDB {
	t.Helper()
	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, target := range targets {
		id, err := model.NormalizeIdentifier(target)
		if err != nil {
			t.Fatalf("NormalizeIdentifier: %v", err)
		}
		outcome := model.Outcome(model.NoTarget{Reason: "target not valid or reachable"})
		if i%2 == 0 {
			outcome = model.ServerError{StatusCode: 502, Detail: "bad gateway"}
		}
		r := model.NewScanReport(target, id, start.Add(time.Duration(i)*time.Minute), time.Second, outcome)
		if _, err := db.SaveScanReport(context.Background(), r); err != nil {
			t.Fatalf("SaveScanReport: %v", err)
		}
	}
	return db
}

func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()
	for _, name := range []string{"list", "all", "list-targets", "show", "limit", "json", "markdown"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
	if got := cmd.Flags().Lookup("limit").DefValue; got != "50" {
		t.Errorf("expected limit default 50, got %q", got)
	}
}

func TestParseHistoryFlags(t *testing.T) {
	t.Parallel()

	t.Run("list requires a target", func(t *testing.T) {
		t.Parallel()
		cmd := parsedSubcommand(t, "history", "--list")
		if _, err := parseHistoryFlags(cmd, config.NewConfig(), nil); err == nil {
			t.Error("expected an error for --list without a target")
		}
	})

	t.Run("all requires a target", func(t *testing.T) {
		t.Parallel()
		cmd := parsedSubcommand(t, "history", "--all")
		if _, err := parseHistoryFlags(cmd, config.NewConfig(), nil); err == nil {
			t.Error("expected an error for --all without a target")
		}
	})

	t.Run("flags are read", func(t *testing.T) {
		t.Parallel()
		cmd := parsedSubcommand(t, "history", "-n", "5", "--json", "--show", "7")
		cfg := config.NewConfig()
		opts, err := parseHistoryFlags(cmd, cfg, []string{"example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if opts.limit != 5 || cfg.HistoryLimit != 5 {
			t.Errorf("unexpected limit %d / %d", opts.limit, cfg.HistoryLimit)
		}
		if opts.showID != 7 || opts.target != "example.com" {
			t.Errorf("unexpected options %+v", opts)
		}
		if !cfg.JSONReport {
			t.Error("expected JSON output")
		}
	})
}

func TestShowHistory(t *testing.T) {
	t.Parallel()

	db := newHistoryDB(t, "a.example", "b.example", "a.example")
	ctx := context.Background()

	t.Run("recent scans", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		w := report.NewJSONWriter(&out)
		if err := showHistory(ctx, db, w, &out, historyOptions{limit: 2}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var records []database.ScanRecord
		if err := json.Unmarshal(out.Bytes(), &records); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records[0].Target != "a.example" || records[1].Target != "b.example" {
			t.Errorf("expected newest first, got %s, %s", records[0].Target, records[1].Target)
		}
	})

	t.Run("target history", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		w := report.NewSimpleWriter(&out)
		if err := showHistory(ctx, db, w, &out, historyOptions{target: "a.example", list: true}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := strings.Count(out.String(), "a.example"); got < 2 {
			t.Errorf("expected two a.example entries, got:\n%s", out.String())
		}
		if strings.Contains(out.String(), "b.example") {
			t.Errorf("expected only a.example, got:\n%s", out.String())
		}
	})

	t.Run("every report of a target", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		w := report.NewJSONWriter(&out)
		if err := showHistory(ctx, db, w, &out, historyOptions{target: "a.example", all: true}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := strings.Count(out.String(), `"elapsed_ms"`); got != 2 {
			t.Errorf("expected two reports, got %d:\n%s", got, out.String())
		}
		if strings.Contains(out.String(), "b.example") {
			t.Errorf("expected only a.example, got:\n%s", out.String())
		}
	})

	t.Run("every report of an unknown target", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		err := showHistory(ctx, db, report.NewSimpleWriter(&out), &out, historyOptions{target: "never.example", all: true})
		if !errors.Is(err, ErrScanNotFound) {
			t.Errorf("expected ErrScanNotFound, got %v", err)
		}
	})

	t.Run("latest report of a target", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		w := report.NewSimpleWriter(&out)
		if err := showHistory(ctx, db, w, &out, historyOptions{target: "b.example"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out.String(), "target not valid or reachable") {
			t.Errorf("expected the stored reason, got:\n%s", out.String())
		}
	})

	t.Run("report by id", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		w := report.NewMarkdownWriter(&out)
		if err := showHistory(ctx, db, w, &out, historyOptions{showID: 1}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out.String(), "bad gateway") {
			t.Errorf("expected the first report, got:\n%s", out.String())
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		err := showHistory(ctx, db, report.NewSimpleWriter(&out), &out, historyOptions{showID: 999})
		if !errors.Is(err, ErrScanNotFound) {
			t.Errorf("expected ErrScanNotFound, got %v", err)
		}
	})

	t.Run("unknown target", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		err := showHistory(ctx, db, report.NewSimpleWriter(&out), &out, historyOptions{target: "never.example"})
		if !errors.Is(err, ErrScanNotFound) {
			t.Errorf("expected ErrScanNotFound, got %v", err)
		}
	})

	t.Run("targets", func(t *testing.T) {
		t.Parallel()
		var out bytes.Buffer
		if err := showHistory(ctx, db, report.NewSimpleWriter(&out), &out, historyOptions{listTargets: true}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := "Scanned targets (2):\n  a.example\n  b.example\n"
		if out.String() != want {
			t.Errorf("expected %q, got %q", want, out.String())
		}
	})
}

func TestListScannedTargets_Empty(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	if err := listScannedTargets(context.Background(), newHistoryDB(t), &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "No scanned targets") {
		t.Errorf("unexpected output %q", out.String())
	}
}
