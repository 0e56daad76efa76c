package main

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/nao1215/sitescan/internal/config"
)

func TestNewServeCmd(t *testing.T) {
	t.Parallel()

	cmd := NewServeCmd()
	for _, name := range []string{"listen", "service-url", "scan-rate", "allowed-origin", "no-save", "log-json"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
}

func TestBuildServeConfig(t *testing.T) {
	t.Parallel()

	configPath := writeTestConfig(t, `server:
  listen: ":9100"
  max_sessions: 8
  scan_rate: 2
  allowed_origin: https://file.example
`)

	t.Run("file values", func(t *testing.T) {
		t.Parallel()
		cmd := parsedSubcommand(t, "serve", "--config", configPath)
		cfg, err := buildServeConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.MaxSessions != 8 || cfg.AllowedOrigin != "https://file.example" {
			t.Errorf("unexpected server settings %+v", cfg)
		}
		if !cfg.SaveToDB || cfg.DBDir == "" {
			t.Errorf("expected history enabled with a directory, got %v %q", cfg.SaveToDB, cfg.DBDir)
		}
	})

	t.Run("flags override the file", func(t *testing.T) {
		t.Parallel()
		cmd := parsedSubcommand(t, "serve", "--config", configPath,
			"-l", "127.0.0.1:9200", "--scan-rate", "0.5", "--allowed-origin", "https://flag.example", "--no-save")
		cfg, err := buildServeConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.ListenAddr != "127.0.0.1:9200" || cfg.ScanRate != 0.5 || cfg.AllowedOrigin != "https://flag.example" {
			t.Errorf("unexpected settings %+v", cfg)
		}
		if cfg.SaveToDB {
			t.Error("expected --no-save to disable history")
		}
	})
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	cfg.ListenAddr = freeAddr(t)
	cfg.DBDir = t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, quietLogger()) }()

	// Wait until the API accepts connections.
	deadline := time.Now().Add(5 * time.Second)
	for {
		conn, err := net.Dial("tcp", cfg.ListenAddr)
		if err == nil {
			_ = conn.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not start: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestServe_InvalidServiceURL(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	cfg.ServiceURL = "not a url"
	cfg.SaveToDB = false

	err := serve(context.Background(), cfg, quietLogger())
	if err == nil {
		t.Fatal("expected an error for an invalid service URL")
	}
	if errors.Is(err, context.Canceled) {
		t.Errorf("unexpected cancellation error %v", err)
	}
}
