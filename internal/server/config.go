package server

import (
	"log/slog"
	"time"
)

// Defaults applied by NewServer to unset Config fields.
const (
	DefaultListenAddr    = ":8080"
	DefaultMaxSessions   = 1024
	DefaultHistoryLimit  = 50
	DefaultAllowedOrigin = "*"

	// maxHistoryLimit caps the limit query parameter of the history endpoint.
	maxHistoryLimit = 1000

	// historySaveTimeout bounds writing one settled scan to the history store.
	historySaveTimeout = 10 * time.Second

	// subscriberBuffer is the number of states queued for one websocket.
	subscriberBuffer = 16

	// wsWriteTimeout bounds writing one state to a websocket.
	wsWriteTimeout = 10 * time.Second
)

// Config holds the settings of the HTTP API.
type Config struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string

	// MaxSessions bounds the number of live sessions.
	MaxSessions int

	// ScanRate limits scan submissions per second across all sessions.
	// Zero means unlimited.
	ScanRate float64

	// AllowedOrigin is sent as Access-Control-Allow-Origin and checked on
	// websocket upgrades. "*" allows every origin.
	AllowedOrigin string

	// HistoryLimit is the number of scans listed when no limit is requested.
	HistoryLimit int

	// Logger receives request and session logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// withDefaults returns cfg with unset fields filled in.
func (cfg Config) withDefaults() Config {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.AllowedOrigin == "" {
		cfg.AllowedOrigin = DefaultAllowedOrigin
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}
