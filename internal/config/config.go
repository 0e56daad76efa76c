package config

import (
	"net"
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultServiceURL is the scan endpoint of a locally running scan service.
	DefaultServiceURL = "http://localhost:5000/api/scan"

	// DefaultTimeout bounds one scan request. The remote service runs every
	// check (including a port scan) before it answers, so this is generous.
	DefaultTimeout = 120 * time.Second

	// DefaultBatchSize is the number of targets scanned concurrently.
	// The scan service does the heavy lifting, so a small value is enough.
	DefaultBatchSize = 4

	// AppName is the application name used for XDG directory paths.
	AppName = "sitescan"

	// DefaultUserAgent identifies sitescan in requests to the scan service.
	DefaultUserAgent = "sitescan/1.0 (+https://github.com/nao1215/sitescan)"

	// DefaultMaxBodySize limits the maximum response body size to read.
	// 5MB is far more than any scan result while preventing memory
	// exhaustion from a misbehaving service.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultListenAddr is the address the HTTP API listens on.
	DefaultListenAddr = ":8080"

	// DefaultHistoryLimit is the number of scans listed by history queries.
	DefaultHistoryLimit = 50

	// DefaultMaxSessions bounds the number of live browser sessions the
	// HTTP API keeps. The least recently used session is dropped first.
	DefaultMaxSessions = 1024

	// DefaultAllowedOrigin is the CORS origin allowed by the HTTP API.
	DefaultAllowedOrigin = "*"
)

// Config holds all configuration options for sitescan.
// This struct is designed to be populated from defaults, the config file,
// the environment and CLI flags, and passed through the application via
// dependency injection rather than global state.
type Config struct {
	// ServiceURL is the scan endpoint of the remote scan service.
	ServiceURL string

	// Timeout is the deadline of one scan request, applied by the transport.
	Timeout time.Duration

	// ProxyAddress is an optional SOCKS5 proxy ("host:port") used to reach
	// the scan service. Empty means a direct connection.
	ProxyAddress string

	// Headers are extra HTTP headers sent with every scan request, such as
	// an API key expected by the scan service.
	Headers map[string]string

	// UserAgent is the User-Agent header sent to the scan service.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Set to 0 to use the default (5MB).
	MaxBodySize int64

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// BatchSize is the number of concurrent scans when processing multiple targets.
	BatchSize int

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .sitescan in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// JSONReport enables JSON report output instead of human-readable format.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of human-readable format.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// DBDir is the directory path for storing the scan history database.
	// Defaults to XDG data directory (~/.local/share/sitescan on Linux).
	DBDir string

	// SaveToDB indicates whether to save settled scans to the history database.
	SaveToDB bool

	// Targets is the list of websites to scan.
	Targets []string

	// ListenAddr is the address the HTTP API listens on.
	ListenAddr string

	// HistoryLimit is the default number of scans listed by history queries.
	HistoryLimit int

	// MaxSessions bounds the number of live sessions kept by the HTTP API.
	MaxSessions int

	// ScanRate limits scan submissions per second across the HTTP API.
	// Zero means unlimited.
	ScanRate float64

	// AllowedOrigin is the CORS origin allowed by the HTTP API.
	AllowedOrigin string
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
func NewConfig() *Config {
	return &Config{
		ServiceURL:    DefaultServiceURL,
		Timeout:       DefaultTimeout,
		UserAgent:     DefaultUserAgent,
		MaxBodySize:   DefaultMaxBodySize,
		BatchSize:     DefaultBatchSize,
		SaveToDB:      true,
		ListenAddr:    DefaultListenAddr,
		HistoryLimit:  DefaultHistoryLimit,
		MaxSessions:   DefaultMaxSessions,
		AllowedOrigin: DefaultAllowedOrigin,
	}
}

// XDGDataDir returns the XDG data directory for sitescan.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/sitescan
// On macOS: ~/Library/Application Support/sitescan
// On Windows: %LOCALAPPDATA%\sitescan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for sitescan.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DatabaseDir returns DBDir, or the XDG data directory when it is unset.
func (c *Config) DatabaseDir() string {
	if c.DBDir != "" {
		return c.DBDir
	}
	return XDGDataDir()
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServiceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidServiceURL
	}

	// Timeout must be positive; zero timeout would cause immediate failures
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.ProxyAddress != "" {
		if _, _, err := net.SplitHostPort(c.ProxyAddress); err != nil {
			return ErrInvalidProxyAddress
		}
	}

	// BatchSize must be positive; zero would mean no scanning
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	// MaxBodySize must be non-negative; 0 selects the default
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.HistoryLimit <= 0 {
		return ErrInvalidHistoryLimit
	}

	if c.MaxSessions <= 0 {
		return ErrInvalidMaxSessions
	}

	if c.ScanRate < 0 {
		return ErrInvalidScanRate
	}

	return nil
}

// ValidateScan validates the configuration for the scan command, which
// additionally needs at least one target.
func (c *Config) ValidateScan() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	return c.Validate()
}
