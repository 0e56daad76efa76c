package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read by ApplyEnv.
const (
	EnvServiceURL = "SITESCAN_SERVICE_URL"
	EnvTimeout    = "SITESCAN_TIMEOUT"
	EnvProxy      = "SITESCAN_PROXY"
	EnvDBDir      = "SITESCAN_DB_DIR"
	EnvListenAddr = "SITESCAN_LISTEN"
	EnvScanRate   = "SITESCAN_SCAN_RATE"
)

// LoadDotEnv loads variables from .env files into the process environment.
// Variables already set are not overwritten, and missing files are ignored.
func LoadDotEnv(paths ...string) {
	_ = godotenv.Load(paths...)
}

// ApplyEnv overrides cfg with the SITESCAN_* environment variables that are set.
func ApplyEnv(cfg *Config) error {
	if v := envValue(EnvServiceURL); v != "" {
		cfg.ServiceURL = v
	}
	if v := envValue(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvTimeout, err)
		}
		cfg.Timeout = d
	}
	if v := envValue(EnvProxy); v != "" {
		cfg.ProxyAddress = v
	}
	if v := envValue(EnvDBDir); v != "" {
		cfg.DBDir = v
	}
	if v := envValue(EnvListenAddr); v != "" {
		if !strings.Contains(v, ":") {
			v = ":" + v
		}
		cfg.ListenAddr = v
	}
	if v := envValue(EnvScanRate); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvScanRate, err)
		}
		cfg.ScanRate = rate
	}
	return nil
}

func envValue(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
