package config

import "time"

// ServiceConfig describes how to reach the scan service.
type ServiceConfig struct {
	// URL is the scan endpoint.
	URL string `yaml:"url,omitempty"`

	// Timeout bounds one scan request, e.g. "90s".
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Proxy is an optional SOCKS5 proxy in host:port form.
	Proxy string `yaml:"proxy,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"user_agent,omitempty"`

	// Headers are extra HTTP headers sent with every scan request.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// ServerConfig holds settings of the HTTP API.
type ServerConfig struct {
	Listen        string  `yaml:"listen,omitempty"`
	MaxSessions   int     `yaml:"max_sessions,omitempty"`
	ScanRate      float64 `yaml:"scan_rate,omitempty"`
	AllowedOrigin string  `yaml:"allowed_origin,omitempty"`
}

// HistoryConfig holds settings of the scan history database.
type HistoryConfig struct {
	// DBDir is the directory of the history database.
	DBDir string `yaml:"db_dir,omitempty"`

	// Limit is the default number of scans listed.
	Limit int `yaml:"limit,omitempty"`
}

// File represents the structure of the .sitescan configuration file.
type File struct {
	Service ServiceConfig `yaml:"service,omitempty"`
	Server  ServerConfig  `yaml:"server,omitempty"`
	History HistoryConfig `yaml:"history,omitempty"`
}

// Apply copies every value set in the file onto cfg. Unset values keep
// whatever cfg already holds. Headers are merged, the file winning on
// conflicts.
func (f *File) Apply(cfg *Config) {
	if f == nil {
		return
	}

	s := f.Service
	if s.URL != "" {
		cfg.ServiceURL = s.URL
	}
	if s.Timeout != 0 {
		cfg.Timeout = s.Timeout
	}
	if s.Proxy != "" {
		cfg.ProxyAddress = s.Proxy
	}
	if s.UserAgent != "" {
		cfg.UserAgent = s.UserAgent
	}
	if len(s.Headers) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string, len(s.Headers))
		}
		for k, v := range s.Headers {
			cfg.Headers[k] = v
		}
	}

	if f.Server.Listen != "" {
		cfg.ListenAddr = f.Server.Listen
	}
	if f.Server.MaxSessions != 0 {
		cfg.MaxSessions = f.Server.MaxSessions
	}
	if f.Server.ScanRate != 0 {
		cfg.ScanRate = f.Server.ScanRate
	}
	if f.Server.AllowedOrigin != "" {
		cfg.AllowedOrigin = f.Server.AllowedOrigin
	}

	if f.History.DBDir != "" {
		cfg.DBDir = f.History.DBDir
	}
	if f.History.Limit != 0 {
		cfg.HistoryLimit = f.History.Limit
	}
}
