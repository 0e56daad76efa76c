// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic sanitization of sensitive values (cookies, tokens, secrets)
//   - Configurable log levels with verbose mode support
//   - Text output for the CLI and JSON output for the HTTP API
//
// # Security Features
//
// The SecureHandler automatically sanitizes sensitive information in log output:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - Secret values detected by pattern matching (bearer tokens, JWTs, keys)
//   - Session identifiers of the HTTP API
//   - Passwords and credential query parameters embedded in URLs
//   - Extra scan-service headers logged as a map[string]string
//
// Even in verbose mode, sensitive values are masked to prevent accidental
// exposure of secrets in logs that may be shared or stored.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	logger.Info("scan submitted",
//	    "service", "https://user:pw@scanner.local/api/scan", // password masked
//	    "headers", map[string]string{"X-Api-Key": "k"},       // value masked
//	)
//
//	slog.SetDefault(logger)
package log
