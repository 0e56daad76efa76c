package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
var (
	// ErrNoTarget is returned when the scan command is given no target.
	ErrNoTarget = errors.New("no target specified: provide at least one website to scan")

	// ErrInvalidServiceURL is returned when the scan service URL is not an
	// absolute http or https URL.
	ErrInvalidServiceURL = errors.New("invalid service URL: must be an absolute http or https URL")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	// A timeout of zero or negative would cause immediate request failures.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidProxyAddress is returned when the proxy is not in host:port form.
	ErrInvalidProxyAddress = errors.New("invalid proxy address: must be host:port")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// A negative body size is invalid; use 0 to use the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidHistoryLimit is returned when the history limit is not positive.
	ErrInvalidHistoryLimit = errors.New("invalid history limit: must be positive")

	// ErrInvalidMaxSessions is returned when the session table size is not positive.
	ErrInvalidMaxSessions = errors.New("invalid max sessions: must be positive")

	// ErrInvalidScanRate is returned when the submission rate is negative.
	ErrInvalidScanRate = errors.New("invalid scan rate: must be non-negative")
)
