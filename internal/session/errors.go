package session

import "errors"

var (
	// ErrBusy is returned by Submit while a scan is in flight.
	ErrBusy = errors.New("a scan is already in progress")

	// ErrSuperseded is returned by Scan when the submission it waited for
	// was discarded by Reset before it settled.
	ErrSuperseded = errors.New("scan was reset before it completed")

	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("session is closed")
)
