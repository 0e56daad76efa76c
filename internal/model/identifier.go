package model

import (
	"errors"
	"strings"
)

// ErrEmptyIdentifier is returned when the submitted target is empty or only whitespace.
var ErrEmptyIdentifier = errors.New("scan target cannot be empty")

// ValidationReason names why a raw target was rejected.
type ValidationReason int

const (
	// ValidationEmpty means the trimmed input had zero length.
	ValidationEmpty ValidationReason = iota
)

// String returns the string representation of the ValidationReason.
func (r ValidationReason) String() string {
	switch r {
	case ValidationEmpty:
		return "empty"
	default:
		return unknownStr
	}
}

// ValidationError is returned by NormalizeIdentifier when the raw input cannot
// become a ScanIdentifier. It never reaches the transport.
type ValidationError struct {
	Reason ValidationReason
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	switch e.Reason {
	case ValidationEmpty:
		return ErrEmptyIdentifier.Error()
	default:
		return "invalid scan target"
	}
}

// Unwrap allows errors.Is(err, ErrEmptyIdentifier).
func (e *ValidationError) Unwrap() error {
	if e.Reason == ValidationEmpty {
		return ErrEmptyIdentifier
	}
	return nil
}

// pathSeparator is stripped once from the end of a submitted target.
const pathSeparator = "/"

// unknownStr is the string representation for unknown enum values.
const unknownStr = "unknown"

// ScanIdentifier is an immutable value object naming the host or URL to scan.
// It is never empty and never ends with the path separator it was
// normalized from, although it may end with a second one (see NormalizeIdentifier).
type ScanIdentifier struct {
	value string
}

// NormalizeIdentifier canonicalizes a raw user-entered target.
//
// The input is trimmed of surrounding whitespace; an empty result fails with a
// *ValidationError wrapping ErrEmptyIdentifier. Otherwise exactly one trailing
// "/" is removed if present. Stripping is not recursive: "example.com//"
// becomes "example.com/". A lone "/" normalizes to nothing and is rejected
// as empty too.
func NormalizeIdentifier(raw string) (ScanIdentifier, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ScanIdentifier{}, &ValidationError{Reason: ValidationEmpty}
	}
	value := strings.TrimSuffix(trimmed, pathSeparator)
	if value == "" {
		return ScanIdentifier{}, &ValidationError{Reason: ValidationEmpty}
	}
	return ScanIdentifier{value: value}, nil
}

// String returns the identifier as sent to the scan service.
func (id ScanIdentifier) String() string {
	return id.value
}

// IsZero reports whether the identifier was never produced by NormalizeIdentifier.
func (id ScanIdentifier) IsZero() bool {
	return id.value == ""
}

// MarshalText implements encoding.TextMarshaler.
func (id ScanIdentifier) MarshalText() ([]byte, error) {
	return []byte(id.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
// Stored identifiers are restored verbatim; they were normalized when created.
func (id *ScanIdentifier) UnmarshalText(text []byte) error {
	id.value = string(text)
	return nil
}
