package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for navigation outcomes that callers branch on.
var (
	ErrNotReady         = errors.New("sitemap not loaded")
	ErrSamePage         = errors.New("already on requested page")
	ErrLocked           = errors.New("navigation is locked")
	ErrNotFound         = errors.New("page not found")
	ErrEmptyResponse    = errors.New("empty response")
	ErrRetriesExhausted = errors.New("retries exhausted")
	ErrNoPath           = errors.New("no usable path")
)

// NotFoundError reports an unknown page id. It is a normal outcome: the
// requested transition is abandoned and the current page stays.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("page %q not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// TransportError wraps a failed or timed-out fetch.
type TransportError struct {
	Ref string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Ref, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ConfigurationError is fatal: without a usable path or sitemap the
// presentation cannot navigate at all.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration: %s: %v", e.Reason, e.Err)
	}
	return "configuration: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return e.Err }
