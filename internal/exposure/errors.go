package exposure

import (
	"errors"
	"fmt"
)

// ConfigError describes a misconfiguration detected while setting up a
// tracker. Config errors are never returned to the host: they are logged as
// warnings and kept on the tracker for diagnostics (see Tracker.Warnings).
type ConfigError struct {
	// Code identifies the error category.
	Code ConfigErrorCode

	// Message is a human-readable description.
	Message string

	// InstanceID identifies the affected tracker, if any.
	InstanceID string

	// Mode is the behavior that was disabled, if the error is mode-specific.
	Mode string

	// Err is the underlying error, if any.
	Err error
}

// ConfigErrorCode categorizes configuration errors.
type ConfigErrorCode string

const (
	// ErrCodeSinkUnregistered indicates no dispatch sink was registered.
	ErrCodeSinkUnregistered ConfigErrorCode = "SINK_UNREGISTERED"

	// ErrCodeSourceMissing indicates an observing mode was requested without a source.
	ErrCodeSourceMissing ConfigErrorCode = "SOURCE_MISSING"

	// ErrCodeSubscribeFailed indicates the source refused a subscription.
	ErrCodeSubscribeFailed ConfigErrorCode = "SUBSCRIBE_FAILED"

	// ErrCodeInvalidMode indicates an unknown mode was dropped.
	ErrCodeInvalidMode ConfigErrorCode = "INVALID_MODE"

	// ErrCodeInvalidOptions indicates observer options were replaced by defaults.
	ErrCodeInvalidOptions ConfigErrorCode = "INVALID_OPTIONS"
)

// Error implements the error interface.
func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Mode != "" {
		msg += fmt.Sprintf(" (mode=%s)", e.Mode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsSinkUnregistered reports whether err is an unregistered-sink config error.
func IsSinkUnregistered(err error) bool {
	return hasCode(err, ErrCodeSinkUnregistered)
}

// IsSubscribeError reports whether err came from a failed or impossible subscription.
func IsSubscribeError(err error) bool {
	return hasCode(err, ErrCodeSubscribeFailed) || hasCode(err, ErrCodeSourceMissing)
}

func hasCode(err error, code ConfigErrorCode) bool {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}
