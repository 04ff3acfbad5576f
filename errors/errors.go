// Package errors provides standardized error handling for the replaystream
// client. It defines the error taxonomy shared by the stream engine and the
// table client, classification helpers used to decide whether a failure is
// fatal to a stream, and wrapping helpers for consistent error context.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Class represents the classification of errors for handling purposes.
type Class int

const (
	// ClassTransient represents temporary errors that may be retried.
	ClassTransient Class = iota
	// ClassInvalid represents errors due to invalid input or configuration.
	ClassInvalid
	// ClassFatal represents unrecoverable errors that terminate a stream.
	ClassFatal
)

// String returns the string representation of Class.
func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassInvalid:
		return "invalid"
	case ClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error variables for the client's error families.
var (
	// Construction and configuration errors.
	ErrInvalidArgument = errors.New("invalid argument")

	// Signature resolution errors.
	ErrTableNotFound    = errors.New("table not found")
	ErrNoSignature      = errors.New("table has no signature")
	ErrDeadlineExceeded = errors.New("deadline exceeded")

	// Sampling errors. ErrRateLimiterTimeout is never surfaced to the
	// consumer; the stream converts it into a graceful end-of-stream.
	ErrRateLimiterTimeout = errors.New("rate limiter: timeout exceeded before sampling was admitted")
	ErrEndOfStream        = errors.New("end of stream")

	// Lifecycle errors.
	ErrAlreadyStarted = errors.New("already started")
	ErrNotStarted     = errors.New("not started")
	ErrStreamClosed   = errors.New("stream closed")
	ErrStopTimeout    = errors.New("stop timeout")

	// Connection errors.
	ErrNoConnection = errors.New("no connection available")
)

// ClassifiedError wraps an error with its classification.
type ClassifiedError struct {
	Class     Class
	Err       error
	Component string
	Operation string
}

// Error implements the error interface.
func (ce *ClassifiedError) Error() string {
	return ce.Err.Error()
}

// Unwrap returns the underlying error.
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsTransient reports whether an error is temporary and safe to retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ClassTransient
	}

	if errors.Is(err, ErrNoConnection) ||
		errors.Is(err, ErrDeadlineExceeded) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// Unclassified transport errors tend to carry these markers.
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{"timeout", "connection", "unavailable", "temporary"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	return false
}

// IsInvalid reports whether an error is due to invalid input.
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ClassInvalid
	}

	return errors.Is(err, ErrInvalidArgument)
}

// IsFatal reports whether an error must terminate the whole stream. Every
// sampling failure other than a rate-limiter timeout is fatal: a failure on
// a replay buffer generally indicates a schema, connectivity or protocol
// problem rather than a transient condition.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ClassFatal
	}

	return !errors.Is(err, ErrRateLimiterTimeout) && !IsTransient(err)
}

// Classify returns the error class for an error.
func Classify(err error) Class {
	switch {
	case IsTransient(err):
		return ClassTransient
	case IsInvalid(err):
		return ClassInvalid
	default:
		return ClassFatal
	}
}

// Wrap creates a standardized error with context following the pattern
// "component.method: action failed: %w".
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

func wrapClassified(class Class, err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{
		Class:     class,
		Err:       Wrap(err, component, method, action),
		Component: component,
		Operation: method,
	}
}

// WrapTransient wraps an error as transient with context.
func WrapTransient(err error, component, method, action string) error {
	return wrapClassified(ClassTransient, err, component, method, action)
}

// WrapInvalid wraps an error as invalid with context.
func WrapInvalid(err error, component, method, action string) error {
	return wrapClassified(ClassInvalid, err, component, method, action)
}

// WrapFatal wraps an error as fatal with context.
func WrapFatal(err error, component, method, action string) error {
	return wrapClassified(ClassFatal, err, component, method, action)
}

// InvalidArgumentf builds an ErrInvalidArgument with a formatted reason.
// Construction parameters are validated eagerly with this before any
// network call is made.
func InvalidArgumentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
