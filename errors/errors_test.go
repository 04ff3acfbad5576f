package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestClass_String(t *testing.T) {
	tests := []struct {
		class    Class
		expected string
	}{
		{ClassTransient, "transient"},
		{ClassInvalid, "invalid"},
		{ClassFatal, "fatal"},
		{Class(42), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			if got := test.class.String(); got != test.expected {
				t.Errorf("expected %s, got %s", test.expected, got)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"no connection", ErrNoConnection, true},
		{"deadline exceeded", ErrDeadlineExceeded, true},
		{"context deadline", context.DeadlineExceeded, true},
		{"invalid argument", ErrInvalidArgument, false},
		{"table not found", ErrTableNotFound, false},
		{"timeout in message", fmt.Errorf("request timeout while sampling"), true},
		{"classified transient", &ClassifiedError{Class: ClassTransient, Err: fmt.Errorf("x")}, true},
		{"classified fatal", &ClassifiedError{Class: ClassFatal, Err: fmt.Errorf("x")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := IsTransient(test.err); got != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, got, test.err)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	if IsFatal(ErrRateLimiterTimeout) {
		t.Error("rate limiter timeout must not be fatal, it signals end of stream")
	}
	if IsFatal(ErrNoConnection) {
		t.Error("transient connection loss should not classify as fatal")
	}
	if !IsFatal(ErrTableNotFound) {
		t.Error("table not found should be fatal to a stream")
	}
	if !IsFatal(errors.New("signature mismatch at index 0")) {
		t.Error("unknown non-transient errors should be fatal")
	}
}

func TestWrap(t *testing.T) {
	base := errors.New("boom")
	wrapped := Wrap(base, "Stream", "Start", "resolve signature")

	if !errors.Is(wrapped, base) {
		t.Error("wrapped error should unwrap to the base error")
	}
	want := "Stream.Start: resolve signature failed: boom"
	if wrapped.Error() != want {
		t.Errorf("expected %q, got %q", want, wrapped.Error())
	}
	if Wrap(nil, "a", "b", "c") != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestWrapClassified(t *testing.T) {
	base := errors.New("boom")

	for _, test := range []struct {
		name  string
		wrap  func(error, string, string, string) error
		class Class
	}{
		{"transient", WrapTransient, ClassTransient},
		{"invalid", WrapInvalid, ClassInvalid},
		{"fatal", WrapFatal, ClassFatal},
	} {
		t.Run(test.name, func(t *testing.T) {
			err := test.wrap(base, "Comp", "Method", "act")
			var ce *ClassifiedError
			if !errors.As(err, &ce) {
				t.Fatal("expected a ClassifiedError")
			}
			if ce.Class != test.class {
				t.Errorf("expected class %v, got %v", test.class, ce.Class)
			}
			if !errors.Is(err, base) {
				t.Error("classified error should unwrap to the base error")
			}
			if test.wrap(nil, "a", "b", "c") != nil {
				t.Error("wrapping nil should return nil")
			}
		})
	}
}

func TestInvalidArgumentf(t *testing.T) {
	err := InvalidArgumentf("num_workers (%d) must be a positive integer or -1", -2)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Error("expected ErrInvalidArgument in chain")
	}
	if !strings.Contains(err.Error(), "num_workers (-2)") {
		t.Errorf("expected formatted detail, got %q", err.Error())
	}
	if !IsInvalid(err) {
		t.Error("expected IsInvalid to report true")
	}
}
