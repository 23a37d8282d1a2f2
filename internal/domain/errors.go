package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced to callers.
type ErrorKind string

const (
	KindMissingResource ErrorKind = "missing_resource"
	KindDependency      ErrorKind = "dependency"
	KindValidation      ErrorKind = "validation"
	KindInternal        ErrorKind = "internal"
)

var (
	// ErrMissingResource marks operator setup problems: an index or metadata
	// file is absent or inconsistent. Not retried.
	ErrMissingResource = errors.New("missing resource")
	// ErrDependency marks a failed embedding or index call.
	ErrDependency = errors.New("dependency failure")
	// ErrInvalidRequest marks bad caller input.
	ErrInvalidRequest = errors.New("invalid request")
)

// KindOf maps an error to its kind.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingResource):
		return KindMissingResource
	case errors.Is(err, ErrDependency):
		return KindDependency
	case errors.Is(err, ErrInvalidRequest):
		return KindValidation
	default:
		return KindInternal
	}
}

// Result is either a value or a classified error. It is what the core hands
// to outer layers so that an empty value is never confused with a failure.
type Result[T any] struct {
	val  T
	err  error
	kind ErrorKind
	ok   bool
}

// Ok creates a successful Result.
func Ok[T any](v T) Result[T] {
	return Result[T]{val: v, ok: true}
}

// Err creates a failed Result of the given kind.
func Err[T any](kind ErrorKind, msg string) Result[T] {
	return Result[T]{err: errors.New(msg), kind: kind}
}

// Errf creates a failed Result from a formatted message.
func Errf[T any](kind ErrorKind, format string, args ...any) Result[T] {
	return Result[T]{err: fmt.Errorf(format, args...), kind: kind}
}

// FromPair creates a Result from a (value, error) pair, classifying the error.
func FromPair[T any](v T, err error) Result[T] {
	if err != nil {
		return Result[T]{err: err, kind: KindOf(err)}
	}
	return Ok(v)
}

// IsOk returns true if the result is successful.
func (r Result[T]) IsOk() bool { return r.ok }

// IsErr returns true if the result is an error.
func (r Result[T]) IsErr() bool { return !r.ok }

// Unwrap returns the value and error.
func (r Result[T]) Unwrap() (T, error) { return r.val, r.err }

// UnwrapOr returns the value or a fallback on error.
func (r Result[T]) UnwrapOr(fallback T) T {
	if !r.ok {
		return fallback
	}
	return r.val
}

// Kind returns the error kind, or "" for a successful result.
func (r Result[T]) Kind() ErrorKind { return r.kind }

// Message returns the error text, or "" for a successful result.
func (r Result[T]) Message() string {
	if r.err == nil {
		return ""
	}
	return r.err.Error()
}

type resultError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// MarshalJSON renders {"ok":true,"value":...} or
// {"ok":false,"error":{"kind":...,"message":...}}.
func (r Result[T]) MarshalJSON() ([]byte, error) {
	if r.ok {
		return json.Marshal(struct {
			OK    bool `json:"ok"`
			Value T    `json:"value"`
		}{true, r.val})
	}
	return json.Marshal(struct {
		OK    bool        `json:"ok"`
		Error resultError `json:"error"`
	}{false, resultError{Kind: r.kind, Message: r.Message()}})
}
