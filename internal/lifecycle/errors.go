// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package lifecycle

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Code is a stable, machine-readable error classification.
type Code string

const (
	CodeNotFound          Code = "not_found"
	CodeValidation        Code = "validation"
	CodeConflict          Code = "conflict"
	CodeLocked            Code = "locked"
	CodeForbidden         Code = "forbidden"
	CodeNotLockOwner      Code = "not_lock_owner"
	CodeLimitExceeded     Code = "limit_exceeded"
	CodeCircularReference Code = "circular_reference"
	CodeMaxDepthExceeded  Code = "max_depth_exceeded"
)

// Error is returned by every engine operation that fails for a reason the
// caller can act on. Holder, Slug and Depth are set when relevant.
type Error struct {
	Code    Code
	Message string
	Holder  *uuid.UUID
	Slug    string
	Depth   int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches by code so errors.Is(err, ErrLocked) works for any locked error.
// A not-lock-owner error also matches ErrForbidden.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code == e.Code {
		return true
	}
	return t.Code == CodeForbidden && e.Code == CodeNotLockOwner
}

// Sentinels for errors.Is.
var (
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation        = &Error{Code: CodeValidation, Message: "invalid input"}
	ErrConflict          = &Error{Code: CodeConflict, Message: "conflict"}
	ErrLocked            = &Error{Code: CodeLocked, Message: "locked"}
	ErrForbidden         = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrNotLockOwner      = &Error{Code: CodeNotLockOwner, Message: "not lock owner"}
	ErrLimitExceeded     = &Error{Code: CodeLimitExceeded, Message: "limit exceeded"}
	ErrCircularReference = &Error{Code: CodeCircularReference, Message: "circular reference"}
	ErrMaxDepthExceeded  = &Error{Code: CodeMaxDepthExceeded, Message: "max depth exceeded"}
)

// Errors a store implementation returns so the engine can classify them.
var (
	// ErrStaleWrite means a guarded update matched no row: the revision moved
	// on or another holder owns the lock.
	ErrStaleWrite = errors.New("stale write")
	// ErrDuplicateSlug means the live (kind, slug) uniqueness constraint fired.
	ErrDuplicateSlug = errors.New("duplicate slug")
)

// CodeOf returns the code carried by err, or "" for untyped errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func notFound(what string, id fmt.Stringer) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", what, id)}
}

func invalid(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func forbidden(format string, args ...any) *Error {
	return &Error{Code: CodeForbidden, Message: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...any) *Error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

func locked(holder *uuid.UUID) *Error {
	e := &Error{Code: CodeLocked, Message: "item is locked by another editor"}
	if holder != nil {
		h := *holder
		e.Holder = &h
	}
	return e
}

func disabled(feature string) *Error {
	return &Error{Code: CodeValidation, Message: feature + " is disabled"}
}
