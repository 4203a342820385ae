// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package osmerr defines the structured error taxonomy shared by every
// subnet-manager component: a fixed set of kinds that receivers, the
// pacer, and the SA query engine map their failures onto before
// logging or returning a MAD status.
package osmerr

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind categorizes an error into a small fixed enumeration.
type Kind int

const (
	KindUnknown Kind = iota
	KindInternal
	KindValidation
	KindNotFound
	KindDuplicateGUID
	KindBadMadLayout
	KindInvalidPkey
	KindInvalidSmKey
	KindTransport
	KindTimeout
	KindResourceExhausted
	KindRoutingFailed
	KindSaRecordInvalid
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "internal"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindDuplicateGUID:
		return "duplicate_guid"
	case KindBadMadLayout:
		return "bad_mad_layout"
	case KindInvalidPkey:
		return "invalid_pkey"
	case KindInvalidSmKey:
		return "invalid_sm_key"
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindResourceExhausted:
		return "resource_exhausted"
	case KindRoutingFailed:
		return "routing_failed"
	case KindSaRecordInvalid:
		return "sa_record_invalid"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is a structured error carrying a Kind, an attribute bag for
// log correlation (GUIDs, LIDs, attribute ids), and an optional cause.
type Error struct {
	Kind       Kind
	Message    string
	Underlying error
	Attributes map[string]any
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Underlying)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Underlying }

// With attaches a key/value pair to the error's attribute bag and
// returns the same error for chaining at the call site.
func (e *Error) With(key string, value any) *Error {
	if e.Attributes == nil {
		e.Attributes = make(map[string]any)
	}
	e.Attributes[key] = value
	return e
}

// New creates a plain Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error of the given kind around an existing error.
func Wrap(kind Kind, err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Underlying: err}
}

// Fatal wraps err (or creates a bare error) at KindFatal with a captured
// stack trace; only used for conditions that may terminate the process
// (duplicated GUID with exit_on_fatal, bind failure).
func Fatal(message string, err error) *Error {
	if err == nil {
		err = pkgerrors.New(message)
	} else {
		err = pkgerrors.Wrap(err, message)
	}
	return &Error{Kind: KindFatal, Message: message, Underlying: err}
}

// KindOf extracts the Kind from err, walking the Unwrap chain; returns
// KindUnknown if no *Error is found.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err's Kind equals k.
func Is(err error, k Kind) bool {
	return KindOf(err) == k
}
