// Package rverr defines the closed error-kind taxonomy shared across
// romvault's subsystems. It is deliberately stdlib-only: nothing in
// the dependency set models a closed-kind error taxonomy like this
// one, and spacemonkeygo/errors is instead reused narrowly for
// DAT/template parse errors (see datparser, orgtemplate).
package rverr

import (
	"errors"
	"fmt"
)

// Kind is one of the closed taxonomy entries.
type Kind string

const (
	NotFound          Kind = "not_found"
	PermissionDenied  Kind = "permission_denied"
	UnsupportedFormat Kind = "unsupported_format"
	ParseError        Kind = "parse_error"
	ShortInput        Kind = "short_input"
	HashMismatch      Kind = "hash_mismatch"
	Conflict          Kind = "conflict"
	Cancelled         Kind = "cancelled"
	IOError           Kind = "io_error"
	Internal          Kind = "internal"
)

// Error carries the user-visible shape every error needs:
// {kind, human_message, subject_path?}.
type Error struct {
	Kind         Kind
	HumanMessage string
	SubjectPath  string
	Cause        error
}

func (e *Error) Error() string {
	if e.SubjectPath != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.HumanMessage, e.SubjectPath)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.HumanMessage)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an Error with no subject path.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, HumanMessage: msg}
}

// Wrap attaches a subject path and kind to an underlying error.
func Wrap(kind Kind, path string, cause error) *Error {
	return &Error{Kind: kind, HumanMessage: cause.Error(), SubjectPath: path, Cause: cause}
}

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var rv *Error
	if errors.As(err, &rv) {
		return rv.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, defaulting to Internal when err is
// not an *Error.
func KindOf(err error) Kind {
	var rv *Error
	if errors.As(err, &rv) {
		return rv.Kind
	}
	return Internal
}
