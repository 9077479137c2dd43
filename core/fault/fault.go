// Package fault defines the domain error kinds surfaced by the schema engine.
// Every failure that crosses a package boundary is classified as one of four
// kinds so that a transport layer can map it onto an appropriate status
// without inspecting message text.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error.
type Kind string

const (
	// KindBadRequest marks malformed input, such as an unparseable tenant id
	// or document id, and storage failures with no more specific classification.
	KindBadRequest Kind = "bad_request"
	// KindNotFound marks a missing schema, document, tenant, or active version.
	KindNotFound Kind = "not_found"
	// KindConflict marks duplicate schema versions and unique-index violations.
	KindConflict Kind = "conflict"
	// KindUnprocessable marks validator rule violations, with all issues
	// batched into a single message.
	KindUnprocessable Kind = "unprocessable_entity"
)

// Error is a classified domain error. It wraps an optional cause so that
// callers can still unwrap down to driver-level errors.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a classified error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error. If err is already classified, its kind
// is preserved and err is returned unchanged; re-wrapping must never launder
// a NotFound into a BadRequest.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...) + ": " + err.Error(),
		cause:   err,
	}
}

// KindOf extracts the kind of a classified error. Unclassified errors
// report KindBadRequest, matching the propagation policy for storage
// failures that are none of the four domain kinds.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindBadRequest
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == kind
}
