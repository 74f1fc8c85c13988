// Package errors classifies revlabel failures by kind and records the
// operation that raised them.
package errors

import (
	"errors"
	"fmt"
)

// Kind represents the category of an error.
type Kind uint8

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown Kind = iota
	// KindConfig indicates a configuration error.
	KindConfig
	// KindGit indicates a git operation error.
	KindGit
	// KindLabel indicates a label computation error.
	KindLabel
	// KindState indicates a build state persistence error.
	KindState
	// KindPublish indicates a failure to publish build facts.
	KindPublish
	// KindIO indicates a file I/O error.
	KindIO
	// KindValidation indicates a validation error.
	KindValidation
	// KindNotFound indicates a resource was not found.
	KindNotFound
	// KindCanceled indicates the operation was canceled.
	KindCanceled
)

// String returns a human-readable string for the error kind.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "configuration"
	case KindGit:
		return "git"
	case KindLabel:
		return "label"
	case KindState:
		return "state"
	case KindPublish:
		return "publish"
	case KindIO:
		return "io"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Error is the standard error type for revlabel.
type Error struct {
	// Kind is the category of the error.
	Kind Kind
	// Op is the operation being performed when the error occurred.
	Op string
	// Message is a human-readable error message.
	Message string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches this error.
// A target without Op matches on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op == "" {
		return e.Kind == t.Kind
	}
	return e.Kind == t.Kind && e.Op == t.Op
}

// New creates a new Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, kind Kind, op string, message string) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// GetKind returns the Kind of the outermost *Error in err's chain, or
// KindUnknown when there is none.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether any error in err's chain is of the given kind.
func IsKind(err error, kind Kind) bool {
	return errors.Is(err, &Error{Kind: kind})
}

// Config creates a configuration error.
func Config(op, message string) *Error {
	return &Error{Kind: KindConfig, Op: op, Message: message}
}

// ConfigWrap wraps an error as a configuration error.
func ConfigWrap(err error, op, message string) *Error {
	return Wrap(err, KindConfig, op, message)
}

// GitWrap wraps an error as a git error.
func GitWrap(err error, op, message string) *Error {
	return Wrap(err, KindGit, op, message)
}

// LabelWrap wraps an error raised while computing a label.
func LabelWrap(err error, op, message string) *Error {
	return Wrap(err, KindLabel, op, message)
}

// StateWrap wraps an error as a build state error.
func StateWrap(err error, op, message string) *Error {
	return Wrap(err, KindState, op, message)
}

// PublishWrap wraps an error raised by a fact publisher.
func PublishWrap(err error, op, message string) *Error {
	return Wrap(err, KindPublish, op, message)
}

// IOWrap wraps an error as an I/O error.
func IOWrap(err error, op, message string) *Error {
	return Wrap(err, KindIO, op, message)
}

// Validation creates a validation error.
func Validation(op, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}

// NotFound creates a not found error.
func NotFound(op, message string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: message}
}

// CanceledWrap wraps a context error raised while waiting on git or the filesystem.
func CanceledWrap(err error, op string) *Error {
	return Wrap(err, KindCanceled, op, "operation canceled")
}
