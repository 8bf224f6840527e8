package service

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorKind int

const (
	KindFormat ErrorKind = iota
	KindFileRead
	KindFileWrite
	KindCancelled
	KindConfig
)

func (k ErrorKind) String() string {
	switch k {
	case KindFormat:
		return "Format"
	case KindFileRead:
		return "FileRead"
	case KindFileWrite:
		return "FileWrite"
	case KindCancelled:
		return "Cancelled"
	case KindConfig:
		return "Config"
	default:
		return "Unknown"
	}
}

// ErrCancelled is returned by Scheduler.Run when its context ends before all
// batches were dispatched and collected.
var ErrCancelled = errors.New("translation cancelled")

// Error is a classified job failure.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func WrapError(err error, kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: err}
}

func (e *Error) Error() string {
	parts := []string{fmt.Sprintf("[%s] %s", e.Kind, e.Message)}
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}
	return strings.Join(parts, " | ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsErrorKind reports whether err carries an *Error of the given kind.
func IsErrorKind(err error, kind ErrorKind) bool {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind == kind
	}
	return false
}
