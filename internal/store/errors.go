package store

import (
	"errors"
	"fmt"
)

// Kind classifies a persistence failure.
type Kind int

const (
	// IoFailure means the backing file or database could not be read or written.
	IoFailure Kind = iota + 1
	// DecodeFailure means persisted data was malformed.
	DecodeFailure
	// EncodeFailure means the memo could not be serialized.
	EncodeFailure
)

func (k Kind) String() string {
	switch k {
	case IoFailure:
		return "io failure"
	case DecodeFailure:
		return "decode failure"
	case EncodeFailure:
		return "encode failure"
	default:
		return "unknown failure"
	}
}

// Error is returned by every Store operation.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a store Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == kind
}
