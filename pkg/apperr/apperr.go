// Package apperr defines the error kinds shared across the audio
// pipeline, library store, and playlist store (spec §7).
package apperr

import "errors"

// Kind classifies an error for CLI/UI-facing reporting without string
// matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindUnsupportedFormat
	KindIoError
	KindDeviceError
	KindCorruptData
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnsupportedFormat:
		return "unsupported_format"
	case KindIoError:
		return "io_error"
	case KindDeviceError:
		return "device_error"
	case KindCorruptData:
		return "corrupt_data"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with a Kind so callers can branch on
// failure category with errors.As instead of string matching.
type Error struct {
	Kind Kind
	Op   string // component/operation that failed, e.g. "library.add_root"
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.String()
	}
	return e.Op + ": " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error for the given kind/op/cause.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// NotFound, UnsupportedFormat, IoError, DeviceError, CorruptData are
// convenience constructors for the kinds in spec §7.
func NotFound(op string, err error) *Error           { return New(KindNotFound, op, err) }
func UnsupportedFormat(op string, err error) *Error  { return New(KindUnsupportedFormat, op, err) }
func IoError(op string, err error) *Error             { return New(KindIoError, op, err) }
func DeviceError(op string, err error) *Error         { return New(KindDeviceError, op, err) }
func CorruptData(op string, err error) *Error         { return New(KindCorruptData, op, err) }

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
