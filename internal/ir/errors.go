package ir

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes store errors.
type ErrorKind string

const (
	// KindConfiguration indicates a bad or missing root directory or option.
	KindConfiguration ErrorKind = "ConfigurationError"

	// KindInvalidMessage indicates a message that cannot become a record.
	KindInvalidMessage ErrorKind = "InvalidMessageError"

	// KindRecordDecode indicates a stored record that cannot be rehydrated.
	KindRecordDecode ErrorKind = "RecordDecodeError"

	// KindStorageUnavailable indicates a namespace that cannot be opened or created.
	KindStorageUnavailable ErrorKind = "StorageUnavailableError"

	// KindStorageIO indicates a read or write failure at the storage layer.
	KindStorageIO ErrorKind = "StorageIOError"

	// KindInvalidQuery indicates a filter or sort on an unknown or ill-typed field.
	KindInvalidQuery ErrorKind = "InvalidQueryError"
)

// Sentinels for errors.Is matching. Any *Error matches the sentinel of its Kind.
var (
	ErrConfiguration      = errors.New(string(KindConfiguration))
	ErrInvalidMessage     = errors.New(string(KindInvalidMessage))
	ErrRecordDecode       = errors.New(string(KindRecordDecode))
	ErrStorageUnavailable = errors.New(string(KindStorageUnavailable))
	ErrStorageIO          = errors.New(string(KindStorageIO))
	ErrInvalidQuery       = errors.New(string(KindInvalidQuery))
)

var sentinels = map[ErrorKind]error{
	KindConfiguration:      ErrConfiguration,
	KindInvalidMessage:     ErrInvalidMessage,
	KindRecordDecode:       ErrRecordDecode,
	KindStorageUnavailable: ErrStorageUnavailable,
	KindStorageIO:          ErrStorageIO,
	KindInvalidQuery:       ErrInvalidQuery,
}

// Error is the single error type surfaced by the store.
type Error struct {
	// Kind identifies the error category.
	Kind ErrorKind

	// Op names the operation that failed (e.g. "append", "decode").
	Op string

	// Stream is the affected stream, if any.
	Stream StreamName

	// Err is the underlying cause.
	Err error
}

// NewError creates an *Error, formatting the cause from format and args.
func NewError(kind ErrorKind, op string, stream StreamName, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Stream: stream, Err: fmt.Errorf(format, args...)}
}

// WrapError wraps err in an *Error. Returns nil when err is nil. An err that
// already is an *Error of the same kind is returned unchanged.
func WrapError(kind ErrorKind, op string, stream StreamName, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) && existing.Kind == kind {
		return err
	}
	return &Error{Kind: kind, Op: op, Stream: stream, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Stream != "" {
		msg += fmt.Sprintf(" (stream=%s)", e.Stream)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
