package registry

import (
	"errors"
	"fmt"
)

// Kind categorizes registry errors.
type Kind string

const (
	// KindInvalidKey indicates a missing key or a wrong first field for a new entry.
	KindInvalidKey Kind = "INVALID_KEY"

	// KindInvalidFile indicates an update against a document that is not valid.
	KindInvalidFile Kind = "INVALID_FILE"

	// KindDuplicateKey indicates a create-style mutation on an existing key.
	KindDuplicateKey Kind = "DUPLICATE_KEY"

	// KindNoFile indicates an add against a document that is not valid.
	KindNoFile Kind = "NO_FILE"

	// KindIO indicates a filesystem or process failure.
	KindIO Kind = "IO_ERROR"

	// KindParse indicates a document that is not well-formed.
	KindParse Kind = "PARSE_ERROR"
)

// Error is the error type returned by every registry operation.
type Error struct {
	Kind    Kind
	Message string

	// Key is the entry key involved, if any.
	Key string

	// Path is the document or filesystem path involved, if any.
	Path string

	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Path != "" {
		msg += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or "" if err is not a registry error.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// IsKind reports whether err is a registry error of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsInvalidKey returns true if the error is an INVALID_KEY error.
func IsInvalidKey(err error) bool { return IsKind(err, KindInvalidKey) }

// IsInvalidFile returns true if the error is an INVALID_FILE error.
func IsInvalidFile(err error) bool { return IsKind(err, KindInvalidFile) }

// IsDuplicateKey returns true if the error is a DUPLICATE_KEY error.
func IsDuplicateKey(err error) bool { return IsKind(err, KindDuplicateKey) }

// IsNoFile returns true if the error is a NO_FILE error.
func IsNoFile(err error) bool { return IsKind(err, KindNoFile) }

// IsIOError returns true if the error is an IO_ERROR.
func IsIOError(err error) bool { return IsKind(err, KindIO) }

// IsParseError returns true if the error is a PARSE_ERROR.
func IsParseError(err error) bool { return IsKind(err, KindParse) }

// NewInvalidKeyError creates an INVALID_KEY error for key.
func NewInvalidKeyError(key, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidKey, Key: key, Message: fmt.Sprintf(format, args...)}
}

// NewDuplicateKeyError creates a DUPLICATE_KEY error for key.
func NewDuplicateKeyError(key, format string, args ...any) *Error {
	return &Error{Kind: KindDuplicateKey, Key: key, Message: fmt.Sprintf(format, args...)}
}

// NewIOError creates an IO_ERROR describing the failed step at path.
func NewIOError(path, step string, err error) *Error {
	return &Error{Kind: KindIO, Message: step, Path: path, Err: err}
}

func newInvalidFileError(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidFile, Message: fmt.Sprintf(format, args...)}
}

func newNoFileError(format string, args ...any) *Error {
	return &Error{Kind: KindNoFile, Message: fmt.Sprintf(format, args...)}
}
