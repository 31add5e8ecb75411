// Package ber implements ASN.1 BER (Basic Encoding Rules) encoding
// as specified in ITU-T X.690.
package ber

import (
	"errors"
	"fmt"
)

// Decoder errors
var (
	// ErrUnexpectedEOF is returned when the source ends inside an element.
	ErrUnexpectedEOF = errors.New("ber: unexpected end of data")

	// ErrInvalidLength is returned when a length value is malformed.
	ErrInvalidLength = errors.New("ber: invalid length encoding")

	// ErrLengthTooLong is returned when a long form length uses more than
	// MaxLengthOctets octets.
	ErrLengthTooLong = errors.New("ber: length uses too many octets")

	// ErrIndefiniteLength is returned when indefinite length encoding is encountered.
	ErrIndefiniteLength = errors.New("ber: indefinite length not supported")

	// ErrMaxSizeExceeded is returned when an element is longer than the
	// reader's configured maximum element size.
	ErrMaxSizeExceeded = errors.New("ber: max request size exceeded")

	// ErrInvalidBoolean is returned when a boolean value has invalid length.
	ErrInvalidBoolean = errors.New("ber: invalid boolean encoding")

	// ErrInvalidInteger is returned when an integer value is malformed.
	ErrInvalidInteger = errors.New("ber: invalid integer encoding")

	// ErrInvalidEnumerated is returned when an enumerated value is malformed.
	ErrInvalidEnumerated = errors.New("ber: invalid enumerated encoding")

	// ErrInvalidNull is returned when a null value has non-zero length.
	ErrInvalidNull = errors.New("ber: invalid null encoding")

	// ErrTagMismatch is returned when the expected tag does not match the actual tag.
	ErrTagMismatch = errors.New("ber: tag mismatch")

	// ErrSequenceLimitExceeded is returned when an element would extend
	// past the end of its enclosing SEQUENCE or SET.
	ErrSequenceLimitExceeded = errors.New("ber: element exceeds enclosing sequence")

	// ErrNoOpenSequence is returned by ReadEndSequence at the root scope.
	ErrNoOpenSequence = errors.New("ber: no open sequence")

	// ErrReaderReleased is returned when a released reader is used.
	ErrReaderReleased = errors.New("ber: reader used after release")
)

// DecodeError provides detailed information about a decoding failure.
type DecodeError struct {
	Offset  int    // Byte offset where the error occurred
	Message string // Human-readable error description
	Err     error  // Underlying error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ber: decode error at offset %d: %s: %v", e.Offset, e.Message, e.Err)
	}
	return fmt.Sprintf("ber: decode error at offset %d: %s", e.Offset, e.Message)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NewDecodeError creates a new DecodeError with the given parameters.
func NewDecodeError(offset int, message string, err error) *DecodeError {
	return &DecodeError{
		Offset:  offset,
		Message: message,
		Err:     err,
	}
}

// TagMismatchError reports the tag found where another was expected.
type TagMismatchError struct {
	Offset   int
	Expected byte
	Actual   byte
}

// Error implements the error interface.
func (e *TagMismatchError) Error() string {
	return fmt.Sprintf("ber: tag mismatch at offset %d: expected 0x%02x, got 0x%02x",
		e.Offset, e.Expected, e.Actual)
}

// Is allows TagMismatchError to match ErrTagMismatch with errors.Is.
func (e *TagMismatchError) Is(target error) bool {
	return target == ErrTagMismatch
}
