package ldap

import (
	"errors"
	"fmt"

	"github.com/KilimcininKorOglu/obarepl/internal/ber"
)

// Errors for LDAP message encoding and decoding
var (
	// ErrInvalidMessageID is returned when the message ID is out of valid range
	ErrInvalidMessageID = errors.New("ldap: message ID out of valid range (0 to 2147483647)")

	// ErrNilOperation is returned when encoding a message without an operation
	ErrNilOperation = errors.New("ldap: message has no protocol operation")

	// ErrInvalidControlValue is returned by control validators that reject a value
	ErrInvalidControlValue = errors.New("ldap: invalid control value")

	// ErrInvalidDN is returned when a distinguished name cannot be parsed
	ErrInvalidDN = errors.New("ldap: invalid distinguished name")

	// ErrInvalidAttributeDescription is returned for malformed attribute descriptions
	ErrInvalidAttributeDescription = errors.New("ldap: invalid attribute description")
)

// Message keys of DecodeError. They are stable so callers can map them to
// localized text.
const (
	KeyInvalidMessageID      = "ldap.message.invalidID"
	KeyMessageStructure      = "ldap.message.structure"
	KeyOperationStructure    = "ldap.op.structure"
	KeyInvalidDN             = "ldap.dn.invalid"
	KeyInvalidAttributeDesc  = "ldap.attr.invalid"
	KeyControlStructure      = "ldap.control.structure"
	KeyInvalidControlValue   = "ldap.control.invalidValue"
	KeyFilterStructure       = "ldap.filter.structure"
	KeyInvalidAuthentication = "ldap.bind.invalidAuth"
	KeySchemaResolution      = "ldap.schema.resolve"
)

var messageCatalog = map[string]string{
	KeyInvalidMessageID:      "message ID %d is out of range",
	KeyMessageStructure:      "malformed LDAP message",
	KeyOperationStructure:    "malformed %s",
	KeyInvalidDN:             "invalid DN %q",
	KeyInvalidAttributeDesc:  "invalid attribute description %q",
	KeyControlStructure:      "malformed control %s",
	KeyInvalidControlValue:   "invalid value for control %s",
	KeyFilterStructure:       "malformed search filter",
	KeyInvalidAuthentication: "unsupported authentication choice 0x%02x",
	KeySchemaResolution:      "cannot resolve schema for %q",
}

// DecodeError reports a structurally invalid LDAP message. Key identifies
// the message template and Args its arguments.
type DecodeError struct {
	Key  string
	Args []interface{}
	Err  error
}

func newDecodeError(key string, err error, args ...interface{}) *DecodeError {
	return &DecodeError{Key: key, Args: args, Err: err}
}

// Message returns the English text of the error without the cause.
func (e *DecodeError) Message() string {
	format, ok := messageCatalog[e.Key]
	if !ok {
		return e.Key
	}
	return fmt.Sprintf(format, e.Args...)
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ldap: decode error: %s: %v", e.Message(), e.Err)
	}
	return "ldap: decode error: " + e.Message()
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err leaves the stream in a state from which the
// current message cannot be recovered. Value-level failures that a sequence
// scope contains, such as a tag mismatch or an invalid boolean inside a
// control, are not fatal; truncation, size violations and transport errors
// are.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	recoverable := []error{
		ber.ErrTagMismatch,
		ber.ErrInvalidBoolean,
		ber.ErrInvalidInteger,
		ber.ErrInvalidEnumerated,
		ber.ErrInvalidNull,
		ErrInvalidControlValue,
		ErrInvalidDN,
		ErrInvalidAttributeDescription,
	}
	for _, r := range recoverable {
		if errors.Is(err, r) {
			return false
		}
	}
	return true
}
