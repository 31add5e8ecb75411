package protocol

import (
	"errors"
	"fmt"
)

// Protocol errors.
var (
	// ErrDataFormat is returned when a PDU does not match the layout of its
	// message type.
	ErrDataFormat = errors.New("protocol: data format error")

	// ErrVersionUnsupported is returned when a message cannot be represented
	// at the requested protocol version.
	ErrVersionUnsupported = errors.New("protocol: message not supported at this protocol version")

	// ErrInvalidVersion is returned for a protocol version outside V1..V8.
	ErrInvalidVersion = errors.New("protocol: invalid protocol version")

	// ErrListTooLong is returned when a list field holds more entries than
	// its one byte count can represent.
	ErrListTooLong = errors.New("protocol: list too long")
)

// NotSupportedOldVersionPDUError reports a PDU type that existed in an old
// protocol version and is deliberately refused. Callers decide whether to
// close the session or discard the PDU.
type NotSupportedOldVersionPDUError struct {
	Type MsgType
}

func (e *NotSupportedOldVersionPDUError) Error() string {
	return fmt.Sprintf("protocol: refusing old protocol version PDU of type %s", e.Type)
}

func versionError(t MsgType, v Version) error {
	return fmt.Errorf("%w: %s at %s", ErrVersionUnsupported, t, v)
}
