package session

import "errors"

// Session errors.
var (
	// ErrSessionClosed is returned when publishing on or receiving from a
	// closed session.
	ErrSessionClosed = errors.New("session: closed")

	// ErrInvalidHeader is returned when a frame header is not eight hex digits.
	ErrInvalidHeader = errors.New("session: invalid frame header")

	// ErrPDUTooLarge is returned when a frame announces more bytes than the
	// session accepts.
	ErrPDUTooLarge = errors.New("session: PDU too large")

	// ErrEmptyPDU is returned when a frame carries no bytes.
	ErrEmptyPDU = errors.New("session: empty PDU")

	// ErrHandshake is returned when the peer does not open the session with
	// a start message.
	ErrHandshake = errors.New("session: handshake failed")

	// ErrListenerClosed is returned by Accept after Close.
	ErrListenerClosed = errors.New("session: listener closed")
)
