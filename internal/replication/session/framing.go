package session

import (
	"fmt"
	"io"
	"strconv"
)

// HeaderLength is the size of a frame header: the PDU length as eight
// ASCII hex digits.
const HeaderLength = 8

// DefaultMaxPDUSize bounds the PDUs a session reads (16 MB).
const DefaultMaxPDUSize = 16 * 1024 * 1024

// WriteFrame writes pdu preceded by its length header in a single Write.
//
// Frame format: [length:8 hex digits][pdu:N]
func WriteFrame(w io.Writer, pdu []byte) error {
	if len(pdu) == 0 {
		return ErrEmptyPDU
	}
	if uint64(len(pdu)) > 0xffffffff {
		return fmt.Errorf("%w: %d bytes", ErrPDUTooLarge, len(pdu))
	}
	frame := make([]byte, HeaderLength, HeaderLength+len(pdu))
	copy(frame, fmt.Sprintf("%08x", len(pdu)))
	frame = append(frame, pdu...)
	_, err := w.Write(frame)
	return err
}

// ReadFrame reads one frame and returns its PDU. A frame larger than
// maxSize is rejected before its body is read; maxSize <= 0 means no limit.
// A stream that ends cleanly between frames returns io.EOF.
func ReadFrame(r io.Reader, maxSize int) ([]byte, error) {
	var header [HeaderLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	n, err := strconv.ParseUint(string(header[:]), 16, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHeader, header[:])
	}
	if n == 0 {
		return nil, ErrEmptyPDU
	}
	if maxSize > 0 && n > uint64(maxSize) {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrPDUTooLarge, n, maxSize)
	}

	pdu := make([]byte, n)
	if _, err := io.ReadFull(r, pdu); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return pdu, nil
}
