// Package common holds the value types shared by the replication protocol
// and the session layer: change sequence numbers, server states, assured
// replication modes, server statuses and topology descriptors.
package common

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
)

// CSNLength is the length of the string form of a CSN.
const CSNLength = 28

// CSNByteLength is the length of the binary form of a CSN.
const CSNByteLength = 14

// ErrInvalidCSN is returned when a CSN string or byte form is malformed.
var ErrInvalidCSN = errors.New("replication: invalid CSN")

// CSN is a change sequence number. CSNs are totally ordered by time, then
// sequence number, then server ID. The zero CSN means "no change".
type CSN struct {
	// Time is milliseconds since the Unix epoch.
	Time     int64
	SeqNum   uint32
	ServerID uint16
}

// NewCSN creates a CSN.
func NewCSN(time int64, seqNum uint32, serverID uint16) CSN {
	return CSN{Time: time, SeqNum: seqNum, ServerID: serverID}
}

// ParseCSN parses the 28 hex digit string form.
func ParseCSN(s string) (CSN, error) {
	if len(s) != CSNLength {
		return CSN{}, fmt.Errorf("%w: %q has length %d", ErrInvalidCSN, s, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return CSN{}, fmt.Errorf("%w: %q: %v", ErrInvalidCSN, s, err)
	}
	return CSNFromBytes(b)
}

// CSNFromBytes decodes the 14 byte binary form.
func CSNFromBytes(b []byte) (CSN, error) {
	if len(b) != CSNByteLength {
		return CSN{}, fmt.Errorf("%w: %d bytes", ErrInvalidCSN, len(b))
	}
	return CSN{
		Time:     int64(binary.BigEndian.Uint64(b[0:8])),
		ServerID: binary.BigEndian.Uint16(b[8:10]),
		SeqNum:   binary.BigEndian.Uint32(b[10:14]),
	}, nil
}

// String returns time, server ID and sequence number as 16, 4 and 8 hex
// digits.
func (c CSN) String() string {
	return fmt.Sprintf("%016x%04x%08x", uint64(c.Time), c.ServerID, c.SeqNum)
}

// Bytes returns the 14 byte binary form, laid out like the string form.
func (c CSN) Bytes() []byte {
	b := make([]byte, CSNByteLength)
	binary.BigEndian.PutUint64(b[0:8], uint64(c.Time))
	binary.BigEndian.PutUint16(b[8:10], c.ServerID)
	binary.BigEndian.PutUint32(b[10:14], c.SeqNum)
	return b
}

// IsZero reports whether c is the zero CSN.
func (c CSN) IsZero() bool {
	return c == CSN{}
}

// Compare returns -1, 0 or +1 as c sorts before, equal to or after o.
func (c CSN) Compare(o CSN) int {
	switch {
	case c.Time != o.Time:
		return cmp3(c.Time < o.Time)
	case c.SeqNum != o.SeqNum:
		return cmp3(c.SeqNum < o.SeqNum)
	case c.ServerID != o.ServerID:
		return cmp3(c.ServerID < o.ServerID)
	}
	return 0
}

func cmp3(less bool) int {
	if less {
		return -1
	}
	return 1
}

// Before reports whether c sorts before o.
func (c CSN) Before(o CSN) bool {
	return c.Compare(o) < 0
}

// After reports whether c sorts after o.
func (c CSN) After(o CSN) bool {
	return c.Compare(o) > 0
}
