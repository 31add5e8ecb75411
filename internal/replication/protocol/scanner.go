package protocol

import (
	"bytes"
	"fmt"
	"strconv"

	"golang.org/x/exp/constraints"

	"github.com/KilimcininKorOglu/obarepl/internal/replication/common"
)

// ByteArrayScanner reads PDU fields written by ByteArrayBuilder.
//
// The first failure is sticky: later reads return zero values and Err
// reports the failure, so decoders can read a whole layout and check once.
type ByteArrayScanner struct {
	buf []byte
	pos int
	err error
}

// NewByteArrayScanner creates a scanner over b.
func NewByteArrayScanner(b []byte) *ByteArrayScanner {
	return &ByteArrayScanner{buf: b}
}

// Err returns the first error encountered.
func (s *ByteArrayScanner) Err() error {
	return s.err
}

// Pos returns the current offset.
func (s *ByteArrayScanner) Pos() int {
	return s.pos
}

// Remaining returns the number of unread bytes.
func (s *ByteArrayScanner) Remaining() int {
	return len(s.buf) - s.pos
}

// IsEmpty reports whether every byte has been read.
func (s *ByteArrayScanner) IsEmpty() bool {
	return s.Remaining() <= 0
}

func (s *ByteArrayScanner) fail(format string, args ...interface{}) {
	if s.err == nil {
		s.err = fmt.Errorf("%w: offset %d: %s", ErrDataFormat, s.pos, fmt.Sprintf(format, args...))
	}
}

// Byte reads one raw byte.
func (s *ByteArrayScanner) Byte() byte {
	if s.err != nil {
		return 0
	}
	if s.IsEmpty() {
		s.fail("unexpected end of PDU")
		return 0
	}
	v := s.buf[s.pos]
	s.pos++
	return v
}

// Int8 reads one raw byte as a signed value.
func (s *ByteArrayScanner) Int8() int8 {
	return int8(s.Byte())
}

// Bool reads one byte, non-zero meaning true.
func (s *ByteArrayScanner) Bool() bool {
	return s.Byte() != 0
}

// PeekByte returns the next byte without consuming it.
func (s *ByteArrayScanner) PeekByte() (byte, bool) {
	if s.err != nil || s.IsEmpty() {
		return 0, false
	}
	return s.buf[s.pos], true
}

// String reads a zero terminated string.
func (s *ByteArrayScanner) String() string {
	if s.err != nil {
		return ""
	}
	i := bytes.IndexByte(s.buf[s.pos:], 0)
	if i < 0 {
		s.fail("missing string terminator")
		return ""
	}
	v := string(s.buf[s.pos : s.pos+i])
	s.pos += i + 1
	return v
}

// Strings reads a one byte count followed by that many strings.
func (s *ByteArrayScanner) Strings() []string {
	n := int(s.Byte())
	if s.err != nil || n == 0 {
		return nil
	}
	out := make([]string, 0, n)
	for i := 0; i < n && s.err == nil; i++ {
		out = append(out, s.String())
	}
	return out
}

// BoolString reads "true" or "false" followed by a zero terminator.
func (s *ByteArrayScanner) BoolString() bool {
	str := s.String()
	if s.err != nil {
		return false
	}
	v, err := strconv.ParseBool(str)
	if err != nil {
		s.fail("invalid boolean %q", str)
	}
	return v
}

// Raw reads the next n bytes.
func (s *ByteArrayScanner) Raw(n int) []byte {
	if s.err != nil {
		return nil
	}
	if n < 0 || n > s.Remaining() {
		s.fail("field of %d bytes exceeds the %d remaining", n, s.Remaining())
		return nil
	}
	v := s.buf[s.pos : s.pos+n]
	s.pos += n
	return v
}

// Rest reads every remaining byte.
func (s *ByteArrayScanner) Rest() []byte {
	return s.Raw(s.Remaining())
}

// CSN reads a zero terminated CSN string.
func (s *ByteArrayScanner) CSN() common.CSN {
	str := s.String()
	if s.err != nil {
		return common.CSN{}
	}
	csn, err := common.ParseCSN(str)
	if err != nil {
		s.fail("%v", err)
	}
	return csn
}

// CSNBytes reads a 14 byte binary CSN.
func (s *ByteArrayScanner) CSNBytes() common.CSN {
	b := s.Raw(common.CSNByteLength)
	if s.err != nil {
		return common.CSN{}
	}
	csn, err := common.CSNFromBytes(b)
	if err != nil {
		s.fail("%v", err)
	}
	return csn
}

// ServerState reads (server ID, CSN) pairs up to the closing zero byte.
func (s *ByteArrayScanner) ServerState() *common.ServerState {
	state := common.NewServerState()
	for s.err == nil {
		if b, ok := s.PeekByte(); ok && b == 0 {
			s.pos++
			return state
		}
		id := ScanInt[uint16](s)
		csn := s.CSN()
		if s.err == nil && csn.ServerID != id {
			s.fail("server state entry %d holds CSN %s of server %d", id, csn, csn.ServerID)
		}
		state.Update(csn)
	}
	return state
}

// ScanInt reads a zero terminated decimal integer that must fit in T.
func ScanInt[T constraints.Integer](s *ByteArrayScanner) T {
	str := s.String()
	if s.err != nil {
		return 0
	}
	if isSigned[T]() {
		v, err := strconv.ParseInt(str, 10, 64)
		if err != nil || int64(T(v)) != v {
			s.fail("invalid integer %q", str)
			return 0
		}
		return T(v)
	}
	v, err := strconv.ParseUint(str, 10, 64)
	if err != nil || uint64(T(v)) != v {
		s.fail("invalid integer %q", str)
		return 0
	}
	return T(v)
}

// ScanInts reads a one byte count followed by that many integers.
func ScanInts[T constraints.Integer](s *ByteArrayScanner) []T {
	n := int(s.Byte())
	if s.err != nil || n == 0 {
		return nil
	}
	out := make([]T, 0, n)
	for i := 0; i < n && s.err == nil; i++ {
		out = append(out, ScanInt[T](s))
	}
	return out
}
