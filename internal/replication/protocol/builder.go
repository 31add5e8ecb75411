package protocol

import (
	"fmt"
	"strconv"

	"golang.org/x/exp/constraints"

	"github.com/KilimcininKorOglu/obarepl/internal/replication/common"
)

// ByteArrayBuilder appends replication PDU fields to a growable buffer.
// Integers and strings are written as UTF-8 text followed by a zero byte.
//
// Appending fails only for BER bodies and for lists longer than
// MaxListLen; the first failure is kept and reported by Err.
type ByteArrayBuilder struct {
	buf []byte
	err error
}

// MaxListLen is the largest list a one byte count can describe.
const MaxListLen = 255

// NewByteArrayBuilder creates a builder with the given initial capacity.
func NewByteArrayBuilder(capacity int) *ByteArrayBuilder {
	return &ByteArrayBuilder{buf: make([]byte, 0, capacity)}
}

// Bytes returns the built PDU.
func (b *ByteArrayBuilder) Bytes() []byte {
	return b.buf
}

// Err returns the first error recorded while appending.
func (b *ByteArrayBuilder) Err() error {
	return b.err
}

func (b *ByteArrayBuilder) setErr(err error) {
	if b.err == nil {
		b.err = err
	}
}

// AppendCount appends n as the one byte count of a list. When n exceeds
// MaxListLen it records ErrListTooLong, appends nothing and returns false.
func (b *ByteArrayBuilder) AppendCount(n int) bool {
	if n > MaxListLen {
		b.setErr(fmt.Errorf("%w: %d entries, at most %d", ErrListTooLong, n, MaxListLen))
		return false
	}
	b.AppendByte(byte(n))
	return true
}

// Len returns the number of bytes appended so far.
func (b *ByteArrayBuilder) Len() int {
	return len(b.buf)
}

// AppendByte appends a single raw byte.
func (b *ByteArrayBuilder) AppendByte(v byte) *ByteArrayBuilder {
	b.buf = append(b.buf, v)
	return b
}

// AppendBool appends 1 for true and 0 for false.
func (b *ByteArrayBuilder) AppendBool(v bool) *ByteArrayBuilder {
	if v {
		return b.AppendByte(1)
	}
	return b.AppendByte(0)
}

// AppendString appends s and a zero terminator.
func (b *ByteArrayBuilder) AppendString(s string) *ByteArrayBuilder {
	b.buf = append(b.buf, s...)
	b.buf = append(b.buf, 0)
	return b
}

// AppendStrings appends a one byte count followed by each string. A list
// longer than MaxListLen records ErrListTooLong and appends nothing.
func (b *ByteArrayBuilder) AppendStrings(ss []string) *ByteArrayBuilder {
	if !b.AppendCount(len(ss)) {
		return b
	}
	for _, s := range ss {
		b.AppendString(s)
	}
	return b
}

// AppendBoolString appends "true" or "false" with a zero terminator.
func (b *ByteArrayBuilder) AppendBoolString(v bool) *ByteArrayBuilder {
	return b.AppendString(strconv.FormatBool(v))
}

// AppendRaw appends p unchanged.
func (b *ByteArrayBuilder) AppendRaw(p []byte) *ByteArrayBuilder {
	b.buf = append(b.buf, p...)
	return b
}

// AppendCSN appends the string form of csn and a zero terminator.
func (b *ByteArrayBuilder) AppendCSN(csn common.CSN) *ByteArrayBuilder {
	return b.AppendString(csn.String())
}

// AppendCSNBytes appends the 14 byte binary form of csn.
func (b *ByteArrayBuilder) AppendCSNBytes(csn common.CSN) *ByteArrayBuilder {
	return b.AppendRaw(csn.Bytes())
}

// AppendServerState appends one (server ID, CSN) pair per server, ordered by
// server ID, then a closing zero byte.
func (b *ByteArrayBuilder) AppendServerState(state *common.ServerState) *ByteArrayBuilder {
	if state != nil {
		for _, csn := range state.CSNs() {
			AppendInt(b, csn.ServerID)
			b.AppendCSN(csn)
		}
	}
	return b.AppendByte(0)
}

// AppendInt appends v in decimal followed by a zero terminator.
func AppendInt[T constraints.Integer](b *ByteArrayBuilder, v T) *ByteArrayBuilder {
	if isSigned[T]() {
		b.buf = strconv.AppendInt(b.buf, int64(v), 10)
	} else {
		b.buf = strconv.AppendUint(b.buf, uint64(v), 10)
	}
	b.buf = append(b.buf, 0)
	return b
}

// AppendInts appends a one byte count followed by each integer. A list
// longer than MaxListLen records ErrListTooLong and appends nothing.
func AppendInts[T constraints.Integer](b *ByteArrayBuilder, vs []T) *ByteArrayBuilder {
	if !b.AppendCount(len(vs)) {
		return b
	}
	for _, v := range vs {
		AppendInt(b, v)
	}
	return b
}

func isSigned[T constraints.Integer]() bool {
	var zero T
	return zero-1 < zero
}
