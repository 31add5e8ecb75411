package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/obarepl/internal/replication/common"
)

func TestByteArrayBuilder_Fields(t *testing.T) {
	b := NewByteArrayBuilder(0)
	b.AppendByte(0x7f).
		AppendBool(true).
		AppendBool(false).
		AppendString("o=test").
		AppendBoolString(true).
		AppendStrings([]string{"a", "bc"}).
		AppendStrings(nil)
	AppendInt(b, int32(-42))
	AppendInt(b, uint16(65535))
	AppendInts(b, []int64{1, -1})

	want := "\x7f\x01\x00o=test\x00true\x00\x02a\x00bc\x00\x00-42\x0065535\x00\x021\x00-1\x00"
	assert.Equal(t, want, string(b.Bytes()))
	assert.Equal(t, len(want), b.Len())
	assert.NoError(t, b.Err())

	s := NewByteArrayScanner(b.Bytes())
	assert.Equal(t, byte(0x7f), s.Byte())
	assert.True(t, s.Bool())
	assert.False(t, s.Bool())
	assert.Equal(t, "o=test", s.String())
	assert.True(t, s.BoolString())
	assert.Equal(t, []string{"a", "bc"}, s.Strings())
	assert.Nil(t, s.Strings())
	assert.Equal(t, int32(-42), ScanInt[int32](s))
	assert.Equal(t, uint16(65535), ScanInt[uint16](s))
	assert.Equal(t, []int64{1, -1}, ScanInts[int64](s))
	require.NoError(t, s.Err())
	assert.True(t, s.IsEmpty())
}

func TestByteArrayBuilder_ListTooLong(t *testing.T) {
	tests := []struct {
		name   string
		append func(b *ByteArrayBuilder, n int)
	}{
		{"strings", func(b *ByteArrayBuilder, n int) { b.AppendStrings(make([]string, n)) }},
		{"ints", func(b *ByteArrayBuilder, n int) { AppendInts(b, make([]int32, n)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewByteArrayBuilder(0)
			tt.append(b, MaxListLen)
			require.NoError(t, b.Err())
			assert.Equal(t, byte(MaxListLen), b.Bytes()[0])
			full := b.Len()

			tt.append(b, MaxListLen+1)
			assert.ErrorIs(t, b.Err(), ErrListTooLong)
			assert.Equal(t, full, b.Len())
		})
	}
}

func TestByteArrayBuilder_ServerState(t *testing.T) {
	high := common.NewCSN(0x20, 1, 9)
	low := common.NewCSN(0x10, 0, 2)

	b := NewByteArrayBuilder(0)
	b.AppendServerState(newState(high, low))
	want := "2\x00" + low.String() + "\x009\x00" + high.String() + "\x00\x00"
	assert.Equal(t, want, string(b.Bytes()))

	s := NewByteArrayScanner(b.Bytes())
	assert.True(t, newState(high, low).Equal(s.ServerState()))
	require.NoError(t, s.Err())
	assert.True(t, s.IsEmpty())

	assert.Equal(t, []byte{0}, NewByteArrayBuilder(0).AppendServerState(nil).Bytes())
	assert.Equal(t, []byte{0}, NewByteArrayBuilder(0).AppendServerState(newState()).Bytes())
}

func TestByteArrayScanner_StickyError(t *testing.T) {
	s := NewByteArrayScanner([]byte("300\x00abc\x00"))

	assert.Equal(t, int8(0), ScanInt[int8](s))
	require.ErrorIs(t, s.Err(), ErrDataFormat)
	pos := s.Pos()

	assert.Equal(t, "", s.String())
	assert.Equal(t, byte(0), s.Byte())
	assert.Nil(t, s.Rest())
	assert.Equal(t, pos, s.Pos())
	assert.Contains(t, s.Err().Error(), `invalid integer "300"`)
}

func TestByteArrayScanner_Failures(t *testing.T) {
	tests := []struct {
		name string
		data string
		read func(s *ByteArrayScanner)
	}{
		{"byte past end", "", func(s *ByteArrayScanner) { s.Byte() }},
		{"unterminated string", "abc", func(s *ByteArrayScanner) { _ = s.String() }},
		{"negative unsigned", "-1\x00", func(s *ByteArrayScanner) { ScanInt[uint32](s) }},
		{"empty integer", "\x00", func(s *ByteArrayScanner) { ScanInt[int](s) }},
		{"invalid bool string", "yes\x00", func(s *ByteArrayScanner) { s.BoolString() }},
		{"raw past end", "ab", func(s *ByteArrayScanner) { s.Raw(3) }},
		{"short string list", "\x02a\x00", func(s *ByteArrayScanner) { s.Strings() }},
		{"invalid CSN", "0000\x00", func(s *ByteArrayScanner) { s.CSN() }},
		{"unterminated server state", "1\x00", func(s *ByteArrayScanner) { s.ServerState() }},
		{"sized past end", "5\x00abc", func(s *ByteArrayScanner) { s.sized() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewByteArrayScanner([]byte(tt.data))
			tt.read(s)
			assert.ErrorIs(t, s.Err(), ErrDataFormat)
		})
	}
}

func TestByteArrayScanner_Peek(t *testing.T) {
	s := NewByteArrayScanner([]byte{1, 2})
	b, ok := s.PeekByte()
	assert.True(t, ok)
	assert.Equal(t, byte(1), b)
	assert.Equal(t, 2, s.Remaining())

	s.Raw(2)
	_, ok = s.PeekByte()
	assert.False(t, ok)
	assert.NoError(t, s.Err())
}

func TestByteArrayBuilder_CSNForms(t *testing.T) {
	csn := common.NewCSN(0x18c4f2a1b30, 7, 12)
	b := NewByteArrayBuilder(0).AppendCSN(csn).AppendCSNBytes(csn)
	assert.Equal(t, common.CSNLength+1+common.CSNByteLength, b.Len())

	s := NewByteArrayScanner(b.Bytes())
	assert.Equal(t, csn, s.CSN())
	assert.Equal(t, csn, s.CSNBytes())
	assert.NoError(t, s.Err())
}
