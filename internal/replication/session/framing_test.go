package session

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte{0x08, '1', 0x00}))
	assert.Equal(t, "00000003\x081\x00", buf.String())

	buf.Reset()
	require.NoError(t, WriteFrame(&buf, bytes.Repeat([]byte{0xff}, 300)))
	assert.Equal(t, "0000012c", buf.String()[:HeaderLength])

	assert.ErrorIs(t, WriteFrame(&buf, nil), ErrEmptyPDU)
}

func TestReadFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("first")))
	require.NoError(t, WriteFrame(&buf, []byte("second")))

	pdu, err := ReadFrame(&buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "first", string(pdu))

	pdu, err = ReadFrame(&buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "second", string(pdu))

	_, err = ReadFrame(&buf, 0)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadFrame_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		max     int
		wantErr error
	}{
		{"not hex", "0000zz01abc", 0, ErrInvalidHeader},
		{"signed length", "-0000001a", 0, ErrInvalidHeader},
		{"zero length", "00000000", 0, ErrEmptyPDU},
		{"over limit", "00000011" + "0123456789abcdefg", 16, ErrPDUTooLarge},
		{"truncated header", "0000", 0, io.ErrUnexpectedEOF},
		{"truncated body", "00000005abc", 0, io.ErrUnexpectedEOF},
		{"missing body", "00000005", 0, io.ErrUnexpectedEOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFrame(bytes.NewBufferString(tt.data), tt.max)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestReadFrame_AtLimit(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, bytes.Repeat([]byte{'x'}, 16)))

	pdu, err := ReadFrame(&buf, 16)
	require.NoError(t, err)
	assert.Len(t, pdu, 16)
}
