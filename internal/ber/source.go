package ber

import (
	"io"
)

// Source is the byte stream consumed by StreamReader.
//
// Buffered reports how many bytes can be read without blocking. A
// *bufio.Reader wrapping a connection satisfies Source directly; an
// event-driven transport can feed a *Buffer instead.
type Source interface {
	io.Reader
	io.ByteReader
	Buffered() int
}

// Buffer is an in-memory Source that can be appended to while a reader is
// consuming it. It is not safe for concurrent use.
type Buffer struct {
	data []byte
	off  int
}

// NewBuffer returns a Buffer holding a copy of data.
func NewBuffer(data []byte) *Buffer {
	b := &Buffer{}
	b.Write(data)
	return b
}

// Write appends p to the unread portion of the buffer.
func (b *Buffer) Write(p []byte) (int, error) {
	if b.off > 0 && b.off == len(b.data) {
		b.data = b.data[:0]
		b.off = 0
	}
	b.data = append(b.data, p...)
	return len(p), nil
}

// WriteByte appends a single byte.
func (b *Buffer) WriteByte(c byte) error {
	_, err := b.Write([]byte{c})
	return err
}

// Buffered returns the number of unread bytes.
func (b *Buffer) Buffered() int {
	return len(b.data) - b.off
}

// ReadByte returns the next unread byte or io.EOF.
func (b *Buffer) ReadByte() (byte, error) {
	if b.off >= len(b.data) {
		return 0, io.EOF
	}
	c := b.data[b.off]
	b.off++
	return c, nil
}

// Read reads up to len(p) unread bytes.
func (b *Buffer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if b.off >= len(b.data) {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.off:])
	b.off += n
	return n, nil
}

// Reset discards all data.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
	b.off = 0
}
