package protocol

import "fmt"

// Version is a replication protocol version.
type Version byte

// Protocol versions, oldest first.
const (
	V1 Version = iota + 1
	V2
	V3
	V4
	V5
	V6
	V7
	V8
)

// CurrentVersion is the version this implementation speaks by default.
const CurrentVersion = V8

// String returns the version as "V<n>".
func (v Version) String() string {
	return fmt.Sprintf("V%d", byte(v))
}

// Valid reports whether v is a known version.
func (v Version) Valid() bool {
	return v >= V1 && v <= CurrentVersion
}

// Negotiate returns the version two peers use: the lower of both.
func Negotiate(a, b Version) Version {
	if a < b {
		return a
	}
	return b
}

// layout holds the encode and decode functions of a message body for every
// version from minVersion up to the next entry of its table.
type layout[T any] struct {
	minVersion Version
	encode     func(b *ByteArrayBuilder, m *T, v Version)
	decode     func(s *ByteArrayScanner, m *T, v Version)
}

// layoutFor returns the entry of table, sorted by ascending minVersion,
// that applies to v. It reports false when v predates the first entry.
func layoutFor[T any](table []layout[T], v Version) (layout[T], bool) {
	for i := len(table) - 1; i >= 0; i-- {
		if v >= table[i].minVersion {
			return table[i], true
		}
	}
	return layout[T]{}, false
}
