package common

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSN_String(t *testing.T) {
	csn := NewCSN(0x123f1e58828, 123, 45)
	assert.Equal(t, "00000123f1e58828002d0000007b", csn.String())

	parsed, err := ParseCSN(csn.String())
	require.NoError(t, err)
	assert.Equal(t, csn, parsed)

	fromBytes, err := CSNFromBytes(csn.Bytes())
	require.NoError(t, err)
	assert.Equal(t, csn, fromBytes)
	assert.Len(t, csn.Bytes(), CSNByteLength)
}

func TestParseCSN_Errors(t *testing.T) {
	for _, in := range []string{"", "0123", "zz000123f1e58828002d0000007b", "00000123f1e58828002d0000007b00"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseCSN(in)
			assert.ErrorIs(t, err, ErrInvalidCSN)
		})
	}
	_, err := CSNFromBytes([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidCSN)
}

func TestCSN_Compare(t *testing.T) {
	tests := []struct {
		name string
		a, b CSN
		want int
	}{
		{"equal", NewCSN(10, 1, 1), NewCSN(10, 1, 1), 0},
		{"time wins", NewCSN(9, 100, 100), NewCSN(10, 0, 0), -1},
		{"seq before server", NewCSN(10, 2, 1), NewCSN(10, 1, 9), 1},
		{"server last", NewCSN(10, 1, 1), NewCSN(10, 1, 2), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Compare(tt.b))
			assert.Equal(t, -tt.want, tt.b.Compare(tt.a))
		})
	}
	assert.True(t, CSN{}.IsZero())
	assert.False(t, NewCSN(0, 0, 1).IsZero())
}

func TestCSNGenerator_Monotonic(t *testing.T) {
	g := NewCSNGenerator(7, CSN{})
	g.now = func() int64 { return 1000 }

	prev := g.NewCSN()
	for i := 0; i < 100; i++ {
		next := g.NewCSN()
		require.True(t, next.After(prev), "%s after %s", next, prev)
		assert.Equal(t, uint16(7), next.ServerID)
		prev = next
	}
}

func TestCSNGenerator_SeqOverflow(t *testing.T) {
	g := NewCSNGenerator(1, NewCSN(500, math.MaxUint32, 1))
	g.now = func() int64 { return 10 }

	csn := g.NewCSN()
	assert.Equal(t, int64(501), csn.Time)
	assert.Equal(t, uint32(0), csn.SeqNum)
}

func TestCSNGenerator_Adjust(t *testing.T) {
	g := NewCSNGenerator(1, CSN{})
	g.now = func() int64 { return 100 }

	peer := NewCSN(5000, 42, 9)
	g.Adjust(peer)
	assert.True(t, g.NewCSN().After(peer))

	state := NewServerState()
	state.Update(NewCSN(9000, 3, 2))
	g.AdjustState(state)
	csn := g.NewCSN()
	assert.Equal(t, int64(9000), csn.Time)
	assert.Equal(t, uint32(4), csn.SeqNum)
}

func TestCSNGenerator_Concurrent(t *testing.T) {
	g := NewCSNGenerator(3, CSN{})
	var (
		mu   sync.Mutex
		seen = make(map[CSN]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				csn := g.NewCSN()
				mu.Lock()
				seen[csn] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 800)
}

func TestServerState(t *testing.T) {
	s := NewServerState()
	assert.True(t, s.IsEmpty())

	assert.True(t, s.Update(NewCSN(10, 1, 2)))
	assert.True(t, s.Update(NewCSN(5, 1, 1)))
	assert.False(t, s.Update(NewCSN(9, 0, 2)), "older CSN must not replace")
	assert.False(t, s.Update(CSN{}))

	assert.True(t, s.Cover(NewCSN(10, 1, 2)))
	assert.True(t, s.Cover(NewCSN(3, 0, 1)))
	assert.False(t, s.Cover(NewCSN(11, 0, 2)))
	assert.False(t, s.Cover(NewCSN(1, 0, 3)))

	assert.Equal(t, []uint16{1, 2}, s.ServerIDs())
	assert.Equal(t, NewCSN(5, 1, 1).String()+" "+NewCSN(10, 1, 2).String(), s.String())

	d := s.Duplicate()
	assert.True(t, d.Equal(s))
	d.Update(NewCSN(20, 0, 1))
	assert.False(t, d.Equal(s))
	got, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, NewCSN(5, 1, 1), got)
}

func TestEnumsFromByte(t *testing.T) {
	mode, err := AssuredModeFromByte(2)
	require.NoError(t, err)
	assert.Equal(t, SafeDataMode, mode)
	assert.Equal(t, "safe-data", mode.String())

	_, err = AssuredModeFromByte(0)
	assert.ErrorIs(t, err, ErrInvalidValue)

	tests := []struct {
		b    byte
		want ServerStatus
		name string
	}{
		{0, InvalidStatus, "invalid"},
		{1, NormalStatus, "normal"},
		{2, DegradedStatus, "degraded"},
		{3, FullUpdateStatus, "full-update"},
		{4, BadGenIDStatus, "bad-generation-id"},
		{5, NotConnectedStatus, "not-connected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ServerStatusFromByte(tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.name, got.String())
		})
	}
	_, err = ServerStatusFromByte(6)
	assert.ErrorIs(t, err, ErrInvalidValue)
}
