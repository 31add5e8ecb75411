package common

import (
	"math"
	"sync"
	"time"
)

// CSNGenerator produces strictly increasing CSNs for one server.
type CSNGenerator struct {
	mu       sync.Mutex
	serverID uint16
	lastTime int64
	seqNum   uint32
	now      func() int64
}

// NewCSNGenerator creates a generator for serverID. Generated CSNs are
// never below start.
func NewCSNGenerator(serverID uint16, start CSN) *CSNGenerator {
	return &CSNGenerator{
		serverID: serverID,
		lastTime: start.Time,
		seqNum:   start.SeqNum,
		now:      func() int64 { return time.Now().UnixMilli() },
	}
}

// ServerID returns the server ID stamped on generated CSNs.
func (g *CSNGenerator) ServerID() uint16 {
	return g.serverID
}

// NewCSN returns a CSN greater than every CSN generated or adjusted to so
// far.
func (g *CSNGenerator) NewCSN() CSN {
	g.mu.Lock()
	defer g.mu.Unlock()

	if t := g.now(); t > g.lastTime {
		g.lastTime = t
	}
	if g.seqNum == math.MaxUint32 {
		g.seqNum = 0
		g.lastTime++
	} else {
		g.seqNum++
	}
	return CSN{Time: g.lastTime, SeqNum: g.seqNum, ServerID: g.serverID}
}

// Adjust moves the generator past csn, typically one received from a peer,
// so that the next generated CSN sorts after it.
func (g *CSNGenerator) Adjust(csn CSN) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case csn.Time > g.lastTime:
		g.lastTime = csn.Time
		g.seqNum = csn.SeqNum
	case csn.Time == g.lastTime && csn.SeqNum > g.seqNum:
		g.seqNum = csn.SeqNum
	}
}

// AdjustState adjusts the generator past every CSN in state.
func (g *CSNGenerator) AdjustState(state *ServerState) {
	for _, csn := range state.CSNs() {
		g.Adjust(csn)
	}
}
