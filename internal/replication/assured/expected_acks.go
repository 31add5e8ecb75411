package assured

import (
	"sync"

	"github.com/KilimcininKorOglu/obarepl/internal/replication/common"
	"github.com/KilimcininKorOglu/obarepl/internal/replication/protocol"
)

// ExpectedAcks collects the acks awaited for one assured update.
type ExpectedAcks struct {
	mu sync.Mutex

	csn       common.CSN
	mode      common.AssuredMode
	requester int

	// servers lists the expected servers in forwarding order
	servers []int
	// acked records which expected servers answered
	acked map[int]bool
	// needed is the number of acks that completes the update
	needed   int
	received int

	// errs accumulates the errors reported by safe-read acks
	errs      *protocol.AckMsg
	completed bool
}

// NewSafeData creates the tracker for a safe-data update forwarded to the
// replication servers in expected. The update completes once level-1 of
// them acked.
func NewSafeData(csn common.CSN, requester int, level byte, expected []int) *ExpectedAcks {
	e := newExpectedAcks(csn, common.SafeDataMode, requester, expected)
	e.needed = int(level) - 1
	return e
}

// NewSafeRead creates the tracker for a safe-read update forwarded to the
// servers in expected. Every one of them must ack. The servers in
// wrongStatus were not asked and are reported as failed.
func NewSafeRead(csn common.CSN, requester int, expected, wrongStatus []int) *ExpectedAcks {
	e := newExpectedAcks(csn, common.SafeReadMode, requester, expected)
	e.needed = len(expected)
	if len(wrongStatus) > 0 {
		e.errs.HasWrongStatus = true
		e.errs.FailedServers = append(e.errs.FailedServers, wrongStatus...)
	}
	return e
}

func newExpectedAcks(csn common.CSN, mode common.AssuredMode, requester int, expected []int) *ExpectedAcks {
	e := &ExpectedAcks{
		csn:       csn,
		mode:      mode,
		requester: requester,
		servers:   append([]int(nil), expected...),
		acked:     make(map[int]bool, len(expected)),
		errs:      protocol.NewAckMsg(csn),
	}
	for _, id := range expected {
		e.acked[id] = false
	}
	return e
}

// CSN returns the CSN of the update.
func (e *ExpectedAcks) CSN() common.CSN { return e.csn }

// Mode returns the assured mode of the update.
func (e *ExpectedAcks) Mode() common.AssuredMode { return e.mode }

// Requester returns the server the update came from.
func (e *ExpectedAcks) Requester() int { return e.requester }

// Servers returns the servers an ack is expected from.
func (e *ExpectedAcks) Servers() []int {
	return append([]int(nil), e.servers...)
}

// ProcessAck records the ack sent by server from. It reports whether this
// was the last ack needed. Acks from unexpected servers, repeated acks and
// acks arriving after completion are ignored.
func (e *ExpectedAcks) ProcessAck(from int, ack *protocol.AckMsg) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.completed {
		return false
	}
	acked, ok := e.acked[from]
	if !ok || acked {
		return false
	}
	e.acked[from] = true
	e.received++

	// A safe-data ack only says the server holds the update.
	if e.mode == common.SafeReadMode && ack != nil {
		e.errs.Merge(ack)
	}
	return e.received >= e.needed
}

// Complete marks the tracker done and builds the ack for the requester.
// With timeout set, the servers that did not answer are listed as failed.
// Only the first call returns an ack; later calls return nil.
func (e *ExpectedAcks) Complete(timeout bool) *protocol.AckMsg {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.completed {
		return nil
	}
	e.completed = true

	final := protocol.NewAckMsg(e.csn)
	final.Merge(e.errs)
	if timeout {
		final.HasTimeout = true
		final.Merge(&protocol.AckMsg{FailedServers: e.missingLocked()})
	}
	return final
}

// IsCompleted reports whether Complete was called.
func (e *ExpectedAcks) IsCompleted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.completed
}

// TimeoutServers returns the expected servers that have not acked yet.
func (e *ExpectedAcks) TimeoutServers() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.missingLocked()
}

func (e *ExpectedAcks) missingLocked() []int {
	var missing []int
	for _, id := range e.servers {
		if !e.acked[id] {
			missing = append(missing, id)
		}
	}
	return missing
}
