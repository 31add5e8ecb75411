package assured

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/KilimcininKorOglu/obarepl/internal/logging"
	"github.com/KilimcininKorOglu/obarepl/internal/replication/common"
	"github.com/KilimcininKorOglu/obarepl/internal/replication/protocol"
)

// DefaultTimeout is how long acks are awaited before the requester gets a
// timeout ack.
const DefaultTimeout = 2 * time.Second

// Publisher sends the final ack to the server an update came from.
type Publisher interface {
	Publish(msg protocol.Msg) error
}

// WaitingAcks holds the assured updates waiting for acks, keyed by CSN.
type WaitingAcks struct {
	timeout time.Duration
	logger  logging.Logger
	metrics *Metrics

	mu      sync.Mutex
	waiting map[common.CSN]*waitingUpdate
	closed  bool
}

type waitingUpdate struct {
	acks      *ExpectedAcks
	requester Publisher
	timer     *time.Timer
}

// NewWaitingAcks creates an empty set. A timeout of zero selects
// DefaultTimeout.
func NewWaitingAcks(timeout time.Duration, logger logging.Logger, metrics *Metrics) *WaitingAcks {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if metrics == nil {
		metrics = DefaultMetrics()
	}
	return &WaitingAcks{
		timeout: timeout,
		logger:  logger,
		metrics: metrics,
		waiting: make(map[common.CSN]*waitingUpdate),
	}
}

// Add starts waiting for the acks of e. The final ack goes to requester.
func (w *WaitingAcks) Add(e *ExpectedAcks, requester Publisher) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	if _, ok := w.waiting[e.CSN()]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyWaiting, e.CSN())
	}
	u := &waitingUpdate{acks: e, requester: requester}
	u.timer = time.AfterFunc(w.timeout, func() { w.expire(u) })
	w.waiting[e.CSN()] = u
	w.metrics.Waiting.Inc()
	return nil
}

// ProcessAck hands the ack sent by server from to the update it
// acknowledges. Acks for unknown CSNs arrive after a timeout and are
// dropped.
func (w *WaitingAcks) ProcessAck(from int, ack *protocol.AckMsg) {
	w.mu.Lock()
	u, ok := w.waiting[ack.CSN]
	w.mu.Unlock()
	if !ok {
		w.logger.Debug("ack for unknown update", logging.FieldCSN, ack.CSN, "from", from)
		return
	}

	if !u.acks.ProcessAck(from, ack) {
		return
	}
	if !w.remove(u) {
		return
	}
	u.timer.Stop()
	if final := u.acks.Complete(false); final != nil {
		w.send(u, final)
	}
}

func (w *WaitingAcks) expire(u *waitingUpdate) {
	if !w.remove(u) {
		return
	}
	final := u.acks.Complete(true)
	if final == nil {
		return
	}

	mode := u.acks.Mode().String()
	missing := u.acks.TimeoutServers()
	w.metrics.ServerTimeouts.WithLabelValues(mode).Add(float64(len(missing)))
	w.logger.Debug("assured update timed out",
		logging.FieldCSN, u.acks.CSN(),
		"requester", u.acks.Requester(),
		"missing", missing)
	w.send(u, final)
}

// remove drops u from the set. It reports false if u was already removed.
func (w *WaitingAcks) remove(u *waitingUpdate) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	csn := u.acks.CSN()
	if w.waiting[csn] != u {
		return false
	}
	delete(w.waiting, csn)
	w.metrics.Waiting.Dec()
	return true
}

func (w *WaitingAcks) send(u *waitingUpdate, final *protocol.AckMsg) {
	w.metrics.Outcomes.WithLabelValues(u.acks.Mode().String(), outcome(final)).Inc()
	if err := u.requester.Publish(final); err != nil {
		w.logger.Error("failed to send assured ack",
			logging.FieldCSN, final.CSN,
			"requester", u.acks.Requester(),
			"error", err)
		if c, ok := u.requester.(io.Closer); ok {
			c.Close()
		}
	}
}

func outcome(ack *protocol.AckMsg) string {
	switch {
	case ack.HasTimeout:
		return "timeout"
	case ack.HasErrors():
		return "error"
	default:
		return "ok"
	}
}

// Len returns the number of updates waiting for acks.
func (w *WaitingAcks) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.waiting)
}

// Close stops every timer and forgets the waiting updates. No further acks
// are sent.
func (w *WaitingAcks) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
	for csn, u := range w.waiting {
		u.timer.Stop()
		u.acks.Complete(false)
		delete(w.waiting, csn)
		w.metrics.Waiting.Dec()
	}
}
