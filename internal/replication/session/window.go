package session

import (
	"context"
	"sync"
	"time"

	"github.com/KilimcininKorOglu/obarepl/internal/replication/protocol"
)

// DefaultProbeInterval is how long SendWindow waits for credit before it
// probes the peer.
const DefaultProbeInterval = 500 * time.Millisecond

// Publisher publishes a message on a session.
type Publisher interface {
	Publish(msg protocol.Msg) error
}

// SendWindow holds the credit for sending updates. Each update takes one
// credit; the peer returns credit with WindowMsg.
type SendWindow struct {
	mu     sync.Mutex
	credit int
	signal chan struct{}

	probeInterval time.Duration
	pub           Publisher
	metrics       *Metrics
}

// NewSendWindow creates a send window with the peer's announced window size
// as initial credit. While out of credit it publishes a WindowProbeMsg on
// pub every probeInterval.
func NewSendWindow(size int, probeInterval time.Duration, pub Publisher, metrics *Metrics) *SendWindow {
	if probeInterval <= 0 {
		probeInterval = DefaultProbeInterval
	}
	if metrics == nil {
		metrics = DefaultMetrics()
	}
	return &SendWindow{
		credit:        size,
		signal:        make(chan struct{}, 1),
		probeInterval: probeInterval,
		pub:           pub,
		metrics:       metrics,
	}
}

// Acquire takes one credit, waiting until one is granted or ctx is done.
func (w *SendWindow) Acquire(ctx context.Context) error {
	timer := time.NewTimer(w.probeInterval)
	defer timer.Stop()

	for {
		w.mu.Lock()
		if w.credit > 0 {
			w.credit--
			w.mu.Unlock()
			return nil
		}
		w.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.signal:
		case <-timer.C:
			if err := w.pub.Publish(&protocol.WindowProbeMsg{}); err != nil {
				return err
			}
			w.metrics.WindowProbes.Inc()
			timer.Reset(w.probeInterval)
		}
	}
}

// Grant adds n credits, waking a waiting Acquire.
func (w *SendWindow) Grant(n int) {
	if n <= 0 {
		return
	}
	w.mu.Lock()
	w.credit += n
	w.mu.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
}

// Credit returns the credit left.
func (w *SendWindow) Credit() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.credit
}

// ReceiveWindow returns credit to the sender as updates are processed.
type ReceiveWindow struct {
	mu    sync.Mutex
	size  int
	half  int
	count int

	pub Publisher
}

// NewReceiveWindow creates a receive window of size updates. Credit is
// returned on pub every size/2 updates.
func NewReceiveWindow(size int, pub Publisher) *ReceiveWindow {
	half := size / 2
	if half < 1 {
		half = 1
	}
	return &ReceiveWindow{size: size, half: half, pub: pub}
}

// Received records one processed update and publishes a WindowMsg returning
// the accumulated credit once half the window is used.
func (w *ReceiveWindow) Received() error {
	w.mu.Lock()
	w.count++
	if w.count < w.half {
		w.mu.Unlock()
		return nil
	}
	n := w.count
	w.count = 0
	w.mu.Unlock()

	return w.pub.Publish(&protocol.WindowMsg{NumAck: int32(n)})
}

// HandleProbe answers a WindowProbeMsg. Pending credit is returned at
// once. With nothing pending both sides disagree on the window, so the
// whole window is granted again.
func (w *ReceiveWindow) HandleProbe() error {
	w.mu.Lock()
	n := w.count
	w.count = 0
	if n == 0 {
		n = w.size
	}
	w.mu.Unlock()

	return w.pub.Publish(&protocol.WindowMsg{NumAck: int32(n)})
}

// Pending returns the updates received since credit was last returned.
func (w *ReceiveWindow) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}
