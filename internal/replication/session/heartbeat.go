package session

import (
	"context"
	"sync"
	"time"

	"github.com/KilimcininKorOglu/obarepl/internal/replication/protocol"
)

// HeartbeatPublisher publishes a HeartbeatMsg whenever the session has
// published nothing for a full interval.
type HeartbeatPublisher struct {
	s        *Session
	interval time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewHeartbeatPublisher creates a publisher for s. Call Start to run it.
func NewHeartbeatPublisher(s *Session, interval time.Duration) *HeartbeatPublisher {
	return &HeartbeatPublisher{
		s:        s,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the publisher until ctx is done, Stop is called, the session
// closes or a publish fails.
func (h *HeartbeatPublisher) Start(ctx context.Context) {
	go h.run(ctx)
}

func (h *HeartbeatPublisher) run(ctx context.Context) {
	defer close(h.done)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.stop:
			return
		case <-h.s.Done():
			return
		case <-ticker.C:
			if time.Since(h.s.LastPublish()) < h.interval {
				continue
			}
			if err := h.s.Publish(&protocol.HeartbeatMsg{}); err != nil {
				h.s.logger.Debug("heartbeat publish failed", "error", err)
				return
			}
			h.s.metrics.HeartbeatsSent.Inc()
		}
	}
}

// Stop stops the publisher and waits for it to exit. It must only be
// called after Start.
func (h *HeartbeatPublisher) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

// HeartbeatMonitor closes a session on which nothing was received for two
// heartbeat intervals.
type HeartbeatMonitor struct {
	s        *Session
	interval time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewHeartbeatMonitor creates a monitor for s expecting traffic at least
// every interval. Call Start to run it.
func NewHeartbeatMonitor(s *Session, interval time.Duration) *HeartbeatMonitor {
	return &HeartbeatMonitor{
		s:        s,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the monitor until ctx is done, Stop is called or the session
// closes.
func (m *HeartbeatMonitor) Start(ctx context.Context) {
	go m.run(ctx)
}

func (m *HeartbeatMonitor) run(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-m.s.Done():
			return
		case <-ticker.C:
			silence := time.Since(m.s.LastReceive())
			if silence < 2*m.interval {
				continue
			}
			m.s.logger.Warn("no heartbeat from peer, closing session",
				"silence", silence.String(),
				"interval", m.interval.String())
			m.s.metrics.HeartbeatTimeouts.Inc()
			m.s.Close()
			return
		}
	}
}

// Stop stops the monitor and waits for it to exit. It must only be called
// after Start.
func (m *HeartbeatMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
	<-m.done
}
