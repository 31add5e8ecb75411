package main

import (
	"sync"

	"github.com/KilimcininKorOglu/obarepl/internal/replication/protocol"
)

// outbox queues the messages waiting to be published to one peer. Pushing
// never blocks; a slow peer shows up as a growing backlog.
type outbox struct {
	mu      sync.Mutex
	msgs    []protocol.Msg
	pending int
	notify  chan struct{}
}

func newOutbox() *outbox {
	return &outbox{notify: make(chan struct{}, 1)}
}

// push queues m and returns the backlog.
func (o *outbox) push(m protocol.Msg) int {
	o.mu.Lock()
	o.msgs = append(o.msgs, m)
	o.pending++
	n := o.pending
	o.mu.Unlock()

	select {
	case o.notify <- struct{}{}:
	default:
	}
	return n
}

// ready is signalled after a push.
func (o *outbox) ready() <-chan struct{} {
	return o.notify
}

// take removes every queued message. They stay in the backlog until
// published is called for each.
func (o *outbox) take() []protocol.Msg {
	o.mu.Lock()
	defer o.mu.Unlock()
	msgs := o.msgs
	o.msgs = nil
	return msgs
}

func (o *outbox) published() {
	o.mu.Lock()
	o.pending--
	o.mu.Unlock()
}

// backlog counts the messages pushed and not yet published.
func (o *outbox) backlog() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pending
}
