package ber

import "math"

// sequenceLimiter bounds the bytes consumed inside one open SEQUENCE, SET or
// explicit tag. Limiters form a stack through parent; each level keeps its
// child so nested sequences reuse nodes instead of allocating.
type sequenceLimiter struct {
	parent    *sequenceLimiter
	child     *sequenceLimiter
	readLimit int // negative at the root, which is bounded only by the source
	bytesRead int
	gen       uint64
}

// checkLimit accounts n bytes against this limiter and every ancestor.
func (l *sequenceLimiter) checkLimit(n int) error {
	if l.readLimit >= 0 && l.bytesRead+n > l.readLimit {
		return ErrSequenceLimitExceeded
	}
	if l.parent != nil {
		if err := l.parent.checkLimit(n); err != nil {
			return err
		}
	}
	l.bytesRead += n
	return nil
}

// remaining returns the bytes left in scope.
func (l *sequenceLimiter) remaining() int {
	if l.readLimit < 0 {
		return math.MaxInt
	}
	return l.readLimit - l.bytesRead
}

// startSequence returns this level's child limiter armed with limit.
func (l *sequenceLimiter) startSequence(limit int) *sequenceLimiter {
	if l.child == nil {
		l.child = &sequenceLimiter{parent: l}
	}
	c := l.child
	c.readLimit = limit
	c.bytesRead = 0
	return c
}

func (l *sequenceLimiter) isRoot() bool {
	return l.parent == nil
}

// SequenceGuard closes a nested scope opened by ReadStartSequence,
// ReadStartSet or ReadStartExplicitTag. End pops the limiter and drains any
// unread bytes left in the scope; it is safe to call more than once.
//
//	g, err := r.ReadStartSequence()
//	if err != nil {
//		return err
//	}
//	defer g.Close()
//	...
//	return g.End()
type SequenceGuard struct {
	r       *StreamReader
	limiter *sequenceLimiter
	gen     uint64
	done    bool
}

// End closes the scope, reporting any error from draining it.
func (g *SequenceGuard) End() error {
	if g == nil || g.done {
		return nil
	}
	g.done = true
	return g.r.endScope(g.limiter, g.gen)
}

// Close ends the scope, discarding the error. Intended for defer on error
// paths; the happy path should call End.
func (g *SequenceGuard) Close() {
	_ = g.End()
}
