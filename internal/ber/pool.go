package ber

import "sync"

// ReaderPool recycles StreamReaders between connections.
//
// Acquire hands out a reader bound to a source; Release takes it back. After
// Release the caller no longer owns the reader: it is reset, unbound from its
// source and any further use fails with ErrReaderReleased.
type ReaderPool struct {
	pool           sync.Pool
	maxElementSize int
}

// NewReaderPool creates a pool whose readers enforce maxElementSize and are
// built with opts.
func NewReaderPool(maxElementSize int, opts ...ReaderOption) *ReaderPool {
	p := &ReaderPool{maxElementSize: maxElementSize}
	p.pool.New = func() interface{} {
		return NewStreamReader(nil, maxElementSize, opts...)
	}
	return p
}

// Acquire returns a reset reader reading from src.
func (p *ReaderPool) Acquire(src Source) *StreamReader {
	r := p.pool.Get().(*StreamReader)
	r.ResetSource(src)
	return r
}

// Release resets r and returns it to the pool.
func (p *ReaderPool) Release(r *StreamReader) {
	if r == nil {
		return
	}
	r.ResetSource(nil)
	p.pool.Put(r)
}
