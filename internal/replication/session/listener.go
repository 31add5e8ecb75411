package session

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/KilimcininKorOglu/obarepl/internal/logging"
	"github.com/KilimcininKorOglu/obarepl/internal/replication/protocol"
)

// Handler serves one accepted session. The session is closed when Handler
// returns.
type Handler func(ctx context.Context, s *Session, peer protocol.StartEnvelope)

// Listener accepts replication sessions.
type Listener struct {
	ln      net.Listener
	version protocol.Version
	respond Responder
	opts    []Option
	logger  logging.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Listen listens on the TCP address addr. Accepted sessions speak at most
// version v and answer the peer's start message with respond.
func Listen(addr string, v protocol.Version, respond Responder, logger logging.Logger, opts ...Option) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewListener(ln, v, respond, logger, opts...), nil
}

// NewListener accepts sessions on ln.
func NewListener(ln net.Listener, v protocol.Version, respond Responder, logger logging.Logger, opts ...Option) *Listener {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Listener{
		ln:      ln,
		version: v,
		respond: respond,
		opts:    append([]Option{WithLogger(logger)}, opts...),
		logger:  logger,
	}
}

// Addr returns the listening address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Serve accepts connections until ctx is done or Close is called, running
// each handshake and handler on its own goroutine. It returns nil once
// stopped and waits for running handlers to return.
func (l *Listener) Serve(ctx context.Context, handle Handler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		l.Close()
	}()

	defer l.wg.Wait()
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if l.isClosed() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			l.logger.Warn("accept failed", "error", err)
			continue
		}

		l.wg.Add(1)
		go l.handleConn(ctx, conn, handle)
	}
}

func (l *Listener) handleConn(ctx context.Context, conn net.Conn, handle Handler) {
	defer l.wg.Done()

	s, peer, err := Accept(ctx, conn, l.version, l.respond, l.opts...)
	if err != nil {
		l.logger.Warn("replication handshake failed",
			logging.FieldRemote, conn.RemoteAddr().String(),
			"error", err)
		conn.Close()
		return
	}
	defer s.Close()

	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.Done():
		}
	}()
	handle(ctx, s, peer)
}

func (l *Listener) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Close stops accepting connections. Running handlers are not interrupted
// except through the context given to Serve.
func (l *Listener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()
	return l.ln.Close()
}
