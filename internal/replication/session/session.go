package session

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/KilimcininKorOglu/obarepl/internal/logging"
	"github.com/KilimcininKorOglu/obarepl/internal/replication/protocol"
)

// Session is a framed replication connection with one peer.
//
// Publish may be called from several goroutines; frames are never
// interleaved. Receive must be called from a single goroutine.
type Session struct {
	// conn is the underlying connection
	conn net.Conn
	// reader buffers conn for frame reads
	reader *bufio.Reader
	// id identifies the session in logs
	id string
	// logger carries the session ID
	logger logging.Logger
	// metrics counts traffic
	metrics *Metrics
	// maxPDUSize bounds received frames
	maxPDUSize int
	// startTime is when the session was created
	startTime time.Time

	// writeMu serialises frame writes
	writeMu sync.Mutex

	// mu guards the fields below
	mu          sync.Mutex
	codec       *protocol.Codec
	lastPublish time.Time
	lastReceive time.Time

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics the session reports to.
func WithMetrics(m *Metrics) Option {
	return func(s *Session) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithMaxPDUSize bounds the size of received PDUs.
func WithMaxPDUSize(n int) Option {
	return func(s *Session) {
		s.maxPDUSize = n
	}
}

// New creates a session over conn speaking version v.
func New(conn net.Conn, v protocol.Version, opts ...Option) (*Session, error) {
	codec, err := protocol.NewCodec(v)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	s := &Session{
		conn:        conn,
		reader:      bufio.NewReader(conn),
		id:          logging.GenerateRequestID(),
		logger:      logging.NewNop(),
		maxPDUSize:  DefaultMaxPDUSize,
		startTime:   now,
		codec:       codec,
		lastPublish: now,
		lastReceive: now,
		closed:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = DefaultMetrics()
	}
	s.logger = s.logger.WithSession(s.id).WithFields(logging.FieldRemote, remoteAddr(conn))
	s.metrics.OpenSessions.Inc()
	return s, nil
}

func remoteAddr(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// Logger returns the session logger.
func (s *Session) Logger() logging.Logger {
	return s.logger
}

// RemoteAddr returns the address of the peer.
func (s *Session) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

// Version returns the protocol version of the session.
func (s *Session) Version() protocol.Version {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codec.Version()
}

// SetVersion switches the session to version v, normally once the
// handshake has negotiated it.
func (s *Session) SetVersion(v protocol.Version) error {
	codec, err := protocol.NewCodec(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.codec = codec
	s.mu.Unlock()
	return nil
}

func (s *Session) currentCodec() *protocol.Codec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codec
}

// Publish encodes msg at the session version and writes it as one frame.
func (s *Session) Publish(msg protocol.Msg) error {
	if s.IsClosed() {
		return ErrSessionClosed
	}
	pdu, err := s.currentCodec().Encode(msg)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	err = WriteFrame(s.conn, pdu)
	s.writeMu.Unlock()
	if err != nil {
		if s.IsClosed() {
			return ErrSessionClosed
		}
		return fmt.Errorf("publish %s: %w", msg.Type(), err)
	}

	s.mu.Lock()
	s.lastPublish = time.Now()
	s.mu.Unlock()

	s.metrics.MessagesSent.WithLabelValues(msg.Type().String()).Inc()
	s.logger.Trace("published message", logging.FieldMsgType, msg.Type(), "bytes", len(pdu))
	return nil
}

// Receive reads and decodes the next message. It returns io.EOF when the
// peer closed the connection between frames and ErrSessionClosed after
// Close. Refused legacy PDUs return a *protocol.NotSupportedOldVersionPDUError
// and leave the session usable.
func (s *Session) Receive() (protocol.Msg, error) {
	pdu, err := ReadFrame(s.reader, s.maxPDUSize)
	if err != nil {
		if s.IsClosed() {
			return nil, ErrSessionClosed
		}
		return nil, err
	}

	s.mu.Lock()
	s.lastReceive = time.Now()
	codec := s.codec
	s.mu.Unlock()

	msg, err := codec.Decode(pdu)
	if err != nil {
		var refused *protocol.NotSupportedOldVersionPDUError
		if errors.As(err, &refused) {
			s.logger.Debug("refused old protocol version PDU", logging.FieldMsgType, refused.Type)
		}
		return nil, err
	}
	s.metrics.MessagesReceived.WithLabelValues(msg.Type().String()).Inc()
	s.logger.Trace("received message", logging.FieldMsgType, msg.Type(), "bytes", len(pdu))
	return msg, nil
}

// LastPublish returns when a message was last published.
func (s *Session) LastPublish() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPublish
}

// LastReceive returns when a frame was last received.
func (s *Session) LastReceive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReceive
}

// Done is closed once the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.closed
}

// IsClosed reports whether Close has been called.
func (s *Session) IsClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// Close closes the connection. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.closeErr = s.conn.Close()
		if errors.Is(s.closeErr, net.ErrClosed) || errors.Is(s.closeErr, io.ErrClosedPipe) {
			s.closeErr = nil
		}
		s.metrics.OpenSessions.Dec()
		s.logger.Debug("session closed", "duration", time.Since(s.startTime).String())
	})
	return s.closeErr
}
