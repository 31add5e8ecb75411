package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/KilimcininKorOglu/obarepl/internal/ber"
	"github.com/KilimcininKorOglu/obarepl/internal/ldap"
	"github.com/KilimcininKorOglu/obarepl/internal/logging"
)

// DefaultMaxElementSize bounds the responses a Conn accepts.
const DefaultMaxElementSize = 16 * 1024 * 1024

// unbindTimeout bounds the unbind write on Close.
const unbindTimeout = time.Second

// Conn is an LDAP client connection. Requests are written as they are
// sent; a background goroutine reads responses and completes the matching
// futures.
type Conn struct {
	// conn is the underlying connection
	conn net.Conn
	// codec encodes requests and decodes responses
	codec *ldap.Codec
	// logger carries the connection ID
	logger logging.Logger
	// executor runs result handlers
	executor Executor
	// maxElementSize bounds decoded responses
	maxElementSize int

	// writeMu serialises request writes
	writeMu sync.Mutex

	// mu guards the fields below
	mu      sync.Mutex
	nextID  int32
	pending map[int32]pendingRequest
	closed  bool
	err     error

	done chan struct{}
}

// Option configures a Conn.
type Option func(*Conn)

// WithLogger sets the connection logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Conn) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithExecutor sets the executor that runs result and search handlers.
func WithExecutor(e Executor) Option {
	return func(c *Conn) {
		if e != nil {
			c.executor = e
		}
	}
}

// WithMaxElementSize bounds the size of decoded responses.
func WithMaxElementSize(n int) Option {
	return func(c *Conn) {
		c.maxElementSize = n
	}
}

// NewConn starts a client on conn.
func NewConn(conn net.Conn, opts ...Option) *Conn {
	c := &Conn{
		conn:           conn,
		logger:         logging.NewNop(),
		executor:       InlineExecutor,
		maxElementSize: DefaultMaxElementSize,
		nextID:         1,
		pending:        make(map[int32]pendingRequest),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithRequestID(logging.GenerateRequestID())
	c.codec = ldap.NewCodec(c.logger)

	go c.readLoop()
	return c
}

// Send sends a request and returns its future. handler, if not nil, is
// called with the final response.
func (c *Conn) Send(op ldap.ProtocolOp, handler ResultHandler, controls ...ldap.Control) (*ResultFuture, error) {
	var f *ResultFuture
	err := c.send(op, controls, func(id int32) pendingRequest {
		f = newResultFuture(id, c, handler, c.executor)
		return f
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Search sends a search request. Entries and references go to search as
// they arrive; handler, if not nil, is called with the SearchResultDone.
func (c *Conn) Search(req *ldap.SearchRequest, search SearchHandler, handler ResultHandler, controls ...ldap.Control) (*SearchFuture, error) {
	var f *SearchFuture
	err := c.send(req, controls, func(id int32) pendingRequest {
		f = newSearchFuture(id, c, search, handler, c.executor)
		return f
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// send registers the future built by newFuture before writing the request
// so that no response can arrive unclaimed.
func (c *Conn) send(op ldap.ProtocolOp, controls []ldap.Control, newFuture func(id int32) pendingRequest) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConnectionClosed
	}
	id, err := c.allocateIDLocked()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.pending[id] = newFuture(id)
	c.mu.Unlock()

	if err := c.write(&ldap.Message{ID: id, Op: op, Controls: controls}); err != nil {
		c.forget(id)
		return err
	}
	return nil
}

func (c *Conn) allocateIDLocked() (int32, error) {
	if c.nextID > ldap.MaxMessageID || c.nextID <= 0 {
		return 0, ErrMessageIDExhausted
	}
	id := c.nextID
	c.nextID++
	return id, nil
}

func (c *Conn) write(m *ldap.Message) error {
	data, err := c.codec.Marshal(m)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.conn.Write(data); err != nil {
		if c.isClosed() {
			return ErrConnectionClosed
		}
		return fmt.Errorf("client: write %s: %w", ldap.OperationName(m.Op.Tag()), err)
	}
	return nil
}

// abandon sends an abandon request for id. Abandon has no response.
func (c *Conn) abandon(id int32) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConnectionClosed
	}
	abandonID, err := c.allocateIDLocked()
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.logger.Debug("abandoning request", "messageID", id)
	return c.write(&ldap.Message{ID: abandonID, Op: &ldap.AbandonRequest{MessageID: id}})
}

func (c *Conn) forget(id int32) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Pending returns the number of outstanding requests.
func (c *Conn) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Conn) readLoop() {
	r := ber.NewStreamReader(bufio.NewReader(c.conn), c.maxElementSize, ber.WithLogger(c.logger))
	for {
		m, err := c.codec.ReadMessage(r, nil)
		if err != nil {
			c.shutdown(err)
			return
		}
		c.dispatch(m)
	}
}

func (c *Conn) dispatch(m *ldap.Message) {
	c.mu.Lock()
	p, ok := c.pending[m.ID]
	c.mu.Unlock()
	if !ok {
		// Message ID zero carries unsolicited notifications.
		c.logger.Debug("response for unknown request",
			"messageID", m.ID,
			"op", ldap.OperationName(m.Op.Tag()))
		return
	}
	if p.handleResponse(m) {
		c.forget(m.ID)
	}
}

// shutdown fails every outstanding request with err.
func (c *Conn) shutdown(err error) {
	c.mu.Lock()
	if c.closed {
		err = ErrConnectionClosed
	}
	c.closed = true
	if c.err == nil {
		c.err = err
	}
	pending := c.pending
	c.pending = make(map[int32]pendingRequest)
	c.mu.Unlock()

	if errors.Is(err, io.EOF) {
		c.logger.Debug("connection closed by server")
	} else if !errors.Is(err, ErrConnectionClosed) {
		c.logger.Warn("connection failed", "error", err)
	}
	for _, p := range pending {
		p.fail(err)
	}
	c.conn.Close()
	close(c.done)
}

func (c *Conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Done is closed once the connection is closed and every outstanding
// request failed.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns why the connection closed, or nil while it is open.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close sends an unbind request and closes the connection. Outstanding
// requests fail with ErrConnectionClosed.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		<-c.done
		return nil
	}
	id, err := c.allocateIDLocked()
	c.mu.Unlock()

	if err == nil {
		c.conn.SetWriteDeadline(time.Now().Add(unbindTimeout))
		_ = c.write(&ldap.Message{ID: id, Op: &ldap.UnbindRequest{}})
	}
	c.mu.Lock()
	c.closed = true
	if c.err == nil {
		c.err = ErrConnectionClosed
	}
	c.mu.Unlock()

	err = c.conn.Close()
	<-c.done
	return err
}
