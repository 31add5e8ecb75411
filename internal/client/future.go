package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/KilimcininKorOglu/obarepl/internal/ldap"
)

// ResultHandler is called once with the final response of a request. err
// is an *ErrorResultError for error result codes and for requests that
// were cancelled or lost with their connection.
type ResultHandler func(m *ldap.Message, err error)

// requester is the connection side of a future.
type requester interface {
	abandon(id int32) error
	forget(id int32)
}

// pendingRequest receives the responses of an outstanding request.
type pendingRequest interface {
	// handleResponse reports whether m completed the request.
	handleResponse(m *ldap.Message) bool
	fail(err error)
}

// ResultFuture is the outstanding result of one request.
//
// Completion happens once, by the response, by Cancel or by the loss of the
// connection; the first of them wins. Get may be called from any number of
// goroutines.
type ResultFuture struct {
	id       int32
	conn     requester
	handler  ResultHandler
	executor Executor
	// sem is held by the single goroutine draining tasks
	sem *semaphore.Weighted

	taskMu sync.Mutex
	tasks  []func()

	mu     sync.Mutex
	msg    *ldap.Message
	result ldap.Result
	done   chan struct{}
}

func newResultFuture(id int32, conn requester, handler ResultHandler, executor Executor) *ResultFuture {
	if executor == nil {
		executor = InlineExecutor
	}
	return &ResultFuture{
		id:       id,
		conn:     conn,
		handler:  handler,
		executor: executor,
		sem:      semaphore.NewWeighted(1),
		done:     make(chan struct{}),
	}
}

// MessageID returns the message ID of the request.
func (f *ResultFuture) MessageID() int32 {
	return f.id
}

// Done is closed once the future completes.
func (f *ResultFuture) Done() <-chan struct{} {
	return f.done
}

// IsDone reports whether the future completed.
func (f *ResultFuture) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Get waits for the result. It returns the final response and, for error
// result codes, an *ErrorResultError. If ctx ends first Get returns
// ErrTimeout for an expired deadline and ctx.Err() otherwise; the request
// stays outstanding.
func (f *ResultFuture) Get(ctx context.Context) (*ldap.Message, error) {
	select {
	case <-f.done:
		return f.outcome()
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ctx.Err()
	}
}

// GetWithTimeout waits at most d for the result.
func (f *ResultFuture) GetWithTimeout(d time.Duration) (*ldap.Message, error) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.outcome()
	case <-timer.C:
		return nil, ErrTimeout
	}
}

// Result returns the result once the future is done.
func (f *ResultFuture) Result() (ldap.Result, bool) {
	if !f.IsDone() {
		return ldap.Result{}, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, true
}

func (f *ResultFuture) outcome() (*ldap.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.result.Code.IsError() {
		return f.msg, &ErrorResultError{Result: f.result}
	}
	return f.msg, nil
}

// Cancel abandons the request and completes the future with a client-side
// cancelled result. It returns false if the future was already done.
func (f *ResultFuture) Cancel() bool {
	if f.IsDone() {
		return false
	}
	// Abandon has no response; a send failure leaves nothing to undo.
	_ = f.conn.abandon(f.id)
	if !f.complete(nil, ldap.NewErrorResult(ldap.ResultClientSideUserCancelled, "request cancelled")) {
		return false
	}
	f.conn.forget(f.id)
	return true
}

func (f *ResultFuture) handleResponse(m *ldap.Message) bool {
	result, ok := ldap.ResultOf(m.Op)
	if !ok {
		return false
	}
	f.complete(m, result)
	return true
}

func (f *ResultFuture) fail(err error) {
	f.complete(nil, ldap.NewErrorResult(ldap.ResultClientSideServerDown, err.Error()))
}

// complete is the single writer of the result.
func (f *ResultFuture) complete(m *ldap.Message, result ldap.Result) bool {
	f.mu.Lock()
	if f.IsDone() {
		f.mu.Unlock()
		return false
	}
	f.msg = m
	f.result = result
	close(f.done)
	f.mu.Unlock()

	if f.handler != nil {
		f.invoke(func() {
			msg, err := f.outcome()
			f.handler(msg, err)
		})
	}
	return true
}

// invoke queues task behind the callbacks already delivered. One drainer
// at a time runs the queue on the executor, so callbacks keep arrival order
// and never overlap, and a callback that completes the future only queues
// the result handler.
func (f *ResultFuture) invoke(task func()) {
	f.taskMu.Lock()
	f.tasks = append(f.tasks, task)
	start := f.sem.TryAcquire(1)
	f.taskMu.Unlock()

	if start {
		f.executor.Execute(f.drain)
	}
}

func (f *ResultFuture) drain() {
	for {
		f.taskMu.Lock()
		if len(f.tasks) == 0 {
			f.sem.Release(1)
			f.taskMu.Unlock()
			return
		}
		task := f.tasks[0]
		f.tasks[0] = nil
		f.tasks = f.tasks[1:]
		f.taskMu.Unlock()

		task()
	}
}
