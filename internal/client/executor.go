package client

// Executor runs result handler callbacks.
type Executor interface {
	Execute(task func())
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(task func())

// Execute calls f(task).
func (f ExecutorFunc) Execute(task func()) { f(task) }

// InlineExecutor runs each callback on the goroutine that delivered the
// response, which keeps callbacks in arrival order.
var InlineExecutor Executor = ExecutorFunc(func(task func()) { task() })

// GoExecutor runs callbacks off the delivering goroutine. Callbacks of one
// future still run in arrival order and never overlap.
var GoExecutor Executor = ExecutorFunc(func(task func()) { go task() })
