package mocks

import (
	"sync"

	"github.com/stretchr/testify/mock"

	"go.loomcache.dev/loom/spec/topology"
)

type Executor struct {
	mock.Mock
}

var _ topology.Executor = (*Executor)(nil)

func (e *Executor) Submit(task func()) error {
	args := e.Called(task)
	return args.Error(0)
}

// SerialExecutor collects submitted tasks and runs them when the test asks,
// making the asynchronous rebalance path deterministic.
type SerialExecutor struct {
	mu    sync.Mutex
	tasks []func()
}

var _ topology.Executor = (*SerialExecutor)(nil)

func (e *SerialExecutor) Submit(task func()) error {
	e.mu.Lock()
	e.tasks = append(e.tasks, task)
	e.mu.Unlock()
	return nil
}

// Drain runs queued tasks, including any queued by the tasks themselves,
// and reports how many ran.
func (e *SerialExecutor) Drain() int {
	ran := 0
	for {
		e.mu.Lock()
		if len(e.tasks) == 0 {
			e.mu.Unlock()
			return ran
		}
		task := e.tasks[0]
		e.tasks = e.tasks[1:]
		e.mu.Unlock()
		task()
		ran++
	}
}

// Pending reports how many tasks are queued without running them.
func (e *SerialExecutor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tasks)
}
