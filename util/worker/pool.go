package worker

import (
	"sync"

	"go.uber.org/atomic"

	"go.loomcache.dev/loom/spec/topology"
)

// Pool is a fixed-size executor for rebalance decision jobs. Submit never
// blocks: when every worker is busy and the queue is full, the task runs on
// its own goroutine instead. Stop drains queued tasks before returning.
type Pool struct {
	tasks   chan func()
	stopCh  chan struct{}
	wg      sync.WaitGroup
	stopped atomic.Bool
}

var _ topology.Executor = (*Pool)(nil)

func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		tasks:  make(chan func(), size*8),
		stopCh: make(chan struct{}),
	}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for {
		select {
		case task := <-p.tasks:
			task()
		case <-p.stopCh:
			for {
				select {
				case task := <-p.tasks:
					task()
				default:
					return
				}
			}
		}
	}
}

func (p *Pool) Submit(task func()) error {
	if p.stopped.Load() {
		return topology.ErrExecutorStopped
	}
	select {
	case p.tasks <- task:
	default:
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			task()
		}()
	}
	return nil
}

func (p *Pool) Stop() {
	if p.stopped.CompareAndSwap(false, true) {
		close(p.stopCh)
		p.wg.Wait()
	}
}
