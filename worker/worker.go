package worker

import (
	"fmt"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/oomph-ac/contactsim/oerror"
	"go.uber.org/atomic"
)

// Pool is a fixed-size pool of goroutines executing submitted functions. A panic in a function is
// reported to Sentry and does not take the worker down.
type Pool struct {
	size  int
	queue chan func()

	wg     sync.WaitGroup
	closed atomic.Bool
}

// New returns a pool of size workers.
func New(size int) (*Pool, error) {
	if size <= 0 {
		return nil, oerror.New(oerror.ErrResourceCreation, "worker pool needs at least one worker, got %d", size)
	}
	p := &Pool{size: size, queue: make(chan func(), size)}
	p.wg.Add(size)
	for range size {
		go p.worker()
	}
	return p, nil
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for f := range p.queue {
		p.exec(f)
	}
}

func (p *Pool) exec(f func()) {
	defer func() {
		if err := recover(); err != nil {
			hub := sentry.CurrentHub().Clone()
			hub.Recover(oerror.New(nil, "worker crashed: %v", err))
			hub.Flush(time.Second * 5)
		}
	}()
	f()
}

// Size returns the amount of workers in the pool.
func (p *Pool) Size() int {
	return p.size
}

// Submit queues f to be executed by one of the workers. It blocks if every worker is busy and the
// queue is full. To be used by a function that may be CPU intensive.
func (p *Pool) Submit(f func()) error {
	if p.closed.Load() {
		return oerror.New(oerror.ErrResourceCreation, "submit on closed worker pool")
	}
	p.queue <- f
	return nil
}

// Run splits the range [0, n) into at most Size contiguous chunks and calls fn for every index, one
// chunk per worker. It blocks until every call returned and returns the first error encountered. A
// panicking call is converted into an error.
func (p *Pool) Run(n int, fn func(i int) error) error {
	if n == 0 {
		return nil
	}
	chunks := min(p.size, n)
	chunkLen := (n + chunks - 1) / chunks

	var (
		wg   sync.WaitGroup
		once sync.Once
		ferr error
	)
	fail := func(err error) {
		once.Do(func() { ferr = err })
	}
	for start := 0; start < n; start += chunkLen {
		end := min(start+chunkLen, n)
		wg.Add(1)
		err := p.Submit(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					hub := sentry.CurrentHub().Clone()
					hub.Recover(r)
					fail(fmt.Errorf("worker panic: %v", r))
				}
			}()
			for i := start; i < end; i++ {
				if err := fn(i); err != nil {
					fail(err)
					return
				}
			}
		})
		if err != nil {
			wg.Done()
			fail(err)
		}
	}
	wg.Wait()
	return ferr
}

// Close stops the workers once every queued function has been executed. Close must not be called
// while another goroutine is submitting.
func (p *Pool) Close() {
	if p.closed.CompareAndSwap(false, true) {
		close(p.queue)
		p.wg.Wait()
	}
}
