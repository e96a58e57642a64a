package taskpool

import (
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// Pool is a bounded worker pool for fan-out work. The materializer submits
// one job per follower through it so a post by a heavily-followed author
// can't spawn an unbounded goroutine burst.
type Pool struct {
	pool   *ants.Pool
	logger *zap.Logger
}

// New creates a pool with the given size
func New(size int, logger *zap.Logger) (*Pool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, err := ants.NewPool(size, ants.WithPanicHandler(func(p interface{}) {
		logger.Error("task panicked", zap.Any("panic", p), zap.Stack("stack"))
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	return &Pool{pool: pool, logger: logger}, nil
}

// Submit schedules fn on the pool, blocking if all workers are busy
func (p *Pool) Submit(fn func()) error {
	if p.pool.IsClosed() {
		return fmt.Errorf("worker pool is closed")
	}
	return p.pool.Submit(fn)
}

// Map runs fn for every item index in [0, n) on the pool and waits for all of
// them. The first error is returned; the remaining jobs still run.
func (p *Pool) Map(n int, fn func(i int) error) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		if err := p.Submit(func() {
			defer wg.Done()
			if err := fn(i); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}); err != nil {
			wg.Done()
			return err
		}
	}

	wg.Wait()
	return firstErr
}

// Release stops the pool and frees its workers
func (p *Pool) Release() {
	p.pool.Release()
}

// Running returns the number of busy workers
func (p *Pool) Running() int {
	return p.pool.Running()
}
