// Package worker provides the bounded pool used to fan extraction work
// out across azimuth groups.
package worker

import (
	"context"
	"sync"
)

// ProcessFunc handles one job. Returned errors are collected; the first
// one is reported by Stop.
type ProcessFunc[T any] func(ctx context.Context, job T) error

// Pool runs a fixed number of workers over a buffered job channel.
// Start, Submit and Stop must be called from the coordinating goroutine;
// workers themselves are internal.
type Pool[T any] struct {
	numWorkers int
	jobs       chan T
	processor  ProcessFunc[T]
	wg         sync.WaitGroup

	mu       sync.Mutex
	firstErr error
	failed   int
}

func NewPool[T any](numWorkers, bufferSize int, processor ProcessFunc[T]) *Pool[T] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Pool[T]{
		numWorkers: numWorkers,
		jobs:       make(chan T, bufferSize),
		processor:  processor,
	}
}

func (p *Pool[T]) Start(ctx context.Context) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

func (p *Pool[T]) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			if err := p.processor(ctx, job); err != nil {
				p.record(err)
			}
		}
	}
}

func (p *Pool[T]) record(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.firstErr == nil {
		p.firstErr = err
	}
	p.failed++
}

// Submit enqueues a job, blocking when the buffer is full. It returns
// the context error instead of blocking forever once the run is
// cancelled.
func (p *Pool[T]) Submit(ctx context.Context, job T) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.jobs <- job:
		return nil
	}
}

// Stop closes the queue, waits for the workers to drain it and returns
// the first processing error, if any.
func (p *Pool[T]) Stop() error {
	close(p.jobs)
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.firstErr
}

// Failed reports how many jobs returned an error. Valid after Stop.
func (p *Pool[T]) Failed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failed
}
