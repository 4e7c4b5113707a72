// Package dispatch runs background work on a bounded pool and hands every
// outcome to a single consumer, so state owned by that consumer is never
// touched from a worker goroutine.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"kasirinaja/desktop/internal/logger"
)

var ErrClosed = errors.New("dispatcher closed")

type Task func(ctx context.Context) (any, error)

type Outcome struct {
	Name     string
	Value    any
	Err      error
	Duration time.Duration
}

type Dispatcher struct {
	ctx     context.Context
	sem     *semaphore.Weighted
	results chan Outcome
	log     *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New returns a dispatcher running at most workers tasks at once. Tasks get
// ctx; cancelling it fails queued tasks with the context error.
func New(ctx context.Context, workers int, log *zap.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		ctx:     ctx,
		sem:     semaphore.NewWeighted(int64(workers)),
		results: make(chan Outcome, workers*4),
		log:     logger.OrNop(log),
	}
}

// Submit queues task and returns immediately. The consumer of Results must
// keep reading until the channel is closed.
func (d *Dispatcher) Submit(name string, task Task) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.wg.Add(1)
	go d.run(name, task)
	return nil
}

func (d *Dispatcher) run(name string, task Task) {
	defer d.wg.Done()

	if err := d.ctx.Err(); err != nil {
		d.results <- Outcome{Name: name, Err: err}
		return
	}
	if err := d.sem.Acquire(d.ctx, 1); err != nil {
		d.results <- Outcome{Name: name, Err: err}
		return
	}
	defer d.sem.Release(1)

	started := time.Now()
	value, err := task(d.ctx)
	elapsed := time.Since(started)
	if err != nil {
		d.log.Debug("task failed", zap.String("task", name), zap.Duration("elapsed", elapsed), zap.Error(err))
	}
	d.results <- Outcome{Name: name, Value: value, Err: err, Duration: elapsed}
}

func (d *Dispatcher) Results() <-chan Outcome {
	return d.results
}

// Close rejects further submissions, waits for queued and running tasks, then
// closes the results channel. It is safe to call more than once.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()
	close(d.results)
	return nil
}
