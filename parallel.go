package rendezvous

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Outcome is the result of one task submitted to an Executor.
type Outcome struct {
	Value any
	Err   error
}

// Executor runs tasks with bounded concurrency and reports each task's
// result on its own channel.
type Executor interface {
	Submit(task func() (any, error)) <-chan Outcome
}

// WorkerPoolExecutor is an Executor backed by an errgroup.Group capped
// with SetLimit: at most n tasks run concurrently, and Submit blocks
// the calling goroutine (the dispatcher feeding it, not the task
// itself) until a slot is free.
type WorkerPoolExecutor struct {
	g *errgroup.Group
}

// NewWorkerPoolExecutor builds an executor that runs at most n tasks
// concurrently.
func NewWorkerPoolExecutor(n int) *WorkerPoolExecutor {
	g := &errgroup.Group{}
	g.SetLimit(n)
	return &WorkerPoolExecutor{g: g}
}

// Submit runs task once a worker slot is free, reporting its result on
// the returned channel exactly once. Task errors are carried in
// Outcome, not returned to the underlying errgroup, so one failing
// task never cancels its siblings.
func (e *WorkerPoolExecutor) Submit(task func() (any, error)) <-chan Outcome {
	result := make(chan Outcome, 1)
	e.g.Go(func() error {
		v, err := task()
		result <- Outcome{Value: v, Err: err}
		return nil
	})
	return result
}

type pipeConfig struct {
	variant  Variant
	capacity int
}

// PipeOption configures the output channel of a parallel pipe.
type PipeOption func(*pipeConfig)

// WithPipeBuffer sets the output channel's buffer policy.
func WithPipeBuffer(variant Variant, capacity int) PipeOption {
	return func(c *pipeConfig) {
		c.variant = variant
		c.capacity = capacity
	}
}

// ParallelPipe reads values from in, applies f to each with up to n
// concurrent workers, and writes the results to the returned channel
// in the same order they were read from in — a task that finishes
// late still blocks later results from being emitted ahead of it.
// The pipe stops, without draining in, the moment f returns an error,
// a write to the output fails, or ctx is done.
func ParallelPipe(ctx context.Context, in *Chan, n int, f func(any) (any, error), opts ...PipeOption) *Chan {
	cfg := pipeConfig{variant: Unbuffered}
	for _, opt := range opts {
		opt(&cfg)
	}
	out := NewChan(WithBuffer(cfg.variant, cfg.capacity))
	exec := NewWorkerPoolExecutor(n)
	order := make(chan (<-chan Outcome), MaxOpQueueSize)
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(order)
		for {
			val, ok, err := in.Get(ctx)
			if err != nil || !ok {
				return
			}
			v := val
			resCh := exec.Submit(func() (any, error) { return f(v) })
			select {
			case order <- resCh:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		defer out.Close()
		// stop the reader too, so in is not drained after the output ends.
		defer cancel()
		for resCh := range order {
			select {
			case res := <-resCh:
				if res.Err != nil {
					return
				}
				if delivered, err := out.Put(ctx, res.Value); err != nil || !delivered {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// ParallelPipeUnordered is ParallelPipe without the ordering guarantee:
// results are emitted as soon as each task completes, in whatever
// order that happens to be. Unlike ParallelPipe it does not stop on a
// task error or a failed write: a result whose task returned an error
// is dropped, and reading continues until in closes or ctx is done.
func ParallelPipeUnordered(ctx context.Context, in *Chan, n int, f func(any) (any, error), opts ...PipeOption) *Chan {
	cfg := pipeConfig{variant: Unbuffered}
	for _, opt := range opts {
		opt(&cfg)
	}
	out := NewChan(WithBuffer(cfg.variant, cfg.capacity))
	exec := NewWorkerPoolExecutor(n)

	go func() {
		var wg sync.WaitGroup
		defer func() {
			wg.Wait()
			out.Close()
		}()
		for {
			val, ok, err := in.Get(ctx)
			if err != nil || !ok {
				return
			}
			v := val
			resCh := exec.Submit(func() (any, error) { return f(v) })
			wg.Add(1)
			go func() {
				defer wg.Done()
				select {
				case res := <-resCh:
					if res.Err == nil {
						out.Put(ctx, res.Value)
					}
				case <-ctx.Done():
				}
			}()
		}
	}()

	return out
}
