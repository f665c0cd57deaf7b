package navigation

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/bucketgo/model"
)

// Task is one dequeued processing step packaged for execution on another
// goroutine. Run executes it; Wait blocks until a Run call finished.
type Task[T any] struct {
	p       *Processor[T]
	item    T
	op      model.Operation
	isClone bool
	release func()
	done    chan struct{}
	err     error
}

// Run executes the step: it applies the operation to the item, merges a
// clone's partial result back and releases the background slot. Run must be
// called exactly once.
func (t *Task[T]) Run(ctx context.Context) error {
	defer close(t.done)
	if t.release != nil {
		defer t.release()
	}

	if err := t.p.processFn(ctx, t.op, t.item); err != nil {
		t.err = err
		return err
	}

	t.err = t.p.finishStep(t.op, t.isClone)

	return t.err
}

// Wait blocks until Run completed and returns its result.
func (t *Task[T]) Wait() error {
	<-t.done
	return t.err
}

// ProcessStepAsync dequeues one item and returns it as a deferred task to
// be run on a separate goroutine. A nil task signals queue exhaustion.
//
// When a resource controller is configured, the background slot is acquired
// here, so the caller may not observe more in-flight tasks than the
// controller allows; the slot is released when the task's Run finishes.
func (p *Processor[T]) ProcessStepAsync(ctx context.Context) (*Task[T], error) {
	item, ok, err := p.next(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var release func()
	if p.opts.Controller != nil {
		if err := p.opts.Controller.AcquireBackground(ctx); err != nil {
			// The item is already dequeued; put the failure on the caller
			// without losing the slot accounting.
			return nil, err
		}
		release = p.opts.Controller.ReleaseBackground
	}

	stepOp, isClone := p.stepOperation(true)

	return &Task[T]{
		p:       p,
		item:    item,
		op:      stepOp,
		isClone: isClone,
		release: release,
		done:    make(chan struct{}),
	}, nil
}

// ProcessAllAsync drains the queue by submitting every step to the worker
// pool and waits for all of them. The first step failure wins; remaining
// started steps still run to completion before it is returned.
func (p *Processor[T]) ProcessAllAsync(ctx context.Context, pool *WorkerPool) error {
	g, ctx := errgroup.WithContext(ctx)

	for {
		task, err := p.ProcessStepAsync(ctx)
		if err != nil {
			// A failed step already canceled ctx; report that step's error
			// rather than the cancellation it caused.
			if werr := g.Wait(); werr != nil {
				return werr
			}
			return err
		}
		if task == nil {
			break
		}

		if err := pool.Submit(ctx, func() { _ = task.Run(ctx) }); err != nil {
			if werr := g.Wait(); werr != nil {
				return werr
			}
			return err
		}
		g.Go(task.Wait)
	}

	return g.Wait()
}
