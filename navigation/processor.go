package navigation

import (
	"context"
	"errors"
	"sync"

	"github.com/hupe1980/bucketgo/model"
	"github.com/hupe1980/bucketgo/resource"
)

var (
	// ErrClosed is returned when adding to or closing an already-closed
	// queue.
	ErrClosed = errors.New("navigation: queue closed")
)

// ProcessFunc applies the operation to one processing item. When the
// processor clones per step, op is the step's private clone.
type ProcessFunc[T any] func(ctx context.Context, op model.Operation, item T) error

// Options configure a Processor.
type Options struct {
	// CloneForStep clones the operation for every synchronous step.
	CloneForStep bool

	// CloneForAsync clones the operation for every asynchronous step.
	CloneForAsync bool

	// Controller bounds the number of concurrently running asynchronous
	// tasks when non-nil.
	Controller *resource.Controller
}

// Processor applies one operation to a FIFO queue of processing items.
//
// All methods are safe for concurrent use. The queue wait inside a step is
// the only blocking point; it is released by new items, by closing the
// queue, by Abort and by context cancellation.
type Processor[T any] struct {
	mu        sync.Mutex
	cond      *sync.Cond
	queue     []T
	closed    bool
	processed int

	opMu sync.Mutex // serializes clone merges into op
	op   model.Operation

	processFn ProcessFunc[T]
	opts      Options
}

// New creates an open processor. Items are enqueued via AddItem and the
// queue stays open until Close or Abort.
func New[T any](op model.Operation, processFn ProcessFunc[T], optFns ...func(o *Options)) *Processor[T] {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	p := &Processor[T]{
		op:        op,
		processFn: processFn,
		opts:      opts,
	}
	p.cond = sync.NewCond(&p.mu)

	return p
}

// NewBounded creates a processor pre-populated with items and immediately
// closed: its steps drain exactly the given items.
func NewBounded[T any](op model.Operation, processFn ProcessFunc[T], items []T, optFns ...func(o *Options)) *Processor[T] {
	p := New(op, processFn, optFns...)
	p.queue = append(p.queue, items...)
	p.closed = true
	return p
}

// Operation returns the processor's operation.
func (p *Processor[T]) Operation() model.Operation { return p.op }

// Processed returns the number of successfully processed items.
func (p *Processor[T]) Processed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processed
}

// Pending returns the number of queued, not yet dequeued items.
func (p *Processor[T]) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Finished reports whether the queue is closed and fully drained.
func (p *Processor[T]) Finished() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed && len(p.queue) == 0
}

// AddItem enqueues a processing item. It fails with ErrClosed once the
// queue is closed.
func (p *Processor[T]) AddItem(item T) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	p.queue = append(p.queue, item)
	p.cond.Signal()

	return nil
}

// Close marks the queue closed: queued items still get processed, new items
// are refused and blocked steps wake up. Closing twice fails with ErrClosed.
func (p *Processor[T]) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	p.closed = true
	p.cond.Broadcast()

	return nil
}

// Abort force-closes the queue and discards all unprocessed items. Blocked
// steps wake up and observe exhaustion. Aborting an already-closed
// processor only drops the remaining items.
func (p *Processor[T]) Abort() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	p.queue = nil
	p.cond.Broadcast()
}

// next blocks until an item is available or the queue is closed-and-empty.
// The closed flag is re-checked inside the wait loop, and context
// cancellation breaks the wait.
func (p *Processor[T]) next(ctx context.Context) (item T, ok bool, err error) {
	stop := context.AfterFunc(ctx, func() {
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	})
	defer stop()

	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.queue) == 0 && !p.closed {
		if ctx.Err() != nil {
			return item, false, ctx.Err()
		}
		p.cond.Wait()
	}
	if ctx.Err() != nil {
		return item, false, ctx.Err()
	}
	if len(p.queue) == 0 {
		return item, false, nil
	}

	item = p.queue[0]
	p.queue = p.queue[1:]

	return item, true, nil
}

// stepOperation returns the operation to hand to the step and whether it is
// a private clone that must be merged back.
func (p *Processor[T]) stepOperation(async bool) (model.Operation, bool) {
	clone := p.opts.CloneForStep
	if async {
		clone = p.opts.CloneForAsync
	}
	if clone {
		return p.op.Clone(), true
	}
	return p.op, false
}

// finishStep merges a clone's partial result back into the operation and
// counts the step.
func (p *Processor[T]) finishStep(stepOp model.Operation, isClone bool) error {
	if isClone {
		p.opMu.Lock()
		err := p.op.UpdateFrom(stepOp)
		p.opMu.Unlock()
		if err != nil {
			return err
		}
	}

	p.mu.Lock()
	p.processed++
	p.mu.Unlock()

	return nil
}

// ProcessStep dequeues one item and applies the operation to it inline.
//
// It blocks while the queue is empty but still open. The return value is
// false exactly when the queue is exhausted (closed and empty); that is the
// terminal signal, not an error. Context cancellation aborts the wait and
// is returned as the context's error.
func (p *Processor[T]) ProcessStep(ctx context.Context) (bool, error) {
	item, ok, err := p.next(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	stepOp, isClone := p.stepOperation(false)
	if err := p.processFn(ctx, stepOp, item); err != nil {
		return true, err
	}

	return true, p.finishStep(stepOp, isClone)
}

// ProcessAll drains the queue synchronously, returning the first step
// failure. The queue must already be closed, or be closed concurrently, for
// ProcessAll to return.
func (p *Processor[T]) ProcessAll(ctx context.Context) error {
	for {
		more, err := p.ProcessStep(ctx)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}
