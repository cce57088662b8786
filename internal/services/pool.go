package services

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultWorkers bounds concurrent renders across the whole process.
const DefaultWorkers = 3

// WorkerPool is the process-wide render capacity. Every render from every
// request holds one slot for as long as its renderer runs.
type WorkerPool struct {
	sem      *semaphore.Weighted
	size     int
	inUse    atomic.Int64
	onChange func(inUse int)
}

// NewWorkerPool returns a pool with size slots. onChange, if set, observes
// the number of held slots after every acquire and release.
func NewWorkerPool(size int, onChange func(inUse int)) *WorkerPool {
	if size <= 0 {
		size = DefaultWorkers
	}
	return &WorkerPool{sem: semaphore.NewWeighted(int64(size)), size: size, onChange: onChange}
}

// Acquire blocks until a slot is free or ctx is done.
func (p *WorkerPool) Acquire(ctx context.Context) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	p.changed(p.inUse.Add(1))
	return nil
}

// Release returns a slot taken by Acquire.
func (p *WorkerPool) Release() {
	n := p.inUse.Add(-1)
	p.sem.Release(1)
	p.changed(n)
}

// Size returns the pool capacity.
func (p *WorkerPool) Size() int { return p.size }

// InUse returns the number of held slots.
func (p *WorkerPool) InUse() int { return int(p.inUse.Load()) }

func (p *WorkerPool) changed(n int64) {
	if p.onChange != nil {
		p.onChange(int(n))
	}
}
