package imaging

import (
	"context"
	"runtime"

	"pictogram/internal/observability"

	"golang.org/x/sync/semaphore"
)

// Pool bounds the number of images rendered concurrently so CPU-bound
// resizing cannot starve request handling.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool returns a pool with the given number of slots; workers <= 0 uses GOMAXPROCS.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{sem: semaphore.NewWeighted(int64(workers))}
}

// Render waits for a free slot, or for ctx to end, and renders data to p.
func (p *Pool) Render(ctx context.Context, data []byte, preset Preset) (*Rendition, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	observability.ImageWorkersBusy.Inc()
	defer func() {
		observability.ImageWorkersBusy.Dec()
		p.sem.Release(1)
	}()
	return Render(data, preset)
}
