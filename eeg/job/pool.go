package job

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-eeg/eeg"
)

var (
	// ErrJobInFlight is returned when a job id is submitted while a worker
	// still owns it.
	ErrJobInFlight = errors.New("job: already in flight")
	// ErrPoolClosed is returned by Submit after Close.
	ErrPoolClosed = errors.New("job: pool closed")
	// ErrUnknownJob is returned for ids the pool has never seen.
	ErrUnknownJob = errors.New("job: unknown id")
)

type entry struct {
	job  *Job
	done chan struct{}
	err  error
}

// Pool runs submitted jobs on a bounded number of workers. Each job id has at
// most one owner at a time.
type Pool struct {
	runner *Runner
	g      errgroup.Group
	wg     sync.WaitGroup

	mu     sync.Mutex
	jobs   map[uuid.UUID]*entry
	closed bool
}

// NewPool returns a pool running at most workers jobs concurrently.
func NewPool(r *Runner, workers int) *Pool {
	p := &Pool{runner: r, jobs: make(map[uuid.UUID]*entry)}
	p.g.SetLimit(max(workers, 1))
	return p
}

// Submit hands j to a worker. It blocks while every worker is busy. The
// context is passed to the source and sink; cancelling it does not interrupt
// the filtering stages.
func (p *Pool) Submit(ctx context.Context, j *Job, src eeg.Source) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	if e, ok := p.jobs[j.ID()]; ok {
		select {
		case <-e.done:
		default:
			p.mu.Unlock()
			return ErrJobInFlight
		}
	}
	e := &entry{job: j, done: make(chan struct{})}
	p.jobs[j.ID()] = e
	p.wg.Add(1)
	p.mu.Unlock()

	p.g.Go(func() error {
		defer p.wg.Done()
		defer close(e.done)
		e.err = p.runner.Execute(context.WithoutCancel(ctx), j, src)
		return nil
	})
	return nil
}

// Lookup returns a snapshot of a submitted job.
func (p *Pool) Lookup(id uuid.UUID) (Snapshot, bool) {
	p.mu.Lock()
	e, ok := p.jobs[id]
	p.mu.Unlock()
	if !ok {
		return Snapshot{}, false
	}
	return e.job.Snapshot(), true
}

// Wait blocks until the job finishes or ctx is done. Giving up on the wait
// leaves the worker running. The returned error is the worker's misuse or
// sink error, or ctx.Err().
func (p *Pool) Wait(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	p.mu.Lock()
	e, ok := p.jobs[id]
	p.mu.Unlock()
	if !ok {
		return Snapshot{}, ErrUnknownJob
	}

	select {
	case <-e.done:
		return e.job.Snapshot(), e.err
	case <-ctx.Done():
		return e.job.Snapshot(), ctx.Err()
	}
}

// Close stops accepting jobs and waits for running ones to finish.
func (p *Pool) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
	return p.g.Wait()
}
