package inference

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"go.uber.org/zap"
)

var ErrPoolStopped = errors.New("inference pool stopped")

// Pool runs inference processes. With a worker limit, calls beyond it queue
// until a worker frees up; without one every call starts its own process
// immediately. Stop kills whatever is still running.
type Pool struct {
	wp      *workerpool.WorkerPool
	runner  *Runner
	timeout time.Duration
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	stopped  bool
	inflight sync.WaitGroup
}

type poolResult struct {
	result *Result
	err    error
}

// NewPool creates a pool of maxWorkers; zero means unbounded. A zero timeout
// lets every process run until it exits, its caller goes away or the pool
// is stopped.
func NewPool(runner *Runner, maxWorkers int, timeout time.Duration) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	p := &Pool{
		runner:  runner,
		timeout: timeout,
		logger:  runner.logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	if maxWorkers > 0 {
		p.wp = workerpool.New(maxWorkers)
	}

	return p
}

// Run queues the command and waits for its result. A job whose context ends
// while it is still queued is never started.
func (p *Pool) Run(ctx context.Context, command Command) (*Result, error) {
	done := make(chan poolResult, 1)

	if err := p.submit(func() { done <- p.run(ctx, command) }); err != nil {
		return nil, err
	}

	if waiting := p.Waiting(); waiting > 0 {
		p.logger.Debug("inference call queued", zap.Int("waiting", waiting))
	}

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
	}
}

func (p *Pool) submit(job func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}

	p.inflight.Add(1)
	task := func() {
		defer p.inflight.Done()
		job()
	}

	if p.wp == nil {
		go task()
	} else {
		p.wp.Submit(task)
	}
	return nil
}

func (p *Pool) run(ctx context.Context, command Command) poolResult {
	if err := ctx.Err(); err != nil {
		return poolResult{err: fmt.Errorf("%w: %w", ErrInterrupted, err)}
	}
	if p.ctx.Err() != nil {
		return poolResult{err: fmt.Errorf("%w: %w", ErrInterrupted, ErrPoolStopped)}
	}

	runCtx, cancel := p.withTimeout(ctx)
	defer cancel()

	// stopping the pool kills the process as well
	stop := context.AfterFunc(p.ctx, cancel)
	defer stop()

	result, err := p.runner.Run(runCtx, command)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		err = fmt.Errorf("%w after %s", ErrTimeout, p.timeout)
	}

	return poolResult{result: result, err: err}
}

func (p *Pool) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout > 0 {
		return context.WithTimeout(ctx, p.timeout)
	}

	return context.WithCancel(ctx)
}

// Waiting returns the number of queued calls not yet started.
func (p *Pool) Waiting() int {
	if p.wp == nil {
		return 0
	}

	return p.wp.WaitingQueueSize()
}

// Stop rejects new calls, kills running processes and waits for every
// submitted call to return.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	p.cancel()
	if p.wp != nil {
		p.wp.StopWait()
	}
	p.inflight.Wait()
}
