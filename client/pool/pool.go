package pool

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

type Job func(ctx context.Context) error

// WorkerPool runs jobs with at most maxWorkers in flight. Jobs do not share
// state through the pool; each one's outcome goes to its own callback.
type WorkerPool struct {
	sem    chan struct{}
	wg     sync.WaitGroup
	logger *zap.Logger
}

func NewWorkerPool(maxWorkers int, logger *zap.Logger) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerPool{
		sem:    make(chan struct{}, maxWorkers),
		logger: logger,
	}
}

// Submit schedules job and returns immediately. done receives the job's
// error, ctx.Err() if the job never got a slot, or a panic turned into an
// error. done may be nil.
func (p *WorkerPool) Submit(ctx context.Context, job Job, done func(error)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		var err error
		select {
		case p.sem <- struct{}{}:
			err = p.run(ctx, job)
			<-p.sem
		case <-ctx.Done():
			err = ctx.Err()
		}

		if done != nil {
			done(err)
		}
	}()
}

func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

func (p *WorkerPool) run(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Panic recovered", zap.Any("error", r))
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()

	return job(ctx)
}
