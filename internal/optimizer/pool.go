package optimizer

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// Job is one objective to solve against the pool's session
type Job struct {
	ID        int
	Objective Objective
}

// JobResult is the outcome of a Job
type JobResult struct {
	ID       int
	Result   Result
	Duration time.Duration
}

// WorkerPool runs objectives in parallel over one read-only session
type WorkerPool struct {
	session     *Session
	cash        float64
	workerCount int
	jobQueue    chan Job
	resultQueue chan JobResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewWorkerPool creates a pool; workerCount <= 0 uses the CPU count
func NewWorkerPool(ctx context.Context, session *Session, cash float64, workerCount, jobBufferSize int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		session:     session,
		cash:        cash,
		workerCount: workerCount,
		jobQueue:    make(chan Job, jobBufferSize),
		resultQueue: make(chan JobResult, jobBufferSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start launches the workers
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

// Stop waits for in-flight jobs and closes the result channel
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

// SubmitJob queues a job, failing once the pool's context is done
func (wp *WorkerPool) SubmitJob(job Job) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// Results returns the channel of completed jobs
func (wp *WorkerPool) Results() <-chan JobResult {
	return wp.resultQueue
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				return
			}

			start := time.Now()
			result := JobResult{
				ID:     job.ID,
				Result: wp.session.Optimize(job.Objective, wp.cash),
			}
			result.Duration = time.Since(start)

			select {
			case wp.resultQueue <- result:
			case <-wp.ctx.Done():
				return
			}

		case <-wp.ctx.Done():
			return
		}
	}
}

// OptimizeAll solves every objective concurrently and returns the results
// keyed by method. A later objective with the same method replaces an
// earlier one.
func OptimizeAll(ctx context.Context, session *Session, objectives []Objective, cash float64, workers int) (map[Method]Result, error) {
	results := make(map[Method]Result, len(objectives))
	if len(objectives) == 0 {
		return results, nil
	}

	pool := NewWorkerPool(ctx, session, cash, workers, len(objectives))
	pool.Start()

	for i, obj := range objectives {
		if err := pool.SubmitJob(Job{ID: i, Objective: obj}); err != nil {
			pool.Stop()
			return nil, err
		}
	}

	ordered := make([]Result, len(objectives))
	for received := 0; received < len(objectives); received++ {
		select {
		case r := <-pool.Results():
			ordered[r.ID] = r.Result
		case <-ctx.Done():
			pool.Stop()
			return nil, ctx.Err()
		}
	}
	pool.Stop()

	for _, r := range ordered {
		results[r.Method] = r
	}
	return results, nil
}
