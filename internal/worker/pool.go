package worker

import (
	"context"
	"sync"
)

// Job is a unit of work, such as one source to analyse
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is the outcome of a job
type Result interface {
	GetError() error
}

// Pool runs jobs on a fixed number of workers
type Pool struct {
	workers  int
	onResult func(Result)
}

// NewPool creates a pool; workers below 1 become 1
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{workers: workers}
}

// OnResult registers fn to be called for each result as it arrives.
// Calls happen on the collecting goroutine, one at a time.
func (p *Pool) OnResult(fn func(Result)) *Pool {
	p.onResult = fn
	return p
}

// Run executes jobs and returns their results in job order. Jobs that never
// started are left out. OnResult sees results as they complete.
// Once ctx is done no further jobs start; jobs already running see the cancelled ctx.
func (p *Pool) Run(ctx context.Context, jobs []Job) []Result {
	type indexed struct {
		pos    int
		result Result
	}

	queue := make(chan int)
	results := make(chan indexed, p.workers)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pos := range queue {
				if ctx.Err() != nil {
					continue
				}
				results <- indexed{pos: pos, result: jobs[pos].Execute(ctx)}
			}
		}()
	}

	go func() {
		defer close(queue)
		for pos := range jobs {
			select {
			case <-ctx.Done():
				return
			case queue <- pos:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	slots := make([]Result, len(jobs))
	for r := range results {
		if p.onResult != nil {
			p.onResult(r.result)
		}
		slots[r.pos] = r.result
	}

	ordered := slots[:0]
	for _, r := range slots {
		if r != nil {
			ordered = append(ordered, r)
		}
	}
	return ordered
}
