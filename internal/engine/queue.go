package engine

import "sync"

// OpQueue serializes the operations of a single controller. Each controller
// owns its own queue and worker goroutine, so one controller's blocking wait
// never stalls another controller's operations. The backlog is unbounded;
// Post never blocks the caller.
type OpQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	jobs   []opJob
	closed bool
	wg     sync.WaitGroup
}

type opJob struct {
	run     func() Outcome
	pending *Pending
}

// NewOpQueue starts a queue with one worker. depth sizes the initial
// backlog capacity; the queue grows past it as needed.
func NewOpQueue(depth int) *OpQueue {
	if depth <= 0 {
		depth = 16
	}
	q := &OpQueue{jobs: make([]opJob, 0, depth)}
	q.cond = sync.NewCond(&q.mu)
	q.wg.Add(1)
	go q.worker()
	return q
}

func (q *OpQueue) worker() {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		for len(q.jobs) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.jobs) == 0 {
			q.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		q.mu.Unlock()
		job.pending.Resolve(job.run())
	}
}

// Post enqueues run and returns immediately. The returned Pending resolves
// with run's outcome once the worker reaches it, or with a failure outcome
// if the queue is already closed.
func (q *OpQueue) Post(run func() Outcome) *Pending {
	p := NewPending()
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		p.Resolve(Failure())
		return p
	}
	q.jobs = append(q.jobs, opJob{run: run, pending: p})
	q.cond.Signal()
	q.mu.Unlock()
	return p
}

// Close stops the worker after draining queued jobs. Posts after Close
// resolve as failures.
func (q *OpQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
	q.wg.Wait()
}
