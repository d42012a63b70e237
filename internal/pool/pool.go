// Package pool provides a fixed-size worker pool with a completion barrier.
//
// Workers are started once by New and live until Close. Wait blocks until
// every enqueued task has been taken off the queue and has finished running,
// so a caller can fan out work and then rely on all of its writes:
//
//	p := pool.New(0)
//	defer p.Close()
//	for _, r := range ranges {
//	    r := r
//	    p.Enqueue(func() { process(r) })
//	}
//	p.Wait()
//
// Close drops tasks that have not started, waits for running ones, and
// reports how many were dropped. Enqueue after Close and a second Close are
// programming errors and panic.
package pool

import (
	"runtime"
	"sync"
)

// fallbackSize is used when the CPU count cannot be determined.
const fallbackSize = 4

type Task func()

type Pool struct {
	mu   sync.Mutex
	work *sync.Cond
	idle *sync.Cond

	tasks  []Task
	head   int
	active int
	closed bool

	size int
	wg   sync.WaitGroup
}

// DefaultSize is the number of CPUs usable by the process.
func DefaultSize() int {
	n := runtime.NumCPU()
	if n < 1 {
		return fallbackSize
	}
	return n
}

// New starts size workers, or DefaultSize() workers when size < 1.
func New(size int) *Pool {
	if size < 1 {
		size = DefaultSize()
	}

	p := &Pool{size: size}
	p.work = sync.NewCond(&p.mu)
	p.idle = sync.NewCond(&p.mu)

	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) Size() int { return p.size }

func (p *Pool) pending() int { return len(p.tasks) - p.head }

func (p *Pool) dequeue() Task {
	t := p.tasks[p.head]
	p.tasks[p.head] = nil
	p.head++
	if p.head == len(p.tasks) {
		p.tasks = p.tasks[:0]
		p.head = 0
	}
	return t
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for !p.closed && p.pending() == 0 {
			p.work.Wait()
		}
		if p.closed {
			p.mu.Unlock()
			return
		}
		task := p.dequeue()
		p.active++
		p.mu.Unlock()

		task()

		p.mu.Lock()
		p.active--
		if p.active == 0 && p.pending() == 0 {
			p.idle.Broadcast()
		}
		p.mu.Unlock()
	}
}

// Enqueue queues t and wakes one idle worker.
func (p *Pool) Enqueue(t Task) {
	if t == nil {
		panic("pool: nil task")
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		panic("pool: enqueue on closed pool")
	}
	p.tasks = append(p.tasks, t)
	p.mu.Unlock()

	p.work.Signal()
}

// Wait blocks until the queue is empty and no task is running.
func (p *Pool) Wait() {
	p.mu.Lock()
	for p.pending() > 0 || p.active > 0 {
		p.idle.Wait()
	}
	p.mu.Unlock()
}

// Close stops the workers and returns the number of queued tasks that were
// dropped without running.
func (p *Pool) Close() int {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		panic("pool: Close called twice")
	}
	p.closed = true
	dropped := p.pending()
	for i := p.head; i < len(p.tasks); i++ {
		p.tasks[i] = nil
	}
	p.tasks = p.tasks[:0]
	p.head = 0
	p.mu.Unlock()

	p.work.Broadcast()
	p.wg.Wait()

	p.mu.Lock()
	p.idle.Broadcast()
	p.mu.Unlock()

	return dropped
}

func (p *Pool) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
