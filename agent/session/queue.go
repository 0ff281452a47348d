package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	ErrQueueClosed = errors.New("session queue is closed")
	ErrQueueFull   = errors.New("session queue is full")
)

const defaultMaxPending = 32

// Job is one unit of work for a session.
type Job func(ctx context.Context)

// Queue runs jobs of the same key one at a time in arrival order. Each key
// gets a worker goroutine that exits once its backlog is empty.
type Queue struct {
	ctx        context.Context
	cancel     context.CancelFunc
	maxPending int

	mu      sync.Mutex
	pending map[string][]Job
	closed  bool
	wg      sync.WaitGroup
}

type QueueOption func(*Queue)

// WithMaxPending bounds the backlog per key.
func WithMaxPending(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.maxPending = n
		}
	}
}

// NewQueue derives job contexts from parent; cancelling parent cancels
// running and queued jobs.
func NewQueue(parent context.Context, opts ...QueueOption) *Queue {
	ctx, cancel := context.WithCancel(parent)
	q := &Queue{
		ctx:        ctx,
		cancel:     cancel,
		maxPending: defaultMaxPending,
		pending:    make(map[string][]Job),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(q)
		}
	}
	return q
}

func (q *Queue) Enqueue(key string, job Job) error {
	if job == nil {
		return errors.New("nil job")
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}

	backlog, running := q.pending[key]
	if len(backlog) >= q.maxPending {
		return fmt.Errorf("%w: %d jobs pending", ErrQueueFull, len(backlog))
	}
	q.pending[key] = append(backlog, job)
	if !running {
		q.wg.Add(1)
		go q.work(key)
	}
	return nil
}

func (q *Queue) work(key string) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		backlog := q.pending[key]
		if len(backlog) == 0 {
			delete(q.pending, key)
			q.mu.Unlock()
			return
		}
		job := backlog[0]
		q.pending[key] = backlog[1:]
		q.mu.Unlock()

		q.run(key, job)
	}
}

func (q *Queue) run(key string, job Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("session", key).Interface("panic", r).Msg("session job panicked")
		}
	}()
	job(q.ctx)
}

// Pending reports the backlog for key, excluding a job already running.
func (q *Queue) Pending(key string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending[key])
}

// Close stops accepting jobs and waits for queued ones to finish. When ctx
// expires first, running jobs are cancelled and ctx.Err is returned.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		return ctx.Err()
	}
}
