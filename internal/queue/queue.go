// Package queue provides a generic single-worker execution queue for
// functions that must run strictly one at a time, with bounded retries and
// an external "full" back-pressure signal.
package queue

import (
	"context"
	"sync"
	"time"

	"server/internal/infra"
)

// Outcome is the control signal an enqueued function returns.
type Outcome int

const (
	// Done dequeues the item; the next item runs immediately.
	Done Outcome = iota
	// Retry re-queues the same item with an exponential backoff delay.
	Retry
	// Full pauses the whole queue until the next Enqueue resets it. Used
	// when an external capacity signal says no slot is available.
	Full
)

// Func is a deferred invocation. A panicking Func is treated as Retry.
type Func func(ctx context.Context) Outcome

const (
	maxRetries = 5
	baseDelay  = 1 * time.Second
	maxDelay   = 30 * time.Second
)

type item struct {
	fn      Func
	retries int
}

// Queue executes enqueued functions one at a time in FIFO order. Items that
// exceed the retry budget are dropped with a warning; the enqueuer is never
// notified (fire-and-forget).
type Queue struct {
	ctx    context.Context
	logger infra.Logger

	mu      sync.Mutex
	items   []*item
	running bool
	full    bool

	// sleep is swapped out in tests to observe backoff without waiting.
	sleep func(d time.Duration)
}

// New constructs an empty queue. ctx is handed to every executed function.
func New(ctx context.Context, logger infra.Logger) *Queue {
	return &Queue{ctx: ctx, logger: logger, sleep: time.Sleep}
}

// Enqueue adds fn to the queue and starts the worker if idle. It also
// clears a previous Full pause, so a paused queue resumes on new work.
func (q *Queue) Enqueue(fn Func) {
	q.mu.Lock()
	q.full = false
	q.items = append(q.items, &item{fn: fn})
	q.mu.Unlock()
	go q.drain()
}

// Len reports the number of queued items, including the running one.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear discards all queued items. A running item finishes normally.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
}

// drain is the single worker loop. At most one drain runs at a time.
func (q *Queue) drain() {
	q.mu.Lock()
	if q.running || q.full || len(q.items) == 0 {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()

	for {
		q.mu.Lock()
		if q.full || len(q.items) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		it := q.items[0]
		q.mu.Unlock()

		switch q.run(it) {
		case Full:
			q.mu.Lock()
			q.full = true
			q.running = false
			q.mu.Unlock()
			q.logger.Info().Msg("queue: provider slot full, pausing")
			return
		case Retry:
			it.retries++
			if it.retries > maxRetries {
				q.logger.Warn().Int("retries", it.retries).Msg("queue: dropping item after max retries")
				q.remove(it)
				continue
			}
			delay := backoff(it.retries)
			q.logger.Info().Int("retry", it.retries).Dur("delay", delay).Msg("queue: retrying item")
			q.sleep(delay)
		default:
			q.remove(it)
		}
	}
}

// run executes the item, converting a panic into Retry.
func (q *Queue) run(it *item) (outcome Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			q.logger.Error().Msgf("queue: item panicked: %v", rec)
			outcome = Retry
		}
	}()
	return it.fn(q.ctx)
}

func (q *Queue) remove(target *item) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, it := range q.items {
		if it == target {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return
		}
	}
}

// backoff doubles per attempt, capped at maxDelay: 1s, 2s, 4s, ...
func backoff(retries int) time.Duration {
	d := baseDelay << (retries - 1)
	if d > maxDelay {
		return maxDelay
	}
	return d
}
