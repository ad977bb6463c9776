package queue

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"server/internal/infra"
)

func newTestQueue() (*Queue, *delayRecorder) {
	logger := infra.Logger(zerolog.New(io.Discard))
	q := New(context.Background(), logger)
	rec := &delayRecorder{}
	q.sleep = rec.sleep
	return q, rec
}

type delayRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *delayRecorder) sleep(d time.Duration) {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
}

func (r *delayRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

func TestRetryBacksOffThenSucceeds(t *testing.T) {
	q, rec := newTestQueue()

	var runs int32
	done := make(chan struct{})
	q.Enqueue(func(ctx context.Context) Outcome {
		n := atomic.AddInt32(&runs, 1)
		if n <= 2 {
			return Retry
		}
		close(done)
		return Done
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("item never succeeded")
	}
	waitFor(t, func() bool { return q.Len() == 0 })

	delays := rec.recorded()
	want := []time.Duration{1 * time.Second, 2 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Fatalf("delay[%d] = %v, want %v", i, delays[i], want[i])
		}
	}
	if got := atomic.LoadInt32(&runs); got != 3 {
		t.Fatalf("runs = %d, want 3", got)
	}
}

func TestItemExceedingRetryBudgetIsDropped(t *testing.T) {
	q, rec := newTestQueue()

	var runs int32
	q.Enqueue(func(ctx context.Context) Outcome {
		atomic.AddInt32(&runs, 1)
		return Retry
	})

	waitFor(t, func() bool { return q.Len() == 0 })

	// Initial run plus 5 retries, then dropped without a 7th attempt.
	if got := atomic.LoadInt32(&runs); got != 6 {
		t.Fatalf("runs = %d, want 6", got)
	}
	if got := len(rec.recorded()); got != 5 {
		t.Fatalf("backoffs = %d, want 5", got)
	}
	time.Sleep(20 * time.Millisecond)
	if got := atomic.LoadInt32(&runs); got != 6 {
		t.Fatalf("dropped item re-attempted, runs = %d", got)
	}
}

func TestBackoffIsCapped(t *testing.T) {
	if d := backoff(1); d != 1*time.Second {
		t.Fatalf("backoff(1) = %v", d)
	}
	if d := backoff(5); d != 16*time.Second {
		t.Fatalf("backoff(5) = %v", d)
	}
	if d := backoff(6); d != 30*time.Second {
		t.Fatalf("backoff(6) = %v", d)
	}
}

func TestFullPausesUntilNextEnqueue(t *testing.T) {
	q, _ := newTestQueue()

	var first int32
	q.Enqueue(func(ctx context.Context) Outcome {
		if atomic.AddInt32(&first, 1) == 1 {
			return Full
		}
		return Done
	})

	waitFor(t, func() bool { return atomic.LoadInt32(&first) == 1 })
	time.Sleep(20 * time.Millisecond)
	if got := atomic.LoadInt32(&first); got != 1 {
		t.Fatalf("paused queue kept running, runs = %d", got)
	}
	if q.Len() != 1 {
		t.Fatalf("paused item should stay queued, len = %d", q.Len())
	}

	// The next enqueue clears the pause; the stalled head runs first.
	var second int32
	q.Enqueue(func(ctx context.Context) Outcome {
		atomic.AddInt32(&second, 1)
		return Done
	})

	waitFor(t, func() bool { return q.Len() == 0 })
	if got := atomic.LoadInt32(&first); got != 2 {
		t.Fatalf("head item not re-run after reset, runs = %d", got)
	}
	if got := atomic.LoadInt32(&second); got != 1 {
		t.Fatalf("second item runs = %d, want 1", got)
	}
}

func TestItemsRunOneAtATimeInOrder(t *testing.T) {
	q, _ := newTestQueue()

	var mu sync.Mutex
	var order []int
	var active, maxActive int32

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		i := i
		wg.Add(1)
		q.Enqueue(func(ctx context.Context) Outcome {
			defer wg.Done()
			n := atomic.AddInt32(&active, 1)
			if n > atomic.LoadInt32(&maxActive) {
				atomic.StoreInt32(&maxActive, n)
			}
			time.Sleep(time.Millisecond)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			atomic.AddInt32(&active, -1)
			return Done
		})
	}
	wg.Wait()
	waitFor(t, func() bool { return q.Len() == 0 })

	if atomic.LoadInt32(&maxActive) != 1 {
		t.Fatalf("max concurrent items = %d, want 1", maxActive)
	}
	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		if v != i {
			t.Fatalf("execution order = %v", order)
		}
	}
}

func TestPanickingItemIsRetried(t *testing.T) {
	q, rec := newTestQueue()

	var runs int32
	done := make(chan struct{})
	q.Enqueue(func(ctx context.Context) Outcome {
		if atomic.AddInt32(&runs, 1) == 1 {
			panic("boom")
		}
		close(done)
		return Done
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("panicked item never retried")
	}
	if got := len(rec.recorded()); got != 1 {
		t.Fatalf("backoffs = %d, want 1", got)
	}
}

func TestClearDiscardsPendingItems(t *testing.T) {
	q, _ := newTestQueue()

	release := make(chan struct{})
	started := make(chan struct{})
	q.Enqueue(func(ctx context.Context) Outcome {
		close(started)
		<-release
		return Done
	})
	<-started

	var second int32
	q.Enqueue(func(ctx context.Context) Outcome {
		atomic.AddInt32(&second, 1)
		return Done
	})

	q.Clear()
	close(release)

	waitFor(t, func() bool { return q.Len() == 0 })
	time.Sleep(20 * time.Millisecond)
	if atomic.LoadInt32(&second) != 0 {
		t.Fatalf("cleared item still ran")
	}
}
