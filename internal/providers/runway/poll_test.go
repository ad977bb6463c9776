package runway

import (
	"context"
	"testing"
	"time"

	"server/internal/domain"
)

func newPollClient(t *testing.T, doer Doer, maxAttempts int) (*Client, *[]time.Duration) {
	t.Helper()
	c, err := NewClient(Options{
		APIToken:        "token",
		BaseURL:         "http://api.test",
		HTTPClient:      doer,
		MaxPollAttempts: maxAttempts,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	delays := &[]time.Duration{}
	c.sleep = func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	return c, delays
}

func TestWaitForCompletionReturnsOnTerminalStatus(t *testing.T) {
	doer := newScriptedDoer()
	for i := 0; i < 3; i++ {
		doer.on("/tasks/job-1", stubResponse{body: map[string]any{"taskId": "job-1", "status": "RUNNING"}})
	}
	doer.on("/tasks/job-1", stubResponse{body: map[string]any{
		"taskId":    "job-1",
		"status":    "SUCCEEDED",
		"artifacts": []map[string]any{{"url": "https://x/video.mp4", "type": "video"}},
	}})
	client, _ := newPollClient(t, doer, 60)

	result, err := client.WaitForCompletion(context.Background(), "job-1", nil)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if result.Status != JobStatusCompleted {
		t.Fatalf("status = %q", result.Status)
	}
	if result.VideoURL != "https://x/video.mp4" {
		t.Fatalf("video url = %q", result.VideoURL)
	}
	if len(doer.requests) != 4 {
		t.Fatalf("polls = %d, want 4", len(doer.requests))
	}
}

func TestWaitForCompletionToleratesPollErrors(t *testing.T) {
	doer := newScriptedDoer()
	doer.on("/tasks/job-1", stubResponse{status: 500, body: map[string]any{"error": "flaky"}})
	doer.on("/tasks/job-1", stubResponse{body: map[string]any{"taskId": "job-1", "status": "SUCCEEDED", "artifacts": []map[string]any{{"url": "https://x/v.mp4"}}}})
	client, _ := newPollClient(t, doer, 60)

	result, err := client.WaitForCompletion(context.Background(), "job-1", nil)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if result.Status != JobStatusCompleted {
		t.Fatalf("status = %q after transient poll error", result.Status)
	}
}

func TestWaitForCompletionSoftTimeout(t *testing.T) {
	doer := newScriptedDoer()
	doer.on("/tasks/job-1", stubResponse{body: map[string]any{"taskId": "job-1", "status": "RUNNING"}})
	client, delays := newPollClient(t, doer, 5)

	result, err := client.WaitForCompletion(context.Background(), "job-1", nil)
	if err != nil {
		t.Fatalf("soft timeout must not be an error: %v", err)
	}
	if result.Status != JobStatusFailed {
		t.Fatalf("status = %q, want synthetic failed", result.Status)
	}
	if result.Error != domain.ErrPollTimeout.Error() {
		t.Fatalf("error = %q", result.Error)
	}
	if len(doer.requests) != 5 {
		t.Fatalf("polls = %d, want 5", len(doer.requests))
	}
	if len(*delays) != 5 {
		t.Fatalf("sleeps = %d, want 5", len(*delays))
	}
}

func TestWaitForCompletionProgressFallsBackToAttemptRatio(t *testing.T) {
	doer := newScriptedDoer()
	doer.on("/tasks/job-1", stubResponse{body: map[string]any{"taskId": "job-1", "status": "RUNNING"}})
	client, _ := newPollClient(t, doer, 4)

	var progress []float64
	result, _ := client.WaitForCompletion(context.Background(), "job-1", func(status string, p float64) {
		progress = append(progress, p)
	})
	if result.Status != JobStatusFailed {
		t.Fatalf("status = %q", result.Status)
	}
	want := []float64{0, 25, 50, 75}
	if len(progress) != len(want) {
		t.Fatalf("progress = %v", progress)
	}
	for i := range want {
		if progress[i] != want[i] {
			t.Fatalf("progress[%d] = %v, want %v", i, progress[i], want[i])
		}
	}
}

func TestWaitForCompletionUsesProviderProgress(t *testing.T) {
	doer := newScriptedDoer()
	doer.on("/tasks/job-1", stubResponse{body: map[string]any{"taskId": "job-1", "status": "RUNNING", "progressRatio": 0.5}})
	doer.on("/tasks/job-1", stubResponse{body: map[string]any{"taskId": "job-1", "status": "SUCCEEDED", "artifacts": []map[string]any{{"url": "https://x/v.mp4"}}}})
	client, _ := newPollClient(t, doer, 60)

	var first float64 = -1
	client.WaitForCompletion(context.Background(), "job-1", func(status string, p float64) {
		if first < 0 {
			first = p
		}
	})
	if first != 50 {
		t.Fatalf("first progress = %v, want 50", first)
	}
}

func TestWaitForCompletionStopsOnCanceledContext(t *testing.T) {
	doer := newScriptedDoer()
	doer.on("/tasks/job-1", stubResponse{body: map[string]any{"taskId": "job-1", "status": "RUNNING"}})
	client, _ := newPollClient(t, doer, 60)

	ctx, cancel := context.WithCancel(context.Background())
	client.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	if _, err := client.WaitForCompletion(ctx, "job-1", nil); err == nil {
		t.Fatalf("expected context error")
	}
}
