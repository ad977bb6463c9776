// Package task owns the in-process task registry and the orchestration
// routine that drives each task through its lifecycle.
package task

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"server/internal/domain"
)

// Registry is the shared set of in-flight and finished tasks. The
// orchestration routine bound to a task id is the sole writer of that task;
// readers always receive consistent snapshots. Tasks live for the process
// lifetime and are never deleted.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*domain.Task)}
}

// Create registers a new pending task and returns its id. The id is never
// reused, which is what guarantees at most one orchestration routine per
// task.
func (r *Registry) Create(in SubmitInput) string {
	now := time.Now()
	t := &domain.Task{
		ID:         "task_" + uuid.NewString(),
		Status:     domain.StatusPending,
		ImageData:  in.ImageData,
		ImageMIME:  in.ImageMIME,
		ImageURL:   in.ImageURL,
		TextPrompt: in.TextPrompt,
		Options:    in.Options,
		Logs:       []domain.LogEntry{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.mu.Lock()
	r.tasks[t.ID] = t
	r.mu.Unlock()
	return t.ID
}

// Get returns a snapshot of the task, if it exists.
func (r *Registry) Get(id string) (domain.Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok {
		return domain.Task{}, false
	}
	return t.Clone(), true
}

// List returns snapshots of all tasks, newest first.
func (r *Registry) List() []domain.Task {
	r.mu.RLock()
	out := make([]domain.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t.Clone())
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// update applies fn to the task under the write lock. Terminal tasks are
// immutable; updates against them are dropped.
func (r *Registry) update(id string, fn func(*domain.Task)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok || t.Status.Terminal() {
		return
	}
	fn(t)
	t.UpdatedAt = time.Now()
}

func (r *Registry) appendLog(id, format string, args ...any) {
	r.update(id, func(t *domain.Task) {
		t.Logs = append(t.Logs, domain.LogEntry{At: time.Now(), Message: fmt.Sprintf(format, args...)})
	})
}

// setProgress stores the progress value, clamped to [0, 100] and never
// moving backwards: upstream ratios are best-effort and may jitter.
func (r *Registry) setProgress(id string, progress float64) {
	r.update(id, func(t *domain.Task) {
		if progress > 100 {
			progress = 100
		}
		if progress > t.Progress {
			t.Progress = progress
		}
	})
}

func (r *Registry) setProcessing(id string) {
	r.update(id, func(t *domain.Task) {
		if t.Status == domain.StatusPending {
			t.Status = domain.StatusProcessing
		}
	})
}

func (r *Registry) setAsset(id, assetID string) {
	r.update(id, func(t *domain.Task) { t.AssetID = assetID })
}

func (r *Registry) setImageURL(id, imageURL string) {
	r.update(id, func(t *domain.Task) { t.ImageURL = imageURL })
}

func (r *Registry) complete(id, videoURL string) {
	r.update(id, func(t *domain.Task) {
		t.Status = domain.StatusCompleted
		t.VideoURL = videoURL
		t.Progress = 100
	})
}

func (r *Registry) fail(id, message string) {
	r.update(id, func(t *domain.Task) {
		t.Status = domain.StatusFailed
		t.Error = message
	})
}
