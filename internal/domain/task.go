package domain

import "time"

// Status enumerates task lifecycle states.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// LogEntry is one timestamped line in a task's append-only log.
type LogEntry struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// Task tracks one video-generation request through its full lifecycle.
// Raw image bytes never leave the process via the API.
type Task struct {
	ID         string            `json:"id"`
	Status     Status            `json:"status"`
	ImageData  []byte            `json:"-"`
	ImageMIME  string            `json:"-"`
	ImageURL   string            `json:"image_url,omitempty"`
	AssetID    string            `json:"asset_id,omitempty"`
	TextPrompt string            `json:"text_prompt,omitempty"`
	Options    GenerationOptions `json:"options"`
	VideoURL   string            `json:"video_url,omitempty"`
	Error      string            `json:"error,omitempty"`
	Logs       []LogEntry        `json:"logs"`
	Progress   float64           `json:"progress"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Clone returns a deep copy so readers never observe in-progress writes.
func (t *Task) Clone() Task {
	out := *t
	if t.ImageData != nil {
		out.ImageData = append([]byte(nil), t.ImageData...)
	}
	if t.Logs != nil {
		out.Logs = append([]LogEntry(nil), t.Logs...)
	}
	return out
}
