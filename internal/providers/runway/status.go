package runway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Canonical job statuses as exposed by JobStatus.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// JobResult is the normalized view of a provider job.
type JobResult struct {
	JobID       string
	Status      string
	VideoURL    string
	Error       string
	Progress    float64
	HasProgress bool
}

type artifact struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// errorDetail tolerates the provider returning the error field as either an
// object or a bare string.
type errorDetail struct {
	text string
}

func (e *errorDetail) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.text = s
		return nil
	}
	var obj struct {
		ErrorMessage string `json:"errorMessage"`
		Message      string `json:"message"`
		Reason       string `json:"reason"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	switch {
	case obj.ErrorMessage != "":
		e.text = obj.ErrorMessage
	case obj.Message != "":
		e.text = obj.Message
	default:
		e.text = obj.Reason
	}
	return nil
}

// progressRatio tolerates the provider returning progress as a JSON number
// or a numeric string.
type progressRatio struct {
	value float64
	set   bool
}

func (p *progressRatio) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		p.value, p.set = n, true
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		// Unparseable ratios are ignored rather than failing the poll.
		return nil
	}
	p.value, p.set = n, true
	return nil
}

// statusResponse covers both the documented flat shape and the nested
// legacy shape where the payload sits under a "task" key.
type statusResponse struct {
	TaskID        string         `json:"taskId"`
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	Artifacts     []artifact     `json:"artifacts"`
	ProgressRatio *progressRatio `json:"progressRatio"`
	Error         *errorDetail   `json:"error"`

	Task *statusResponse `json:"task"`
}

type createResponse struct {
	TaskID string `json:"taskId"`
	ID     string `json:"id"`
	Task   *struct {
		TaskID string `json:"taskId"`
		ID     string `json:"id"`
	} `json:"task"`
}

// jobID probes the known field locations in order: documented top-level
// taskId, then the nested legacy shape, then the top-level id as a last
// resort.
func (r createResponse) jobID() string {
	if r.TaskID != "" {
		return r.TaskID
	}
	if r.Task != nil {
		if r.Task.TaskID != "" {
			return r.Task.TaskID
		}
		if r.Task.ID != "" {
			return r.Task.ID
		}
	}
	return r.ID
}

// JobStatus fetches and normalizes the current state of a remote job. The
// job id is passed through verbatim; the provider expects the full
// "user:…-runwayml:…-task:…" form and truncating it breaks the lookup.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*JobResult, error) {
	if jobID == "" {
		return nil, fmt.Errorf("runway: job id is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tasks/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("runway: build status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	var decoded statusResponse
	if err := c.send(req, &decoded); err != nil {
		return nil, fmt.Errorf("runway: job status: %w", err)
	}

	payload := &decoded
	if decoded.Task != nil {
		payload = decoded.Task
	}

	result := &JobResult{
		JobID:  firstNonEmpty(payload.TaskID, payload.ID, jobID),
		Status: normalizeStatus(payload.Status),
	}
	if payload.Error != nil {
		result.Error = payload.Error.text
	}
	if payload.ProgressRatio != nil && payload.ProgressRatio.set {
		result.Progress = payload.ProgressRatio.value
		result.HasProgress = true
	}
	result.VideoURL = videoArtifactURL(payload.Artifacts)
	return result, nil
}

// normalizeStatus folds the provider's status vocabulary into the canonical
// pending/processing/completed/failed set.
func normalizeStatus(status string) string {
	switch strings.ToLower(status) {
	case "succeeded", "success", JobStatusCompleted:
		return JobStatusCompleted
	case "failed", "failure", "canceled":
		return JobStatusFailed
	case "pending", "running", "in_progress", JobStatusProcessing:
		return JobStatusProcessing
	case "":
		return JobStatusPending
	default:
		return strings.ToLower(status)
	}
}

// videoArtifactURL scans artifacts for a video-typed entry or one whose
// locator ends in a known video extension.
func videoArtifactURL(artifacts []artifact) string {
	for _, a := range artifacts {
		if a.Type == "video" || strings.HasSuffix(a.URL, ".mp4") {
			return a.URL
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
