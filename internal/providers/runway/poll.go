package runway

import (
	"context"

	"server/internal/domain"
)

// ProgressFunc receives the normalized status and a progress percentage in
// [0, 100] on every poll iteration.
type ProgressFunc func(status string, progress float64)

// WaitForCompletion polls the job until it reaches a terminal status or the
// attempt budget runs out. Transient poll errors are logged and retried; they
// consume an attempt but never abort the loop. When the budget is exhausted
// a synthetic failed result is returned: the remote job may still be running
// server-side, the caller just stops waiting.
func (c *Client) WaitForCompletion(ctx context.Context, jobID string, onProgress ProgressFunc) (*JobResult, error) {
	if jobID == "" {
		return nil, domain.ErrInvalidResponse
	}

	for attempt := 0; attempt < c.maxPollAttempts; attempt++ {
		result, err := c.JobStatus(ctx, jobID)
		if err != nil {
			c.logger.Warn().Err(err).Str("job_id", jobID).
				Int("attempt", attempt+1).Int("max_attempts", c.maxPollAttempts).
				Msg("runway: poll failed, retrying")
		} else {
			progress := float64(attempt) / float64(c.maxPollAttempts) * 100
			if result.HasProgress {
				progress = result.Progress * 100
			}
			if onProgress != nil {
				onProgress(result.Status, progress)
			}
			switch result.Status {
			case JobStatusCompleted, JobStatusFailed:
				return result, nil
			}
		}

		if err := c.sleep(ctx, c.pollInterval); err != nil {
			return nil, err
		}
	}

	return &JobResult{
		JobID:  jobID,
		Status: JobStatusFailed,
		Error:  domain.ErrPollTimeout.Error(),
	}, nil
}
