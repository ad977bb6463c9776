package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
	"server/internal/task"
)

// maxUploadBytes bounds the multipart form kept in memory.
const maxUploadBytes = 16 << 20

type submitResponse struct {
	TaskID string `json:"task_id"`
}

// TasksSubmit accepts a multipart form with optional image files
// ("image-*"), an "image-url", a "text-prompt", and generation options, and
// queues a new generation task. The task outcome is observed via TaskStatus,
// never through this response.
func (a *App) TasksSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart form")
		return
	}

	in := task.SubmitInput{
		ImageURL:   strings.TrimSpace(r.FormValue("image-url")),
		TextPrompt: strings.TrimSpace(r.FormValue("text-prompt")),
	}

	if r.MultipartForm != nil {
		for field, headers := range r.MultipartForm.File {
			if !strings.HasPrefix(field, "image-") || len(headers) == 0 || headers[0].Size == 0 {
				continue
			}
			file, err := headers[0].Open()
			if err != nil {
				a.error(w, http.StatusBadRequest, "bad_request", "unreadable image upload")
				return
			}
			data, err := io.ReadAll(file)
			file.Close()
			if err != nil {
				a.error(w, http.StatusBadRequest, "bad_request", "unreadable image upload")
				return
			}
			in.ImageData = data
			in.ImageMIME = headers[0].Header.Get("Content-Type")
			break
		}
	}

	opts, err := parseOptions(r)
	if err != nil {
		a.error(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	in.Options = opts

	taskID, err := a.Orchestrator.Submit(in)
	if err != nil {
		a.error(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	a.json(w, http.StatusAccepted, submitResponse{TaskID: taskID})
}

func parseOptions(r *http.Request) (domain.GenerationOptions, error) {
	opts := domain.GenerationOptions{
		AspectRatio: strings.TrimSpace(r.FormValue("aspect-ratio")),
	}
	if v := strings.TrimSpace(r.FormValue("seconds")); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return opts, errors.New("seconds must be an integer")
		}
		opts.Seconds = seconds
	}
	if v := strings.TrimSpace(r.FormValue("seed")); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return opts, errors.New("seed must be an integer")
		}
		opts.Seed = seed
	}
	if r.FormValue("explore-mode") == "true" {
		opts.ExploreMode = true
	}
	return opts, nil
}

// TaskStatus returns the current snapshot of one task.
func (a *App) TaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")
	if taskID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "task_id required")
		return
	}
	snapshot, ok := a.Registry.Get(taskID)
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", domain.ErrTaskNotFound.Error())
		return
	}
	a.json(w, http.StatusOK, snapshot)
}

// TasksList returns snapshots of all tasks, newest first.
func (a *App) TasksList(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"tasks": a.Registry.List()})
}
