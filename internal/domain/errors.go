package domain

import "errors"

var (
	ErrTaskNotFound         = errors.New("task not found")
	ErrNoInput              = errors.New("provide at least one image, image url, or text prompt")
	ErrInsufficientCredits  = errors.New("insufficient credits")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrInvalidResponse      = errors.New("invalid provider response")
	ErrMissingCredentials   = errors.New("account credentials are required")
	ErrPollTimeout          = errors.New("timed out waiting for job completion")
)
