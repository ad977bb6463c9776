package task

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers/runway"
)

// Provider is the slice of the Runway client the orchestrator depends on.
type Provider interface {
	UploadAsset(ctx context.Context, data []byte, mimeType, name string) (string, error)
	UploadAssetFromURL(ctx context.Context, imageURL, name string) (string, error)
	CreateJob(ctx context.Context, assetID, textPrompt string, opts domain.GenerationOptions) (string, error)
	CreateTextJob(ctx context.Context, textPrompt string, opts domain.GenerationOptions) (string, error)
	WaitForCompletion(ctx context.Context, jobID string, onProgress runway.ProgressFunc) (*runway.JobResult, error)
	CheckCredits(ctx context.Context) runway.CreditStatus
}

// SubmitInput carries the raw caller inputs for one generation request.
type SubmitInput struct {
	ImageData  []byte
	ImageMIME  string
	ImageURL   string
	TextPrompt string
	Options    domain.GenerationOptions
}

// Orchestrator creates tasks and drives each through
// pending -> processing -> {completed, failed}. One goroutine runs per task;
// tasks never share step state, so any number may be processing at once.
type Orchestrator struct {
	ctx      context.Context
	registry *Registry
	provider Provider
	logger   infra.Logger
	examples []string

	// randIndex picks the first example asset to try; fixed in tests.
	randIndex func(n int) int
}

// NewOrchestrator wires the orchestrator. ctx bounds every spawned task
// routine and normally lives until process shutdown.
func NewOrchestrator(ctx context.Context, registry *Registry, provider Provider, logger infra.Logger) *Orchestrator {
	return &Orchestrator{
		ctx:       ctx,
		registry:  registry,
		provider:  provider,
		logger:    logger,
		examples:  ExampleImages,
		randIndex: rand.Intn,
	}
}

// Submit validates the inputs, registers a pending task, and spawns its
// orchestration routine. The outcome is observed only through the registry,
// never through this call.
func (o *Orchestrator) Submit(in SubmitInput) (string, error) {
	if len(in.ImageData) == 0 && in.ImageURL == "" && in.TextPrompt == "" {
		return "", domain.ErrNoInput
	}
	in.Options = in.Options.Normalize()
	if err := in.Options.Validate(); err != nil {
		return "", err
	}

	taskID := o.registry.Create(in)
	o.logger.Info().Str("task_id", taskID).Msg("task created")

	go o.process(taskID)
	return taskID, nil
}

// process is the single orchestration routine for one task. It is the
// catch-all boundary: every failure ends as a failed task with a stored
// message, never as a fault crossing back to the caller.
func (o *Orchestrator) process(taskID string) {
	defer func() {
		if rec := recover(); rec != nil {
			msg := fmt.Sprintf("unexpected failure: %v", rec)
			o.registry.appendLog(taskID, "generation aborted: %s", msg)
			o.registry.fail(taskID, msg)
			o.logger.Error().Str("task_id", taskID).Msgf("task panicked: %v", rec)
		}
	}()

	o.registry.setProcessing(taskID)
	o.registry.appendLog(taskID, "processing started")

	if err := o.generate(o.ctx, taskID); err != nil {
		msg := err.Error()
		if errors.Is(err, domain.ErrInsufficientCredits) {
			msg = "insufficient credits to run this task, check your provider account"
		}
		o.registry.appendLog(taskID, "generation failed: %s", msg)
		o.registry.fail(taskID, msg)
		o.logger.Error().Err(err).Str("task_id", taskID).Msg("task failed")
		return
	}
	o.logger.Info().Str("task_id", taskID).Msg("task completed")
}

func (o *Orchestrator) generate(ctx context.Context, taskID string) error {
	snapshot, ok := o.registry.Get(taskID)
	if !ok {
		return domain.ErrTaskNotFound
	}

	assetID := o.resolveAsset(ctx, taskID, snapshot)

	// No image could be registered. A text prompt keeps the task alive via
	// the text-only path; total input absence does not.
	if assetID == "" {
		if snapshot.TextPrompt == "" {
			return domain.ErrNoInput
		}
		o.registry.appendLog(taskID, "no image available, generating from text prompt only")
		return o.runTextJob(ctx, taskID, snapshot)
	}

	o.registry.setAsset(taskID, assetID)

	if credits := o.provider.CheckCredits(ctx); !credits.HasCredits {
		return domain.ErrInsufficientCredits
	}

	o.registry.appendLog(taskID, "starting video generation")
	jobID, err := o.provider.CreateJob(ctx, assetID, snapshot.TextPrompt, snapshot.Options)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	o.registry.appendLog(taskID, "generation job created: %s", jobID)

	return o.awaitJob(ctx, taskID, jobID)
}

func (o *Orchestrator) runTextJob(ctx context.Context, taskID string, snapshot domain.Task) error {
	if credits := o.provider.CheckCredits(ctx); !credits.HasCredits {
		return domain.ErrInsufficientCredits
	}

	jobID, err := o.provider.CreateTextJob(ctx, snapshot.TextPrompt, snapshot.Options)
	if err != nil {
		return fmt.Errorf("create text job: %w", err)
	}
	o.registry.appendLog(taskID, "generation job created: %s", jobID)

	return o.awaitJob(ctx, taskID, jobID)
}

func (o *Orchestrator) awaitJob(ctx context.Context, taskID, jobID string) error {
	o.registry.appendLog(taskID, "waiting for generation to finish")

	result, err := o.provider.WaitForCompletion(ctx, jobID, func(status string, progress float64) {
		o.registry.appendLog(taskID, "generation status: %s", status)
		o.registry.setProgress(taskID, progress)
	})
	if err != nil {
		return fmt.Errorf("wait for completion: %w", err)
	}

	if result.Status == runway.JobStatusCompleted && result.VideoURL != "" {
		o.registry.appendLog(taskID, "video generated: %s", result.VideoURL)
		o.registry.complete(taskID, result.VideoURL)
		return nil
	}
	if result.Error != "" {
		return fmt.Errorf("generation failed: %s", result.Error)
	}
	return fmt.Errorf("generation finished without a video url")
}
