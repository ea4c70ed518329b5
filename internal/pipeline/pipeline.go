package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"riptide/internal/config"
	"riptide/internal/logging"
	"riptide/internal/media"
	"riptide/internal/services"
	"riptide/internal/storage"
	"riptide/internal/store"
	"riptide/internal/storyboard"
	"riptide/internal/transcode"
	"riptide/internal/workspace"
)

// Throttle bounds for persisted transcode progress.
const (
	progressMinInterval = 5 * time.Second
	progressMinDelta    = 10
)

// Pipeline runs jobs end to end. One Pipeline serves many sequential jobs;
// it holds no per-job state.
type Pipeline struct {
	cfg         *config.Config
	records     store.Store
	objects     storage.ObjectStore
	transcoder  *transcode.Transcoder
	storyboards *storyboard.Generator
	logger      *slog.Logger
	maxAttempts int
	now         func() time.Time
}

// New constructs a Pipeline from its collaborators.
func New(cfg *config.Config, records store.Store, objects storage.ObjectStore, transcoder *transcode.Transcoder, storyboards *storyboard.Generator, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		records:     records,
		objects:     objects,
		transcoder:  transcoder,
		storyboards: storyboards,
		logger:      logging.NewComponentLogger(logger, "pipeline"),
		maxAttempts: cfg.Worker.MaxAttempts,
		now:         time.Now,
	}
}

// execution carries the per-job state the stages hand forward.
type execution struct {
	job    *media.Job
	asset  *media.MediaAsset
	ws     *workspace.Workspace
	probe  transcode.ProbeResult
	result transcode.Result

	artifacts     storyboard.Artifacts
	hasStoryboard bool

	logger *slog.Logger
}

// Run executes the full pipeline for one validated payload. A nil return
// means the queue message may be deleted: the job succeeded, or was already
// terminal when the message arrived. An error wrapping services.ErrJobFailed
// means the failed state was persisted and the message should be left to
// lapse; any other error means the message must redeliver.
func (p *Pipeline) Run(ctx context.Context, payload media.Payload) (err error) {
	ctx = services.WithJobID(ctx, payload.JobID)
	ctx = services.WithMediaID(ctx, payload.MediaID)
	logger := logging.WithContext(ctx, p.logger)

	job, getErr := p.records.GetJob(ctx, payload.JobID)
	if getErr != nil {
		return fmt.Errorf("load job %s: %w", payload.JobID, getErr)
	}
	if job.State.IsTerminal() {
		logger.Info("job already terminal, skipping",
			logging.String(logging.FieldEventType, "job_skipped"),
			logging.String("state", string(job.State)),
		)
		return nil
	}

	asset, getErr := p.records.GetAsset(ctx, payload.MediaID, payload.OrgID)
	if getErr != nil {
		return fmt.Errorf("load asset %s: %w", payload.MediaID, getErr)
	}

	ws, wsErr := workspace.Create(p.cfg.Paths.WorkDir, asset.ID)
	if wsErr != nil {
		return wsErr
	}
	defer func() {
		if destroyErr := ws.Destroy(); destroyErr != nil {
			logger.Warn("workspace cleanup failed", logging.Error(destroyErr))
		}
	}()

	exec := &execution{job: job, asset: asset, ws: ws, logger: logger}

	idx := 0
	defer func() {
		if r := recover(); r != nil {
			code := stageCode(idx)
			logger.Error("unhandled failure in stage",
				logging.String(logging.FieldEventType, "job_panicked"),
				logging.String(logging.FieldStage, stageLabel(idx)),
				logging.String(logging.FieldErrorCode, code),
				logging.Any("panic", r),
			)
			err = p.failTerminal(ctx, exec, code, fmt.Sprintf("unhandled failure: %v", r))
		}
	}()

	startedAt := p.now()
	runningState := media.JobRunning
	if updErr := p.records.UpdateJob(ctx, job.ID, media.JobUpdate{
		State:     &runningState,
		StartedAt: &startedAt,
	}); updErr != nil {
		return fmt.Errorf("mark job running: %w", updErr)
	}
	job.State = media.JobRunning
	job.StartedAt = &startedAt

	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_started"),
		logging.String(logging.FieldOrgID, payload.OrgID),
		logging.Int("attempt", job.Attempt),
	)

	// Pass counting: the attempt counter increments at the top of every pass
	// over the remaining stages, the first included, and the ceiling is
	// checked before any stage executes. A failing stage therefore runs at
	// most maxAttempts times and a clean run finishes with attempt 1.
	attempt := job.Attempt
	var lastErr error
	for {
		attempt++
		if updErr := p.persistAttempt(ctx, exec, attempt); updErr != nil {
			logger.Error("failed to persist attempt count", logging.Error(updErr))
		}
		if attempt > p.maxAttempts {
			logger.Error("attempt ceiling exceeded",
				logging.String(logging.FieldEventType, "job_exhausted"),
				logging.String(logging.FieldErrorCode, media.ErrorCodeRetryExhausted),
				logging.Int("attempt", attempt),
				logging.Error(lastErr),
			)
			message := fmt.Sprintf("attempt %d exceeded ceiling %d", attempt, p.maxAttempts)
			if lastErr != nil {
				message += ": " + lastErr.Error()
			}
			return p.failTerminal(ctx, exec, media.ErrorCodeRetryExhausted, message)
		}

		var stageErr error
		for idx < len(stages) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			st := stages[idx]
			stageLogger := logger.With(logging.String(logging.FieldStage, st.name))
			stageCtx := services.WithStage(ctx, st.name)
			stageStart := p.now()

			stageLogger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))
			stageErr = st.run(stageCtx, p, exec)
			durationMS := p.now().Sub(stageStart).Milliseconds()

			if stageErr == nil {
				stageLogger.Info("stage completed",
					logging.String(logging.FieldEventType, "stage_complete"),
					logging.Int64("duration_ms", durationMS),
				)
				idx++
				continue
			}

			if errors.Is(stageErr, context.Canceled) || errors.Is(stageErr, context.DeadlineExceeded) {
				return stageErr
			}

			if st.optional && services.IsDegraded(stageErr) {
				stageLogger.Warn("stage degraded, continuing without its outputs",
					logging.String(logging.FieldEventType, "stage_degraded"),
					logging.Int64("duration_ms", durationMS),
					logging.Error(stageErr),
				)
				stageErr = nil
				idx++
				continue
			}

			if !services.IsRetryable(stageErr) {
				stageLogger.Error("stage failed permanently",
					logging.String(logging.FieldEventType, "stage_failed"),
					logging.String(logging.FieldErrorCode, st.code),
					logging.Int64("duration_ms", durationMS),
					logging.Error(stageErr),
				)
				return p.failTerminal(ctx, exec, st.code, stageErr.Error())
			}

			// Retryable: the pointer stays on this stage and the next pass
			// resumes here.
			stageLogger.Warn("stage failed, retrying",
				logging.String(logging.FieldEventType, "stage_retry"),
				logging.String(logging.FieldErrorCode, st.code),
				logging.Int("attempt", attempt),
				logging.Int64("duration_ms", durationMS),
				logging.Error(stageErr),
			)
			break
		}

		if stageErr == nil {
			logger.Info("job succeeded",
				logging.String(logging.FieldEventType, "job_succeeded"),
				logging.Int("attempt", attempt),
			)
			return nil
		}
		lastErr = stageErr
	}
}

// persistAttempt writes the incremented attempt counter so redeliveries see
// accumulated failures. A lost counter write is tolerable; a lost terminal
// write is not, which is why failTerminal surfaces its error.
func (p *Pipeline) persistAttempt(ctx context.Context, exec *execution, attempt int) error {
	exec.job.Attempt = attempt
	return p.records.UpdateJob(ctx, exec.job.ID, media.JobUpdate{Attempt: &attempt})
}

// failTerminal moves the job to failed with the given code. The asset is
// deliberately untouched: a failed job leaves the asset in its pre-transcode
// state. When the terminal write lands the returned error wraps
// services.ErrJobFailed so the dispatcher leaves the message to lapse; a
// failed terminal write propagates as-is so the message redelivers and a
// later execution can settle the record.
func (p *Pipeline) failTerminal(ctx context.Context, exec *execution, code, message string) error {
	finishedAt := p.now()
	failedState := media.JobFailed
	update := media.JobUpdate{
		State:        &failedState,
		FinishedAt:   &finishedAt,
		ErrorCode:    &code,
		ErrorMessage: &message,
	}
	if err := p.records.UpdateJob(ctx, exec.job.ID, update); err != nil {
		exec.logger.Error("failed to persist terminal failure",
			logging.String(logging.FieldEventType, "terminal_write_failed"),
			logging.String(logging.FieldErrorCode, code),
			logging.Error(err),
		)
		return fmt.Errorf("persist terminal failure (%s): %w", code, err)
	}
	exec.logger.Error("job failed",
		logging.String(logging.FieldEventType, "job_failed"),
		logging.String(logging.FieldErrorCode, code),
		logging.String("error_message", message),
	)
	return fmt.Errorf("%w (%s)", services.ErrJobFailed, code)
}

// updateAssetLogged applies a best-effort asset update. Losing an
// intermediate marker is less harmful than abandoning the job, so failures
// are logged and swallowed.
func (p *Pipeline) updateAssetLogged(ctx context.Context, exec *execution, update media.AssetUpdate, what string) {
	if err := p.records.UpdateAsset(ctx, exec.asset.ID, exec.asset.OrgID, update); err != nil {
		exec.logger.Warn("asset update failed",
			logging.String(logging.FieldEventType, "record_update_failed"),
			logging.String("update", what),
			logging.Error(err),
		)
	}
}
