package pipeline

import (
	"context"
	"strings"

	"riptide/internal/lease"
	"riptide/internal/logging"
	"riptide/internal/media"
	"riptide/internal/services"
	"riptide/internal/storage"
	"riptide/internal/storyboard"
	"riptide/internal/transcode"
)

// stage is one unit of the job state machine. The machine retries a failed
// stage in place; only success moves the pointer forward.
type stage struct {
	name     string
	code     string
	optional bool
	run      func(ctx context.Context, p *Pipeline, exec *execution) error
}

var stages = []stage{
	{name: "fetch_input", code: media.ErrorCodeDownloadFailed, run: runFetchInput},
	{name: "transcode", code: media.ErrorCodeFFmpegFailed, run: runTranscode},
	{name: "derivatives", code: "DERIVATIVES_FAILED", optional: true, run: runDerivatives},
	{name: "upload_output", code: media.ErrorCodeUploadFailed, run: runUploadOutput},
	{name: "finalize", code: media.ErrorCodeFinalizeFailed, run: runFinalize},
}

func stageLabel(idx int) string {
	if idx < 0 || idx >= len(stages) {
		return "complete"
	}
	return stages[idx].name
}

// stageCode is the error code recorded when a failure escapes a stage
// without classification: the stage's own name, upper-cased.
func stageCode(idx int) string {
	return strings.ToUpper(stageLabel(idx))
}

func runFetchInput(ctx context.Context, p *Pipeline, exec *execution) error {
	asset := exec.asset
	if err := p.objects.Download(ctx, asset.Bucket, asset.SourceKey(), exec.ws.InputPath()); err != nil {
		return services.Wrap(services.ErrTransient, "fetch_input", "download source",
			asset.SourceKey(), err)
	}
	size, err := exec.ws.InputSize()
	if err != nil {
		return services.Wrap(services.ErrTransient, "fetch_input", "stat input", "", err)
	}
	if size == 0 {
		return services.Wrap(services.ErrTransient, "fetch_input", "verify input",
			"downloaded source is empty", nil)
	}
	// The true size is only known after fetch; log the estimate and the
	// visibility the message should have been received with so operators can
	// tune the queue configuration.
	exec.logger.Info("input fetched",
		logging.String(logging.FieldEventType, "input_fetched"),
		logging.Int64("size_bytes", size),
		logging.Duration("estimated_processing", lease.EstimateProcessing(size)),
		logging.Duration("recommended_visibility", lease.RecommendedTimeout(size)),
	)
	return nil
}

func runTranscode(ctx context.Context, p *Pipeline, exec *execution) error {
	if exec.asset.ProcessingStage.Advances(media.StageTranscoding) {
		transcoding := media.StageTranscoding
		p.updateAssetLogged(ctx, exec, media.AssetUpdate{ProcessingStage: &transcoding}, "processing_stage=transcoding")
		exec.asset.ProcessingStage = media.StageTranscoding
	}

	probe, err := transcode.Probe(ctx, p.cfg.FFprobeBinary(), exec.ws.InputPath())
	if err != nil {
		return services.Wrap(services.ErrTransient, "transcode", "probe input", "", err)
	}
	exec.probe = probe

	sampler := logging.NewProgressSampler(5)
	throttle := newProgressThrottle(progressMinInterval, progressMinDelta, p.now, func(percent int) {
		p.updateAssetLogged(ctx, exec, media.AssetUpdate{TranscodeProgress: &percent}, "transcode_progress")
		if sampler.ShouldLog(float64(percent), "transcode") {
			exec.logger.Info("transcode progress",
				logging.String(logging.FieldEventType, "transcode_progress"),
				logging.Int("percent", percent),
			)
		}
	})

	result, err := p.transcoder.Run(ctx, exec.ws.InputPath(), exec.ws.OutputDir(), probe.Duration, throttle.Observe)
	if err != nil {
		return services.Wrap(services.ErrTransient, "transcode", "run transcoder", "", err)
	}
	exec.result = result

	transcoded := media.StageTranscoded
	p.updateAssetLogged(ctx, exec, media.AssetUpdate{ProcessingStage: &transcoded}, "processing_stage=transcoded")
	exec.asset.ProcessingStage = media.StageTranscoded
	return nil
}

func runDerivatives(ctx context.Context, p *Pipeline, exec *execution) error {
	if !p.cfg.Storyboard.Enabled {
		exec.logger.Debug("storyboard generation disabled")
		return nil
	}
	artifacts, err := p.storyboards.Generate(ctx, exec.ws.InputPath(), exec.ws.OutputDir(), storyboard.Source{
		Duration: exec.probe.Duration,
		Width:    exec.probe.Width,
		Height:   exec.probe.Height,
	}, exec.result.SegmentCount)
	if err != nil {
		return err
	}
	exec.artifacts = artifacts
	exec.hasStoryboard = true
	return nil
}

func runUploadOutput(ctx context.Context, p *Pipeline, exec *execution) error {
	asset := exec.asset
	prefix := asset.StreamingPrefix()
	keys, err := storage.UploadTree(ctx, p.objects, exec.ws.OutputDir(), asset.Bucket, prefix)
	if err != nil {
		return services.Wrap(services.ErrTransient, "upload_output", "upload artifacts",
			prefix, err)
	}
	exec.logger.Info("outputs uploaded",
		logging.String(logging.FieldEventType, "outputs_uploaded"),
		logging.Int("artifact_count", len(keys)),
	)

	streamingReady := true
	update := media.AssetUpdate{StreamingReady: &streamingReady}
	if exec.hasStoryboard {
		poster := prefix + exec.artifacts.PosterName
		sprite := prefix + exec.artifacts.SpriteName
		vtt := prefix + exec.artifacts.VTTName
		update.ThumbnailPath = &poster
		update.ThumbnailSpritePath = &sprite
		update.ThumbnailVTTPath = &vtt
		update.ThumbnailFrameCount = &exec.artifacts.FrameCount
		update.ThumbnailIntervalSecs = &exec.artifacts.IntervalSeconds
		update.ThumbnailWidth = &exec.artifacts.TileWidth
		update.ThumbnailHeight = &exec.artifacts.TileHeight
	}
	p.updateAssetLogged(ctx, exec, update, "streaming_ready")
	return nil
}

// runFinalize writes the completion fields on both records. Every write here
// is idempotent, so a retry after a partial failure converges.
func runFinalize(ctx context.Context, p *Pipeline, exec *execution) error {
	finishedAt := p.now()
	succeeded := media.JobSucceeded
	progress := 1.0
	if err := p.records.UpdateJob(ctx, exec.job.ID, media.JobUpdate{
		State:      &succeeded,
		FinishedAt: &finishedAt,
		Progress:   &progress,
	}); err != nil {
		return services.Wrap(services.ErrTransient, "finalize", "persist job completion", "", err)
	}

	complete := media.StageComplete
	status := media.AssetStatusReady
	streamingReady := true
	fullProgress := 100
	if err := p.records.UpdateAsset(ctx, exec.asset.ID, exec.asset.OrgID, media.AssetUpdate{
		ProcessingStage:   &complete,
		Status:            &status,
		StreamingReady:    &streamingReady,
		TranscodeProgress: &fullProgress,
	}); err != nil {
		return services.Wrap(services.ErrTransient, "finalize", "persist asset completion", "", err)
	}
	exec.job.State = media.JobSucceeded
	exec.asset.ProcessingStage = media.StageComplete
	return nil
}
