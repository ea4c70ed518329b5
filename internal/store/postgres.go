package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"riptide/internal/media"
	"riptide/internal/services"
)

// Postgres implements Store against the shared relational database.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects to the shared database and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{db: db}, nil
}

// Close closes the underlying connection pool.
func (p *Postgres) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// GetJob fetches a job record by identifier.
func (p *Postgres) GetJob(ctx context.Context, id string) (*media.Job, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, state, org_id, media_asset_id, attempt, progress,
		       started_at, finished_at,
		       COALESCE(error_code, ''), COALESCE(error_message, ''),
		       COALESCE(correlation_id, '')
		FROM jobs WHERE id = $1`, id)

	var (
		job      media.Job
		state    string
		started  sql.NullTime
		finished sql.NullTime
	)
	err := row.Scan(&job.ID, &state, &job.OrgID, &job.MediaAssetID, &job.Attempt,
		&job.Progress, &started, &finished,
		&job.ErrorCode, &job.ErrorMessage, &job.CorrelationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get job", id, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	parsed, ok := media.ParseJobState(state)
	if !ok {
		return nil, fmt.Errorf("job %s has unknown state %q", id, state)
	}
	job.State = parsed
	if started.Valid {
		t := started.Time
		job.StartedAt = &t
	}
	if finished.Valid {
		t := finished.Time
		job.FinishedAt = &t
	}
	return &job, nil
}

// UpdateJob applies a partial update to a job record.
func (p *Postgres) UpdateJob(ctx context.Context, id string, update media.JobUpdate) error {
	if update.IsZero() {
		return nil
	}
	set, args := buildJobSet(update)
	args = append(args, id)
	query := fmt.Sprintf("UPDATE jobs SET %s WHERE id = $%d", strings.Join(set, ", "), len(args))
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return services.Wrap(services.ErrNotFound, "store", "update job", id, nil)
	}
	return nil
}

func buildJobSet(update media.JobUpdate) ([]string, []any) {
	var (
		set  []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.State != nil {
		add("state", string(*update.State))
	}
	if update.Attempt != nil {
		add("attempt", *update.Attempt)
	}
	if update.Progress != nil {
		add("progress", *update.Progress)
	}
	if update.StartedAt != nil {
		add("started_at", *update.StartedAt)
	}
	if update.FinishedAt != nil {
		add("finished_at", *update.FinishedAt)
	}
	if update.ErrorCode != nil {
		add("error_code", *update.ErrorCode)
	}
	if update.ErrorMessage != nil {
		add("error_message", *update.ErrorMessage)
	}
	if update.CorrelationID != nil {
		add("correlation_id", *update.CorrelationID)
	}
	return set, args
}

// GetAsset fetches a media asset scoped to its organization.
func (p *Postgres) GetAsset(ctx context.Context, id, orgID string) (*media.MediaAsset, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, org_id, bucket, storage_path, file_name,
		       processing_stage, COALESCE(status, ''), streaming_ready,
		       COALESCE(thumbnail_path, ''), COALESCE(thumbnail_sprite_path, ''),
		       COALESCE(thumbnail_vtt_path, ''),
		       COALESCE(thumbnail_frame_count, 0), COALESCE(thumbnail_interval_seconds, 0),
		       COALESCE(thumbnail_width, 0), COALESCE(thumbnail_height, 0),
		       COALESCE(transcode_progress, 0)
		FROM media_assets WHERE id = $1 AND org_id = $2`, id, orgID)

	var (
		asset media.MediaAsset
		stage string
	)
	err := row.Scan(&asset.ID, &asset.OrgID, &asset.Bucket, &asset.StoragePath,
		&asset.FileName, &stage, &asset.Status, &asset.StreamingReady,
		&asset.ThumbnailPath, &asset.ThumbnailSpritePath, &asset.ThumbnailVTTPath,
		&asset.ThumbnailFrameCount, &asset.ThumbnailIntervalSecs,
		&asset.ThumbnailWidth, &asset.ThumbnailHeight,
		&asset.TranscodeProgress)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get asset", id, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get asset %s: %w", id, err)
	}
	if parsed, ok := media.ParseProcessingStage(stage); ok {
		asset.ProcessingStage = parsed
	}
	return &asset, nil
}

// UpdateAsset applies a partial update to an asset record.
func (p *Postgres) UpdateAsset(ctx context.Context, id, orgID string, update media.AssetUpdate) error {
	set, args := buildAssetSet(update)
	if len(set) == 0 {
		return nil
	}
	args = append(args, id, orgID)
	query := fmt.Sprintf("UPDATE media_assets SET %s WHERE id = $%d AND org_id = $%d",
		strings.Join(set, ", "), len(args)-1, len(args))
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update asset %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return services.Wrap(services.ErrNotFound, "store", "update asset", id, nil)
	}
	return nil
}

func buildAssetSet(update media.AssetUpdate) ([]string, []any) {
	var (
		set  []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.ProcessingStage != nil {
		add("processing_stage", string(*update.ProcessingStage))
	}
	if update.Status != nil {
		add("status", *update.Status)
	}
	if update.StreamingReady != nil {
		add("streaming_ready", *update.StreamingReady)
	}
	if update.ThumbnailPath != nil {
		add("thumbnail_path", *update.ThumbnailPath)
	}
	if update.ThumbnailSpritePath != nil {
		add("thumbnail_sprite_path", *update.ThumbnailSpritePath)
	}
	if update.ThumbnailVTTPath != nil {
		add("thumbnail_vtt_path", *update.ThumbnailVTTPath)
	}
	if update.ThumbnailFrameCount != nil {
		add("thumbnail_frame_count", *update.ThumbnailFrameCount)
	}
	if update.ThumbnailIntervalSecs != nil {
		add("thumbnail_interval_seconds", *update.ThumbnailIntervalSecs)
	}
	if update.ThumbnailWidth != nil {
		add("thumbnail_width", *update.ThumbnailWidth)
	}
	if update.ThumbnailHeight != nil {
		add("thumbnail_height", *update.ThumbnailHeight)
	}
	if update.TranscodeProgress != nil {
		add("transcode_progress", *update.TranscodeProgress)
	}
	return set, args
}
