package storyboard

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"riptide/internal/config"
	"riptide/internal/logging"
	"riptide/internal/services"
)

// Artifact file names, written alongside the streaming outputs so a
// single tree upload publishes everything together.
const (
	PosterName = "thumbnail.jpg"
	SpriteName = "sprite.jpg"
	VTTName    = "thumbnails.vtt"
)

// Source describes the probed input the storyboard derives from.
type Source struct {
	Duration time.Duration
	Width    int
	Height   int
}

// Artifacts reports what Generate produced, for persistence on the
// media asset record.
type Artifacts struct {
	PosterName      string
	SpriteName      string
	VTTName         string
	FrameCount      int
	IntervalSeconds float64
	TileWidth       int
	TileHeight      int
}

// Generator produces the poster frame and scrubbing storyboard for a
// transcoded item. All failures here are degraded-mode failures: the
// caller logs and continues without a storyboard.
type Generator struct {
	cfg    *config.Config
	logger *slog.Logger
}

func NewGenerator(cfg *config.Config, logger *slog.Logger) *Generator {
	return &Generator{cfg: cfg, logger: logging.NewComponentLogger(logger, "storyboard")}
}

// Generate writes the poster, sprite sheet, and cue file into outputDir.
func (g *Generator) Generate(ctx context.Context, inputPath, outputDir string, src Source, segmentCount int) (Artifacts, error) {
	logger := logging.WithContext(ctx, g.logger)

	if err := g.poster(ctx, inputPath, outputDir, src.Duration); err != nil {
		return Artifacts{}, err
	}

	layout, ok := PlanLayout(src.Duration, segmentCount, src.Width, src.Height,
		g.cfg.Storyboard.TileWidth, g.cfg.Storyboard.Columns, g.cfg.Storyboard.Capacity)
	if !ok {
		return Artifacts{}, services.Wrap(services.ErrDegraded, "derivatives", "plan storyboard",
			fmt.Sprintf("no usable layout for duration=%s segments=%d dimensions=%dx%d",
				src.Duration, segmentCount, src.Width, src.Height), nil)
	}

	if err := g.sprite(ctx, inputPath, outputDir, layout); err != nil {
		return Artifacts{}, err
	}

	vttPath := filepath.Join(outputDir, VTTName)
	f, err := os.Create(vttPath)
	if err != nil {
		return Artifacts{}, services.Wrap(services.ErrDegraded, "derivatives", "create cue file", "", err)
	}
	writeErr := WriteVTT(f, SpriteName, layout)
	if closeErr := f.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		return Artifacts{}, services.Wrap(services.ErrDegraded, "derivatives", "write cue file", "", writeErr)
	}

	logger.Info("storyboard generated",
		logging.String(logging.FieldEventType, "storyboard_generated"),
		logging.Int("frame_count", layout.FrameCount),
		logging.Int("tile_width", layout.TileWidth),
		logging.Int("tile_height", layout.TileHeight),
	)

	return Artifacts{
		PosterName:      PosterName,
		SpriteName:      SpriteName,
		VTTName:         VTTName,
		FrameCount:      layout.FrameCount,
		IntervalSeconds: layout.Interval.Seconds(),
		TileWidth:       layout.TileWidth,
		TileHeight:      layout.TileHeight,
	}, nil
}

func (g *Generator) poster(ctx context.Context, inputPath, outputDir string, duration time.Duration) error {
	ts := PosterTimestamp(duration)
	args := []string{
		"-y",
		"-ss", formatSeconds(ts),
		"-i", inputPath,
		"-vframes", "1",
		"-q:v", "2",
		filepath.Join(outputDir, PosterName),
	}
	if out, err := exec.CommandContext(ctx, g.cfg.FFmpegBinary(), args...).CombinedOutput(); err != nil {
		return services.Wrap(services.ErrDegraded, "derivatives", "extract poster",
			tailOf(out), err)
	}
	return nil
}

func (g *Generator) sprite(ctx context.Context, inputPath, outputDir string, layout Layout) error {
	filter := fmt.Sprintf("fps=1/%s,scale=%d:-2,tile=%dx%d",
		formatSeconds(layout.Interval), layout.TileWidth, layout.Columns, layout.Rows)
	args := []string{
		"-y",
		"-i", inputPath,
		"-vf", filter,
		"-frames:v", "1",
		"-q:v", "2",
		filepath.Join(outputDir, SpriteName),
	}
	if out, err := exec.CommandContext(ctx, g.cfg.FFmpegBinary(), args...).CombinedOutput(); err != nil {
		return services.Wrap(services.ErrDegraded, "derivatives", "render sprite",
			tailOf(out), err)
	}
	return nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func tailOf(out []byte) string {
	const max = 400
	s := string(out)
	if len(s) > max {
		s = s[len(s)-max:]
	}
	return s
}
