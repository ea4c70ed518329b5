package transcode

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"riptide/internal/config"
	"riptide/internal/logging"
	"riptide/internal/services"
)

// ManifestName is the HLS playlist file every transcode produces.
const ManifestName = "index.m3u8"

// SegmentPattern names the media segments referenced by the manifest.
const SegmentPattern = "segment%03d.ts"

// Result summarizes a completed transcode.
type Result struct {
	ManifestPath string
	SegmentCount int
	Duration     time.Duration
}

// Transcoder shells out to ffmpeg with the fixed encoding contract.
type Transcoder struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New constructs a Transcoder.
func New(cfg *config.Config, logger *slog.Logger) *Transcoder {
	return &Transcoder{cfg: cfg, logger: logging.NewComponentLogger(logger, "transcode")}
}

// Args builds the full ffmpeg argument list for one input. Exposed for
// command logging and tests; the contract is fixed, only paths vary.
func (t *Transcoder) Args(inputPath, outputDir string) []string {
	tc := t.cfg.Transcode
	return []string{
		"-y",
		"-c:v", tc.HardwareDecoder,
		"-i", inputPath,

		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-tune", "zerolatency",
		"-b:v", tc.VideoBitrate,
		"-maxrate", tc.MaxRate,
		"-bufsize", tc.BufferSize,

		// Keyframes pinned to segment boundaries so each segment decodes
		// independently.
		"-g", strconv.Itoa(tc.KeyframeFrames),
		"-keyint_min", strconv.Itoa(tc.KeyframeFrames),
		"-sc_threshold", "0",

		"-c:a", "aac",
		"-b:a", tc.AudioBitrate,
		"-ar", strconv.Itoa(tc.AudioSampleRate),

		"-f", "hls",
		"-hls_time", strconv.Itoa(tc.SegmentSeconds),
		"-hls_list_size", "0",
		"-hls_segment_filename", filepath.Join(outputDir, SegmentPattern),
		filepath.Join(outputDir, ManifestName),
	}
}

// Run transcodes inputPath into HLS outputs under outputDir. onProgress
// receives a monotonically non-decreasing percentage, ending at 100 only
// after a clean exit; the manifest's existence is the success postcondition.
func (t *Transcoder) Run(ctx context.Context, inputPath, outputDir string, total time.Duration, onProgress func(percent int)) (Result, error) {
	logger := logging.WithContext(ctx, t.logger)
	args := t.Args(inputPath, outputDir)

	logger.Info("launching transcoder",
		logging.String(logging.FieldEventType, "transcode_starting"),
		logging.String("decoder", t.cfg.Transcode.HardwareDecoder),
		logging.String("encoder", "libx264"),
		logging.String("input", inputPath),
	)

	cmd := exec.CommandContext(ctx, t.cfg.FFmpegBinary(), args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "transcode", "pipe stderr", "", err)
	}
	if err := cmd.Start(); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "transcode", "start ffmpeg", "", err)
	}

	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		watchProgress(stderr, total, onProgress)
	}()

	waitErr := cmd.Wait()
	<-watchDone
	if waitErr != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "transcode", "ffmpeg",
			"transcoder exited with an error; check hardware decoder availability and input integrity", waitErr)
	}

	manifestPath := filepath.Join(outputDir, ManifestName)
	if _, err := os.Stat(manifestPath); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "transcode", "verify manifest",
			fmt.Sprintf("transcoder exited cleanly but %s is missing", ManifestName), err)
	}

	segments, err := filepath.Glob(filepath.Join(outputDir, "segment*.ts"))
	if err != nil {
		segments = nil
	}

	if onProgress != nil {
		onProgress(100)
	}

	logger.Info("transcode complete",
		logging.String(logging.FieldEventType, "transcode_complete"),
		logging.Int("segment_count", len(segments)),
	)

	return Result{
		ManifestPath: manifestPath,
		SegmentCount: len(segments),
		Duration:     total,
	}, nil
}

// CheckDecoder reports whether the configured hardware decoder is available
// to the installed ffmpeg. Absence is survivable: ffmpeg falls back to
// software decode.
func (t *Transcoder) CheckDecoder(ctx context.Context) (bool, error) {
	out, err := exec.CommandContext(ctx, t.cfg.FFmpegBinary(), "-decoders").Output()
	if err != nil {
		return false, services.Wrap(services.ErrExternalTool, "transcode", "list decoders", "", err)
	}
	return decoderListed(string(out), t.cfg.Transcode.HardwareDecoder), nil
}

func decoderListed(listing, name string) bool {
	if name == "" {
		return false
	}
	for _, line := range strings.Split(listing, "\n") {
		for _, field := range strings.Fields(line) {
			if field == name {
				return true
			}
		}
	}
	return false
}
