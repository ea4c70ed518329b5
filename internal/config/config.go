package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir string `toml:"work_dir"`
	LogDir  string `toml:"log_dir"`
}

// Queue backend names.
const (
	QueueBackendSQS    = "sqs"
	QueueBackendSQLite = "sqlite"
)

// Queue contains configuration for the transcode job queue.
type Queue struct {
	// Backend selects the queue implementation: "sqs" or "sqlite".
	Backend           string `toml:"backend"`
	URL               string `toml:"url"`
	Region            string `toml:"region"`
	PollWaitSeconds   int    `toml:"poll_wait_seconds"`
	VisibilitySeconds int    `toml:"visibility_seconds"`
	SQLitePath        string `toml:"sqlite_path"`
}

// Storage contains configuration for the S3-compatible object store.
type Storage struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// Database contains configuration for the shared job/asset store.
type Database struct {
	DSN string `toml:"dsn"`
}

// Transcode contains the fixed encoding parameters handed to ffmpeg.
type Transcode struct {
	FFmpegBinary    string `toml:"ffmpeg_binary"`
	FFprobeBinary   string `toml:"ffprobe_binary"`
	HardwareDecoder string `toml:"hardware_decoder"`
	VideoBitrate    string `toml:"video_bitrate"`
	MaxRate         string `toml:"max_rate"`
	BufferSize      string `toml:"buffer_size"`
	KeyframeFrames  int    `toml:"keyframe_frames"`
	SegmentSeconds  int    `toml:"segment_seconds"`
	AudioBitrate    string `toml:"audio_bitrate"`
	AudioSampleRate int    `toml:"audio_sample_rate"`
}

// Storyboard contains derivative generation settings.
type Storyboard struct {
	Enabled   bool `toml:"enabled"`
	TileWidth int  `toml:"tile_width"`
	Columns   int  `toml:"columns"`
	Capacity  int  `toml:"capacity"`
}

// Worker contains lease, retry, and admission settings.
type Worker struct {
	MaxAttempts           int     `toml:"max_attempts"`
	LeaseExtensionSeconds int     `toml:"lease_extension_seconds"`
	LeaseIntervalSeconds  int     `toml:"lease_interval_seconds"`
	ErrorBackoffSeconds   int     `toml:"error_backoff_seconds"`
	Concurrency           int     `toml:"concurrency"`
	CPUThresholdPercent   float64 `toml:"cpu_threshold_percent"`
	MinFreeMemoryMB       uint64  `toml:"min_free_memory_mb"`
	MinFreeDiskGB         uint64  `toml:"min_free_disk_gb"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the riptide worker.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Queue      Queue      `toml:"queue"`
	Storage    Storage    `toml:"storage"`
	Database   Database   `toml:"database"`
	Transcode  Transcode  `toml:"transcode"`
	Storyboard Storyboard `toml:"storyboard"`
	Worker     Worker     `toml:"worker"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/riptide/config.toml")
}

// Load locates, parses, and validates a configuration file. Environment
// variables (optionally sourced from a .env file) override credentials and
// endpoints after the file is decoded. The returned config has all path
// fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("riptide.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for worker operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	if c == nil || strings.TrimSpace(c.Transcode.FFmpegBinary) == "" {
		return "ffmpeg"
	}
	return strings.TrimSpace(c.Transcode.FFmpegBinary)
}

// FFprobeBinary returns the ffprobe executable name.
func (c *Config) FFprobeBinary() string {
	if c == nil || strings.TrimSpace(c.Transcode.FFprobeBinary) == "" {
		return "ffprobe"
	}
	return strings.TrimSpace(c.Transcode.FFprobeBinary)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
