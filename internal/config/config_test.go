package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"riptide/internal/config"
)

func TestLoadDefaultConfigUsesEnvQueueURLAndExpandsPaths(t *testing.T) {
	t.Setenv("RIPTIDE_QUEUE_URL", "https://sqs.us-east-1.amazonaws.com/123/transcode")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if cfg.Queue.Backend != config.QueueBackendSQS {
		t.Fatalf("unexpected queue backend: %q", cfg.Queue.Backend)
	}
	if cfg.Queue.URL != "https://sqs.us-east-1.amazonaws.com/123/transcode" {
		t.Fatalf("expected queue URL from env, got %q", cfg.Queue.URL)
	}
	wantLogDir := filepath.Join(tempHome, ".local", "share", "riptide", "logs")
	if cfg.Paths.LogDir != wantLogDir {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogDir)
	}
	if cfg.Worker.MaxAttempts != config.Default().Worker.MaxAttempts {
		t.Fatalf("unexpected max attempts: %d", cfg.Worker.MaxAttempts)
	}
	if cfg.Worker.LeaseIntervalSeconds >= cfg.Worker.LeaseExtensionSeconds {
		t.Fatalf("default lease interval %d must be below extension %d",
			cfg.Worker.LeaseIntervalSeconds, cfg.Worker.LeaseExtensionSeconds)
	}
	if !cfg.Storyboard.Enabled {
		t.Fatal("expected storyboard generation enabled by default")
	}
	if cfg.Transcode.KeyframeFrames%cfg.Transcode.SegmentSeconds != 0 {
		t.Fatalf("default keyframe interval %d does not divide by segment length %d",
			cfg.Transcode.KeyframeFrames, cfg.Transcode.SegmentSeconds)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.WorkDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "riptide.toml")

	type payload struct {
		Queue struct {
			Backend    string `toml:"backend"`
			SQLitePath string `toml:"sqlite_path"`
		} `toml:"queue"`
		Transcode struct {
			VideoBitrate string `toml:"video_bitrate"`
		} `toml:"transcode"`
		Worker struct {
			Concurrency int `toml:"concurrency"`
		} `toml:"worker"`
	}
	custom := payload{}
	custom.Queue.Backend = "SQLite"
	custom.Queue.SQLitePath = filepath.Join(tempDir, "queue.db")
	custom.Transcode.VideoBitrate = "3500k"
	custom.Worker.Concurrency = 4

	encoded, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, encoded, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if !exists {
		t.Fatal("expected config file to be reported as present")
	}
	if cfg.Queue.Backend != config.QueueBackendSQLite {
		t.Fatalf("expected backend normalized to sqlite, got %q", cfg.Queue.Backend)
	}
	if cfg.Queue.SQLitePath != custom.Queue.SQLitePath {
		t.Fatalf("unexpected sqlite path: %q", cfg.Queue.SQLitePath)
	}
	if cfg.Transcode.VideoBitrate != "3500k" {
		t.Fatalf("unexpected video bitrate: %q", cfg.Transcode.VideoBitrate)
	}
	if cfg.Worker.Concurrency != 4 {
		t.Fatalf("unexpected concurrency: %d", cfg.Worker.Concurrency)
	}
	// Values the file omits fall back to defaults.
	if cfg.Transcode.AudioSampleRate != config.Default().Transcode.AudioSampleRate {
		t.Fatalf("unexpected audio sample rate: %d", cfg.Transcode.AudioSampleRate)
	}
	if cfg.Queue.PollWaitSeconds != config.Default().Queue.PollWaitSeconds {
		t.Fatalf("unexpected poll wait: %d", cfg.Queue.PollWaitSeconds)
	}
}

func TestValidateRejectsBrokenConfigs(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *config.Config)
		wantSub string
	}{
		{
			name: "sqs backend without url",
			mutate: func(cfg *config.Config) {
				cfg.Queue.Backend = config.QueueBackendSQS
				cfg.Queue.URL = ""
			},
			wantSub: "queue.url",
		},
		{
			name: "sqlite backend without path",
			mutate: func(cfg *config.Config) {
				cfg.Queue.Backend = config.QueueBackendSQLite
				cfg.Queue.SQLitePath = ""
			},
			wantSub: "queue.sqlite_path",
		},
		{
			name: "unknown backend",
			mutate: func(cfg *config.Config) {
				cfg.Queue.Backend = "rabbitmq"
			},
			wantSub: "not supported",
		},
		{
			name: "lease interval too close to extension",
			mutate: func(cfg *config.Config) {
				cfg.Queue.Backend = config.QueueBackendSQLite
				cfg.Queue.SQLitePath = "/tmp/queue.db"
				cfg.Worker.LeaseExtensionSeconds = 60
				cfg.Worker.LeaseIntervalSeconds = 60
			},
			wantSub: "lease_interval_seconds",
		},
		{
			name: "keyframe interval off segment boundary",
			mutate: func(cfg *config.Config) {
				cfg.Queue.Backend = config.QueueBackendSQLite
				cfg.Queue.SQLitePath = "/tmp/queue.db"
				cfg.Transcode.KeyframeFrames = 100
				cfg.Transcode.SegmentSeconds = 6
			},
			wantSub: "keyframe_frames",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("error %q does not mention %q", err, tc.wantSub)
			}
		})
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Queue.URL = "https://sqs.us-east-1.amazonaws.com/123/transcode"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}
