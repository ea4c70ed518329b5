package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

func init() {
	// Best-effort: a missing .env is not an error.
	_ = godotenv.Load()
}

// applyEnvOverrides layers environment variables over file values. Only
// credentials and endpoints are overridable; behavioral tuning stays in TOML.
func applyEnvOverrides(cfg *Config) {
	if v := envValue("RIPTIDE_QUEUE_URL", "SQS_TRANSCODE_QUEUE_URL"); v != "" {
		cfg.Queue.URL = v
	}
	if v := envValue("AWS_REGION"); v != "" {
		cfg.Queue.Region = v
	}
	if v := envValue("WASABI_ENDPOINT"); v != "" {
		cfg.Storage.Endpoint = v
	}
	if v := envValue("WASABI_REGION"); v != "" {
		cfg.Storage.Region = v
	}
	if v := envValue("WASABI_KEY"); v != "" {
		cfg.Storage.AccessKey = v
	}
	if v := envValue("WASABI_SECRET"); v != "" {
		cfg.Storage.SecretKey = v
	}
	if v := envValue("RIPTIDE_DATABASE_URL", "DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}
}

func envValue(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}
