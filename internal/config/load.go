package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config file. Environment variables take precedence over file values.
// Returns a populated Config struct or an error if loading or validation
// fails.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults for everything that has a sensible one. Secrets and
	// machine-specific paths must come from the environment or file.
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("auth.download_token_lifetime_minutes", 15)
	v.SetDefault("pipeline.transcription_url", "http://localhost:9000")
	v.SetDefault("pipeline.emotion_url", "http://localhost:9001")
	v.SetDefault("pipeline.ffmpeg_path", "ffmpeg")
	v.SetDefault("pipeline.queue_size", 100)
	v.SetDefault("pipeline.tool_timeout_seconds", 300)
	v.SetDefault("backup.queue_size", 20)
	v.SetDefault("backup.vault", "none")
	v.SetDefault("upload.session_ttl_minutes", 30)
	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_seconds", 2)

	// Keys without defaults still need to be known to viper so that
	// AutomaticEnv picks them up during Unmarshal.
	for _, key := range []string{
		"database.url",
		"auth.download_token_secret",
		"backup.upload_root",
		"backup.work_dir",
		"backup.vault_path",
		"backup.passphrase",
		"backup.s3.endpoint",
		"backup.s3.bucket",
		"backup.s3.region",
		"backup.s3.access_key",
		"backup.s3.secret_key",
		"llm.gemini_api_key",
		"llm.prompt_template_path",
	} {
		v.SetDefault(key, "")
	}

	// Optional config file in the working directory.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables: REVERIE_SERVER_PORT, REVERIE_DATABASE_URL, ...
	v.SetEnvPrefix("REVERIE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
