package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Pipeline PipelineConfig `mapstructure:"pipeline" validate:"required"`
	Backup   BackupConfig   `mapstructure:"backup"   validate:"required"`
	Upload   UploadConfig   `mapstructure:"upload"   validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains settings for signed backup-download tokens.
type AuthConfig struct {
	DownloadTokenSecret          string `mapstructure:"download_token_secret"           validate:"required,min=32"`
	DownloadTokenLifetimeMinutes int    `mapstructure:"download_token_lifetime_minutes" validate:"required,gt=0"`
}

// PipelineConfig contains settings for the media pipeline workers and
// the external transformation tools they invoke.
type PipelineConfig struct {
	// TranscriptionURL is the base URL of the speech-to-text service.
	TranscriptionURL string `mapstructure:"transcription_url" validate:"required,url"`

	// EmotionURL is the base URL of the voice emotion recognition service.
	EmotionURL string `mapstructure:"emotion_url" validate:"required,url"`

	// FFmpegPath is the ffmpeg binary used for HLS transcoding.
	FFmpegPath string `mapstructure:"ffmpeg_path" validate:"required"`

	// QueueSize is the buffer size of each pipeline job queue.
	QueueSize int `mapstructure:"queue_size" validate:"required,gt=0"`

	// ToolTimeoutSeconds bounds a single external tool invocation.
	ToolTimeoutSeconds int `mapstructure:"tool_timeout_seconds" validate:"required,gt=0"`
}

// BackupConfig contains settings for the backup/restore engine.
type BackupConfig struct {
	// UploadRoot is the managed root directory holding user media files.
	// Every archive path and restored file path must resolve within it.
	UploadRoot string `mapstructure:"upload_root" validate:"required"`

	// WorkDir is where backup archives are assembled and restore archives
	// are extracted. Temp extraction directories live under it.
	WorkDir string `mapstructure:"work_dir" validate:"required"`

	// QueueSize is the buffer size of the backup/restore job queue.
	QueueSize int `mapstructure:"queue_size" validate:"required,gt=0"`

	// Vault selects the offsite archive storage backend: "none",
	// "filesystem" or "s3".
	Vault string `mapstructure:"vault" validate:"required,oneof=none filesystem s3"`

	// VaultPath is the target directory for the filesystem vault.
	VaultPath string `mapstructure:"vault_path"`

	// Passphrase, when set, encrypts archives before they leave the
	// work directory.
	Passphrase string `mapstructure:"passphrase"`

	S3 S3Config `mapstructure:"s3"`
}

// S3Config holds S3-compatible storage settings for the archive vault.
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// UploadConfig contains settings for video upload sessions.
type UploadConfig struct {
	// SessionTTLMinutes is how long an unfinished upload session lives
	// before its temp artifact is reaped.
	SessionTTLMinutes int `mapstructure:"session_ttl_minutes" validate:"required,gt=0"`
}

// LLMConfig contains settings for the journal insight generator.
// Insights are optional: an empty API key disables the insight queue.
type LLMConfig struct {
	GeminiAPIKey       string `mapstructure:"gemini_api_key"`
	ModelName          string `mapstructure:"model_name"`
	PromptTemplatePath string `mapstructure:"prompt_template_path"`
	MaxRetries         int    `mapstructure:"max_retries"`
	RetryDelaySeconds  int    `mapstructure:"retry_delay_seconds"`
}
