package config

import "time"

// Config is the root configuration structure
type Config struct {
	Environment string           `mapstructure:"environment"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Storage     StorageConfig    `mapstructure:"storage"`
	Provider    ProviderConfig   `mapstructure:"provider"`
	Auth        AuthConfig       `mapstructure:"auth"`
	Recordings  RecordingsConfig `mapstructure:"recordings"`
	Processing  ProcessingConfig `mapstructure:"processing"`
	Client      ClientConfig     `mapstructure:"client"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
}

// DatabaseConfig holds SQLite settings for the server-side store
type DatabaseConfig struct {
	Path    string `mapstructure:"path"`
	Verbose bool   `mapstructure:"verbose"`
}

// StorageConfig holds blob storage (S3) settings
type StorageConfig struct {
	Region          string        `mapstructure:"region"`
	Bucket          string        `mapstructure:"bucket"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	PresignExpire   time.Duration `mapstructure:"presign_expire"`
}

// ProviderConfig holds transcription provider settings
type ProviderConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	APIKey        string        `mapstructure:"api_key"`
	CallbackURL   string        `mapstructure:"callback_url"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// AuthConfig holds token settings for the owner-facing API
type AuthConfig struct {
	JWTSecret   string        `mapstructure:"jwt_secret"`
	TokenExpire time.Duration `mapstructure:"token_expire"`
}

// RecordingsConfig holds recording lifecycle settings
type RecordingsConfig struct {
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
	DownstreamURL  string `mapstructure:"downstream_url"`
}

// ProcessingConfig holds background job processing settings
type ProcessingConfig struct {
	Workers       int           `mapstructure:"workers"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
}

// ClientConfig holds sync-agent (client-resident) settings
type ClientConfig struct {
	QueuePath         string        `mapstructure:"queue_path"`
	ServerURL         string        `mapstructure:"server_url"`
	Token             string        `mapstructure:"token"`
	RetryCeiling      int           `mapstructure:"retry_ceiling"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	SyncInterval      time.Duration `mapstructure:"sync_interval"`
	ProbeInterval     time.Duration `mapstructure:"probe_interval"`
	ProbeTimeout      time.Duration `mapstructure:"probe_timeout"`
	SlowThreshold     time.Duration `mapstructure:"slow_threshold"`
	LargePayloadBytes int64         `mapstructure:"large_payload_bytes"`
}
