package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	once    sync.Once
	initErr error
)

// Init initializes the configuration system.
// This should be called once at application startup.
func Init() error {
	once.Do(func() {
		setDefaults()

		viper.SetEnvPrefix("SCRIBE")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		configPath := filepath.Clean("./config/settings.yaml")
		viper.SetConfigFile(configPath)

		if err := viper.ReadInConfig(); err != nil {
			// Missing config file is fine - defaults and env vars cover it
			if !os.IsNotExist(err) {
				initErr = fmt.Errorf("error reading config file %s: %w", configPath, err)
				return
			}
		}

		if err := validate(); err != nil {
			initErr = fmt.Errorf("invalid configuration: %w", err)
		}
	})

	return initErr
}

// GetConfig returns the current configuration as a struct.
// Init() must be called before using this.
func GetConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// GetString returns a string config value
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetInt64 returns an int64 config value
func GetInt64(key string) int64 {
	return viper.GetInt64(key)
}

// GetBool returns a bool config value
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a time.Duration config value
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// validate validates the configuration using Viper values
func validate() error {
	port := viper.GetInt("server.port")
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server port: %d", port)
	}

	if viper.GetString("database.path") == "" {
		fmt.Println("Warning: No database path configured")
	}

	if err := validateSecrets(); err != nil {
		return err
	}

	// Auto-correct invalid worker count
	if viper.GetInt("processing.workers") <= 0 {
		viper.Set("processing.workers", 2)
	}

	if viper.GetInt64("recordings.max_upload_bytes") <= 0 {
		viper.Set("recordings.max_upload_bytes", int64(512*1024*1024))
	}

	if viper.GetInt("client.retry_ceiling") <= 0 {
		viper.Set("client.retry_ceiling", 5)
	}

	return nil
}

// validateSecrets rejects placeholder secrets in production
func validateSecrets() error {
	env := viper.GetString("environment")
	isProduction := env == "production" || env == "prod"

	placeholders := []string{
		"YOUR_KEY_HERE",
		"YOUR_SECRET_HERE",
		"changeme",
		"CHANGEME",
		"",
	}

	checks := map[string]string{
		"provider.api_key":        viper.GetString("provider.api_key"),
		"provider.webhook_secret": viper.GetString("provider.webhook_secret"),
		"auth.jwt_secret":         viper.GetString("auth.jwt_secret"),
	}

	for key, value := range checks {
		for _, placeholder := range placeholders {
			if value == placeholder {
				if isProduction {
					return fmt.Errorf("invalid %s: cannot use placeholder values in production", key)
				}
				fmt.Printf("Warning: %s is using a placeholder value\n", key)
				break
			}
		}
	}

	return nil
}

// Validate validates a Config struct (for testing)
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Processing.Workers <= 0 {
		c.Processing.Workers = 2
	}

	if c.Recordings.MaxUploadBytes <= 0 {
		c.Recordings.MaxUploadBytes = 512 * 1024 * 1024
	}

	if c.Client.RetryCeiling <= 0 {
		c.Client.RetryCeiling = 5
	}

	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("environment", "development")

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.max_header_bytes", 1048576)

	// Database defaults
	viper.SetDefault("database.path", "./data/consult.db")
	viper.SetDefault("database.verbose", false)

	// Blob storage defaults
	viper.SetDefault("storage.region", "eu-west-2")
	viper.SetDefault("storage.bucket", "consult-recordings")
	viper.SetDefault("storage.presign_expire", 15*time.Minute)

	// Transcription provider defaults
	viper.SetDefault("provider.base_url", "https://api.transcription.example.com/v1")
	viper.SetDefault("provider.timeout", 10*time.Second)

	// Auth defaults
	viper.SetDefault("auth.token_expire", 24*time.Hour)

	// Recording lifecycle defaults
	viper.SetDefault("recordings.max_upload_bytes", int64(512*1024*1024))
	viper.SetDefault("recordings.downstream_url", "")

	// Processing defaults
	viper.SetDefault("processing.workers", 2)
	viper.SetDefault("processing.poll_interval", 5*time.Second)
	viper.SetDefault("processing.retry_attempts", 3)
	viper.SetDefault("processing.retry_delay", 5*time.Second)

	// Sync agent defaults
	viper.SetDefault("client.queue_path", "./data/pending.db")
	viper.SetDefault("client.server_url", "http://localhost:8080")
	viper.SetDefault("client.retry_ceiling", 5)
	viper.SetDefault("client.retry_delay", 2*time.Second)
	viper.SetDefault("client.sync_interval", 15*time.Second)
	viper.SetDefault("client.probe_interval", 30*time.Second)
	viper.SetDefault("client.probe_timeout", 3*time.Second)
	viper.SetDefault("client.slow_threshold", 1500*time.Millisecond)
	viper.SetDefault("client.large_payload_bytes", int64(25*1024*1024))
}
