package config

import (
	"os"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	setDefaults()

	assert.Equal(t, 8080, GetInt("server.port"))
	assert.Equal(t, "./data/consult.db", GetString("database.path"))
	assert.Equal(t, 5, GetInt("client.retry_ceiling"))
	assert.Equal(t, int64(512*1024*1024), GetInt64("recordings.max_upload_bytes"))
	assert.Equal(t, 2, GetInt("processing.workers"))
}

func TestEnvironmentOverride(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	os.Setenv("SCRIBE_SERVER_PORT", "9090")
	defer os.Unsetenv("SCRIBE_SERVER_PORT")

	setDefaults()
	viper.SetEnvPrefix("SCRIBE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	assert.Equal(t, 9090, GetInt("server.port"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		setup   func()
		wantErr bool
	}{
		{
			name: "defaults pass validation",
			setup: func() {
				setDefaults()
			},
			wantErr: false,
		},
		{
			name: "invalid port rejected",
			setup: func() {
				setDefaults()
				viper.Set("server.port", -1)
			},
			wantErr: true,
		},
		{
			name: "placeholder secret rejected in production",
			setup: func() {
				setDefaults()
				viper.Set("environment", "production")
				viper.Set("provider.webhook_secret", "changeme")
			},
			wantErr: true,
		},
		{
			name: "zero workers auto-corrected",
			setup: func() {
				setDefaults()
				viper.Set("environment", "development")
				viper.Set("provider.webhook_secret", "test-secret")
				viper.Set("provider.api_key", "test-key")
				viper.Set("auth.jwt_secret", "test-jwt")
				viper.Set("processing.workers", 0)
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			tt.setup()
			err := validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				if tt.name == "zero workers auto-corrected" {
					assert.Equal(t, 2, GetInt("processing.workers"))
				}
			}
			viper.Reset()
		})
	}
}

func TestConfigStructValidate(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 8080
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 2, cfg.Processing.Workers)
	assert.Equal(t, 5, cfg.Client.RetryCeiling)

	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())
}
