package config

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(4)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.MaxClients)
	assert.Equal(t, uint16(8080), cfg.RelayPort)
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 0, cfg.SessionLimit)
	assert.False(t, cfg.AdminEnabled)
	assert.Equal(t, uint16(8085), cfg.HttpServerPort)
	assert.False(t, cfg.RedisEnabled)
	assert.Equal(t, "localhost", cfg.RedisHost)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.LogFile)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("RELAY_PORT", "9100")
	t.Setenv("WRITE_TIMEOUT", "250ms")
	t.Setenv("ADMIN_ENABLED", "true")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FILE", "/tmp/relay.log")

	cfg, err := LoadConfig(1)
	require.NoError(t, err)
	assert.Equal(t, uint16(9100), cfg.RelayPort)
	assert.Equal(t, 250*time.Millisecond, cfg.WriteTimeout)
	assert.True(t, cfg.AdminEnabled)
	assert.True(t, cfg.RedisEnabled)
	assert.Equal(t, "cache", cfg.RedisHost)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/relay.log", cfg.LogFile)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name       string
		maxClients int
		env        map[string]string
		field      string
	}{
		{name: "zero clients", maxClients: 0, field: "MaxClients"},
		{name: "bad log level", maxClients: 2, env: map[string]string{"LOG_LEVEL": "trace"}, field: "LogLevel"},
		{name: "admin port too low", maxClients: 2, env: map[string]string{"HTTP_SERVER_PORT": "80"}, field: "HttpServerPort"},
		{name: "negative session limit", maxClients: 2, env: map[string]string{"SESSION_LIMIT": "-1"}, field: "SessionLimit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig(tt.maxClients)
			require.Error(t, err)

			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, tt.field, verrs[0].Field())
		})
	}
}

func TestLoadConfigParseError(t *testing.T) {
	t.Setenv("RELAY_PORT", "not-a-port")
	_, err := LoadConfig(2)
	require.Error(t, err)
}
