package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "config-test-secret-0123456789"

const testJSON = `{
	"server_address": ":3000",
	"log_level": "warn",
	"database_dsn": "json-dsn",
	"file_storage_path": "json_storage.json",
	"token_ttl": "2h",
	"bcrypt_cost": 6,
	"trusted_subnet": "192.168.0.0/16",
	"enable_gzip": true
}`

const testYAML = `server_address: ":3500"
sqlite_path: essays.db
db_connection_timeout: 3s
enable_gzip: true
`

func writeTempConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.RunAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10*time.Second, cfg.DBConnectionTimeout)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.False(t, cfg.EnableGzip)
	assert.Empty(t, cfg.GRPCAddr)
	assert.Empty(t, cfg.DatabaseDSN)
	assert.Empty(t, cfg.TrustedSubnet)
}

func TestConfigPriorityJSONOnly(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("CONFIG", writeTempConfig(t, "config.json", testJSON))

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.RunAddr)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN)
	assert.Equal(t, "json_storage.json", cfg.DBFileName)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 6, cfg.BcryptCost)
	assert.Equal(t, "192.168.0.0/16", cfg.TrustedSubnet)
	assert.True(t, cfg.EnableGzip)
}

func TestConfigYAML(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("CONFIG", writeTempConfig(t, "config.yaml", testYAML))

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":3500", cfg.RunAddr)
	assert.Equal(t, "essays.db", cfg.SQLitePath)
	assert.Equal(t, 3*time.Second, cfg.DBConnectionTimeout)
	assert.True(t, cfg.EnableGzip)
}

func TestConfigPriorityJSONPlusEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("CONFIG", writeTempConfig(t, "config.json", testJSON))
	t.Setenv("SERVER_ADDRESS", ":4000")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("ENABLE_GZIP", "false")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":4000", cfg.RunAddr)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.False(t, cfg.EnableGzip)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN)
}

func TestConfigPriorityAllSources(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("CONFIG", writeTempConfig(t, "config.json", testJSON))
	t.Setenv("SERVER_ADDRESS", ":4000")
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := New(WithArgs([]string{
		"-a", ":6000",
		"-r", ":6001",
		"-t", "10.0.0.0/8",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":6000", cfg.RunAddr)
	assert.Equal(t, ":6001", cfg.GRPCAddr)
	assert.Equal(t, "10.0.0.0/8", cfg.TrustedSubnet)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, "json-dsn", cfg.DatabaseDSN)
}

func TestConfigFileFromFlag(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	path := writeTempConfig(t, "config.yml", testYAML)

	cfg, err := New(WithArgs([]string{"-c", path}))
	require.NoError(t, err)

	assert.Equal(t, ":3500", cfg.RunAddr)
	assert.Equal(t, path, cfg.ConfigFile)
}

func TestSecretFromFlag(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")

	cfg, err := New(WithArgs([]string{"-j", testSecret}))
	require.NoError(t, err)

	assert.Equal(t, testSecret, cfg.JWTSecret)
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr error
	}{
		{
			name:    "missing secret",
			env:     map[string]string{},
			wantErr: ErrMissingJWTSecret,
		},
		{
			name: "short secret",
			env:  map[string]string{"JWT_SECRET": "short"},
		},
		{
			name: "unknown log level",
			env:  map[string]string{"JWT_SECRET": testSecret, "LOG_LEVEL": "loud"},
		},
		{
			name: "invalid trusted subnet",
			env:  map[string]string{"JWT_SECRET": testSecret, "TRUSTED_SUBNET": "10.0.0.1"},
		},
		{
			name: "bcrypt cost out of range",
			env:  map[string]string{"JWT_SECRET": testSecret, "BCRYPT_COST": "3"},
		},
		{
			name: "invalid gRPC address",
			env:  map[string]string{"JWT_SECRET": testSecret, "GRPC_ADDRESS": "not an address"},
		},
		{
			name: "malformed duration",
			env:  map[string]string{"JWT_SECRET": testSecret, "TOKEN_TTL": "soon"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			os.Unsetenv("JWT_SECRET")
			for key, value := range tt.env {
				t.Setenv(key, value)
			}

			cfg, err := New(WithDisableFlagsParsing(true))
			require.Error(t, err)
			assert.Nil(t, cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestMalformedConfigFile(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("CONFIG", writeTempConfig(t, "config.json", `{"token_ttl": "never"}`))

	_, err := New(WithDisableFlagsParsing(true))
	require.Error(t, err)

	t.Setenv("CONFIG", filepath.Join(t.TempDir(), "absent.json"))

	_, err = New(WithDisableFlagsParsing(true))
	require.Error(t, err)
}
