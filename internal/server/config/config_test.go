package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func envFrom(values map[string]string) func(string) string {
	return func(key string) string {
		return values[key]
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil, envFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "insights.db", cfg.Storage.SQLitePath)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 10, cfg.RateLimit.PerMinute)
	assert.Equal(t, 100, cfg.RateLimit.PerHour)
	assert.Empty(t, cfg.Security.AllowedIPs)
	assert.False(t, cfg.Bootstrap.Enabled())
	assert.False(t, cfg.ShowVersion)
}

func TestLoad_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "insights.toml")
	content := `
[server]
addr = ":7000"

[jwt]
access_ttl = "5m"
issuer = "from-file"

[rate_limit]
per_minute = 3

[security]
allowed_ips = ["10.0.0.0/8"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	env := envFrom(map[string]string{
		"INSIGHTS_CONFIG":        path,
		"INSIGHTS_JWT_ISSUER":    "from-env",
		"INSIGHTS_RATE_PER_HOUR": "50",
		"INSIGHTS_JWT_SECRET":    testSecret,
	})

	cfg, err := Load([]string{"-addr", ":9000", "-rate-per-hour", "40"}, env)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.ConfigPath)
	assert.Equal(t, ":9000", cfg.Server.Addr, "flag overrides file")
	assert.Equal(t, 5*time.Minute, cfg.JWT.AccessTTL, "file overrides default")
	assert.Equal(t, "from-env", cfg.JWT.Issuer, "env overrides file")
	assert.Equal(t, 3, cfg.RateLimit.PerMinute)
	assert.Equal(t, 40, cfg.RateLimit.PerHour, "flag overrides env")
	assert.Equal(t, []string{"10.0.0.0/8"}, cfg.Security.AllowedIPs)
	assert.Equal(t, testSecret, cfg.JWT.Secret)
}

func TestLoad_ConfigFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "insights.toml")
	require.NoError(t, os.WriteFile(path, []byte("[log]\nformat = \"text\"\n"), 0o600))

	cfg, err := Load([]string{"-config", path}, envFrom(nil))
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		env  map[string]string
		name string
		args []string
	}{
		{
			name: "unknown flag",
			args: []string{"-no-such-flag"},
		},
		{
			name: "invalid env int",
			env:  map[string]string{"INSIGHTS_RATE_PER_MINUTE": "ten"},
		},
		{
			name: "invalid env duration",
			env:  map[string]string{"INSIGHTS_ACCESS_TTL": "forever"},
		},
		{
			name: "missing config file",
			env:  map[string]string{"INSIGHTS_CONFIG": filepath.Join(t.TempDir(), "absent.toml")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.args, envFrom(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestLoad_AllowedIPsAndVersion(t *testing.T) {
	cfg, err := Load([]string{"-version", "-allowed-ips", " 10.1.0.0/16, 192.168.1.5 ,"}, envFrom(nil))
	require.NoError(t, err)

	assert.True(t, cfg.ShowVersion)
	assert.Equal(t, []string{"10.1.0.0/16", "192.168.1.5"}, cfg.Security.AllowedIPs)
}

func TestLoad_OpenAIKeyFallback(t *testing.T) {
	cfg, err := Load(nil, envFrom(map[string]string{"OPENAI_API_KEY": "sk-fallback"}))
	require.NoError(t, err)
	assert.Equal(t, "sk-fallback", cfg.AI.APIKey)

	cfg, err = Load(nil, envFrom(map[string]string{
		"OPENAI_API_KEY":          "sk-fallback",
		"INSIGHTS_OPENAI_API_KEY": "sk-insights",
	}))
	require.NoError(t, err)
	assert.Equal(t, "sk-insights", cfg.AI.APIKey)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.JWT.Secret = testSecret
		return cfg
	}

	tests := []struct {
		mutate  func(*Config)
		name    string
		wantErr bool
	}{
		{name: "valid defaults", mutate: func(*Config) {}},
		{name: "weak secret", mutate: func(c *Config) { c.JWT.Secret = "short" }, wantErr: true},
		{name: "zero access ttl", mutate: func(c *Config) { c.JWT.AccessTTL = 0 }, wantErr: true},
		{name: "sub-second access ttl", mutate: func(c *Config) { c.JWT.AccessTTL = 500 * time.Millisecond }, wantErr: true},
		{name: "sub-second refresh ttl", mutate: func(c *Config) { c.JWT.RefreshTTL = 500 * time.Millisecond }, wantErr: true},
		{name: "zero per minute", mutate: func(c *Config) { c.RateLimit.PerMinute = 0 }, wantErr: true},
		{name: "zero login window", mutate: func(c *Config) { c.RateLimit.LoginWindow = 0 }, wantErr: true},
		{name: "bad allowed ip", mutate: func(c *Config) { c.Security.AllowedIPs = []string{"10.0.0.300"} }, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: true},
		{name: "bad log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: true},
		{name: "empty sqlite path", mutate: func(c *Config) { c.Storage.SQLitePath = "" }, wantErr: true},
		{
			name: "bootstrap valid",
			mutate: func(c *Config) {
				c.Bootstrap.Phone = "+2348012345678"
				c.Bootstrap.Password = "s3cure-pass"
			},
		},
		{
			name:    "bootstrap without password",
			mutate:  func(c *Config) { c.Bootstrap.Phone = "+2348012345678" },
			wantErr: true,
		},
		{
			name: "bootstrap bad phone",
			mutate: func(c *Config) {
				c.Bootstrap.Phone = "12ab"
				c.Bootstrap.Password = "s3cure-pass"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
