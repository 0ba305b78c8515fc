package application

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-panel/internal/domain"
	"github.com/ahrav/go-panel/internal/ports"
)

// TestDefaultConfig_IsValid verifies the defaults pass validation on their own.
func TestDefaultConfig_IsValid(t *testing.T) {
	require.NoError(t, ValidateConfig(DefaultConfig()))
}

// TestDecodeConfig covers overlaying YAML onto the defaults.
func TestDecodeConfig(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
		verify  func(t *testing.T, cfg Config)
	}{
		{
			name: "empty document keeps defaults",
			yaml: "  \n",
			verify: func(t *testing.T, cfg Config) {
				assert.Equal(t, DefaultConfig(), cfg)
			},
		},
		{
			name: "partial overlay",
			yaml: `
storage:
  driver: sqlite
  path: /tmp/panel.db
auth:
  token_ttl: 2h
scoring:
  default_schema: leadership
election:
  tie_breaker: name
`,
			verify: func(t *testing.T, cfg Config) {
				assert.Equal(t, "sqlite", cfg.Storage.Driver)
				assert.Equal(t, "/tmp/panel.db", cfg.Storage.Path)
				assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
				assert.Equal(t, domain.SchemaLeadership, cfg.Scoring.DefaultSchema)
				assert.Equal(t, "name", cfg.Election.TieBreaker)
				assert.Equal(t, DefaultConfig().Import, cfg.Import)
			},
		},
		{
			name:    "unknown field",
			yaml:    "storage:\n  drvier: memory\n",
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			yaml:    "storage: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			err := DecodeConfig(strings.NewReader(tt.yaml), &cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.verify(t, cfg)
		})
	}
}

// TestValidateConfig covers the semantic rules on each section.
func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Storage.Driver = "postgres" }},
		{"sqlite without path", func(c *Config) { c.Storage.Driver = "sqlite" }},
		{"short secret", func(c *Config) { c.Auth.TokenSecret = "short" }},
		{"tiny ttl", func(c *Config) { c.Auth.TokenTTL = time.Second }},
		{"zero login rate", func(c *Config) { c.Auth.LoginRate = 0 }},
		{"bcrypt cost too low", func(c *Config) { c.Auth.BcryptCost = 2 }},
		{"unknown rubric", func(c *Config) { c.Scoring.DefaultSchema = "creative" }},
		{"unknown tie breaker", func(c *Config) { c.Election.TieBreaker = "random" }},
		{"distance below -1", func(c *Config) { c.Import.NearDuplicateDistance = -2 }},
		{"unknown log level", func(c *Config) { c.Log.Level = "trace" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
		})
	}
}

// TestLoadConfig_FileAndEnv verifies the environment overrides the file.
func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panel.yaml")
	require.NoError(t, os.WriteFile(path, []byte("import:\n  max_rows: 50\nlog:\n  level: debug\n"), 0o600))

	t.Setenv("PANEL_LOG_LEVEL", "warn")
	t.Setenv("PANEL_AUTH_LOGIN_BURST", "9")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Import.MaxRows)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 9, cfg.Auth.LoginBurst)
}

// TestLoadConfig_Missing verifies a missing file yields a typed config error.
func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrConfigNotFound))

	var cfgErr *ports.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

// TestLoadConfig_InvalidEnv verifies environment values are validated too.
func TestLoadConfig_InvalidEnv(t *testing.T) {
	t.Setenv("PANEL_STORAGE_DRIVER", "sqlite")
	_, err := LoadConfig("")
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}
