package application

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-panel/internal/domain"
	"github.com/ahrav/go-panel/internal/ports"
)

// DevelopmentTokenSecret is the signing secret used when none is configured.
// It is only suitable for local runs; the command warns when it is in use.
const DevelopmentTokenSecret = "panel-development-token-secret"

// Config is the complete runtime configuration of the panel. Values come from
// DefaultConfig, then an optional YAML file, then PANEL_* environment
// variables, in that order of increasing precedence.
type Config struct {
	// Storage selects and configures the record store.
	Storage StorageConfig `yaml:"storage" validate:"required"`
	// Auth configures login, password hashing and session tokens.
	Auth AuthConfig `yaml:"auth" validate:"required"`
	// Scoring configures rubric aggregation.
	Scoring ScoringConfig `yaml:"scoring" validate:"required"`
	// Election configures result ordering.
	Election ElectionConfig `yaml:"election" validate:"required"`
	// Import bounds bulk nominee imports.
	Import ImportConfig `yaml:"import"`
	// Metrics toggles the Prometheus collector.
	Metrics MetricsConfig `yaml:"metrics"`
	// Log configures structured logging.
	Log LogConfig `yaml:"log" validate:"required"`
}

// StorageConfig selects the record store implementation.
type StorageConfig struct {
	// Driver is either "memory" (nothing persists past the process) or
	// "sqlite".
	Driver string `yaml:"driver" env:"PANEL_STORAGE_DRIVER" validate:"required,oneof=memory sqlite"`
	// Path is the SQLite database file. Required for the sqlite driver.
	Path string `yaml:"path" env:"PANEL_STORAGE_PATH" validate:"required_if=Driver sqlite"`
}

// AuthConfig controls credential checks and session tokens.
type AuthConfig struct {
	// TokenSecret signs session tokens with HMAC-SHA256.
	TokenSecret string `yaml:"token_secret" env:"PANEL_AUTH_TOKEN_SECRET" validate:"required,min=16"`
	// TokenTTL is how long an issued session token stays valid.
	TokenTTL time.Duration `yaml:"token_ttl" env:"PANEL_AUTH_TOKEN_TTL" validate:"min=1m,max=720h"`
	// LoginRate is the sustained number of login attempts allowed per minute
	// for a single identifier.
	LoginRate float64 `yaml:"login_rate" env:"PANEL_AUTH_LOGIN_RATE" validate:"gt=0,max=600"`
	// LoginBurst is the number of attempts allowed in quick succession.
	LoginBurst int `yaml:"login_burst" env:"PANEL_AUTH_LOGIN_BURST" validate:"min=1,max=100"`
	// BcryptCost is the work factor for newly hashed passwords.
	BcryptCost int `yaml:"bcrypt_cost" env:"PANEL_AUTH_BCRYPT_COST" validate:"min=4,max=31"`
}

// ScoringConfig controls rubric aggregation.
type ScoringConfig struct {
	// DefaultSchema is used for ratings submitted without a schema.
	DefaultSchema domain.Schema `yaml:"default_schema" env:"PANEL_SCORING_DEFAULT_SCHEMA" validate:"required,rubric"`
}

// ElectionConfig controls how results are ordered.
type ElectionConfig struct {
	// TieBreaker orders nominees with equal votes: "input" keeps registration
	// order, "name" sorts alphabetically.
	TieBreaker string `yaml:"tie_breaker" env:"PANEL_ELECTION_TIE_BREAKER" validate:"required,oneof=input name"`
}

// ImportConfig bounds bulk nominee imports.
type ImportConfig struct {
	// MaxRows caps non-blank rows per import; 0 means unlimited.
	MaxRows int `yaml:"max_rows" env:"PANEL_IMPORT_MAX_ROWS" validate:"min=0,max=100000"`
	// NearDuplicateDistance is the largest Levenshtein distance at which two
	// names are reported as possible duplicates; -1 disables the check.
	NearDuplicateDistance int `yaml:"near_duplicate_distance" env:"PANEL_IMPORT_NEAR_DUPLICATE_DISTANCE" validate:"min=-1,max=10"`
}

// MetricsConfig toggles Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"PANEL_METRICS_ENABLED"`
}

// LogConfig configures the slog handler built by the command.
type LogConfig struct {
	Level  string `yaml:"level" env:"PANEL_LOG_LEVEL" validate:"required,oneof=debug info warn error"`
	Format string `yaml:"format" env:"PANEL_LOG_FORMAT" validate:"required,oneof=text json"`
}

// DefaultConfig returns a configuration that runs entirely in memory.
func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{Driver: "memory"},
		Auth: AuthConfig{
			TokenSecret: DevelopmentTokenSecret,
			TokenTTL:    12 * time.Hour,
			LoginRate:   5,
			LoginBurst:  5,
			BcryptCost:  10,
		},
		Scoring:  ScoringConfig{DefaultSchema: domain.SchemaTechnical},
		Election: ElectionConfig{TieBreaker: "input"},
		Import:   ImportConfig{MaxRows: 1000, NearDuplicateDistance: 2},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig builds a Config from defaults, the YAML file at path (skipped
// when path is empty) and the environment, then validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		f, err := os.Open(filepath.Clean(path))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return Config{}, ports.NewConfigError(path, ports.ErrConfigNotFound)
			}
			return Config{}, fmt.Errorf("failed to open config: %w", err)
		}
		defer f.Close()

		if err := DecodeConfig(f, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := ValidateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DecodeConfig overlays the YAML document in r onto cfg. Unknown fields are
// rejected so typos are not silently ignored.
func DecodeConfig(r io.Reader, cfg *Config) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("YAML decode failed: %w", err)
	}
	return nil
}

// ValidateConfig checks cfg against its struct tags and the custom rubric
// validator.
func ValidateConfig(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err)
	}
	return nil
}
