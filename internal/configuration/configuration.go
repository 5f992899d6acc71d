package configuration

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig represents the complete application configuration.
type AppConfig struct {
	// Logger — logger component configuration
	Logger LoggerConfig `mapstructure:"logger"`
	// Server — HTTP server configuration
	Server ServerConfig `mapstructure:"server"`
	// Scoring — scoring entry point configuration
	Scoring ScoringConfig `mapstructure:"scoring"`
	// History — in-memory invocation history configuration
	History HistoryConfig `mapstructure:"history"`
	// Journal — invocation journal file configuration
	Journal JournalConfig `mapstructure:"journal"`
}

// LoggerConfig defines logging settings.
type LoggerConfig struct {
	// Level — log level: debug, info, warn, warning, error.
	// Value is case-insensitive.
	Level string `mapstructure:"level"`
}

// ServerConfig contains HTTP server parameters.
type ServerConfig struct {
	// Address — address and port where the server will listen (e.g., ":5001").
	Address string `mapstructure:"address"`
	// ReadTimeout — maximum duration for reading the entire request.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout — maximum duration before timing out writes of the response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// MaxBodyBytes — maximum size of a scoring request body.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}

// ScoringConfig defines where the model directory comes from and how it is listed.
type ScoringConfig struct {
	// EnvVar — environment variable holding the model directory path.
	EnvVar string `mapstructure:"env_var"`
	// Exclude — CEL expressions over name, ext, size and dir.
	// Entries matching any of them are left out of the listing.
	Exclude []string `mapstructure:"exclude"`
}

// HistoryConfig defines the in-memory invocation history.
type HistoryConfig struct {
	// Length — maximum number of kept records.
	Length int `mapstructure:"length"`
	// Ttl — records older than this are pruned. Zero keeps records until evicted.
	Ttl time.Duration `mapstructure:"ttl"`
}

// JournalConfig defines the invocation journal file.
type JournalConfig struct {
	// File — journal file path. Empty disables the journal.
	File string `mapstructure:"file"`
	// Size — file size in megabytes that triggers rotation.
	Size int `mapstructure:"size"`
	// Amount — number of rotated files kept.
	Amount int `mapstructure:"amount"`
}

// Validate checks the whole configuration and returns the first detected error.
func (c *AppConfig) Validate() error {
	if err := c.Logger.Validate(); err != nil {
		return err
	}

	if err := c.Server.Validate(); err != nil {
		return err
	}

	if err := c.Scoring.Validate(); err != nil {
		return err
	}

	if err := c.History.Validate(); err != nil {
		return err
	}

	if err := c.Journal.Validate(); err != nil {
		return err
	}

	return nil
}

// Validate verifies that the log level is set and supported.
func (l *LoggerConfig) Validate() error {
	if l.Level == "" {
		return errors.New("logger.level: must be specified")
	}

	valid := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !valid[strings.ToLower(l.Level)] {
		return fmt.Errorf("logger.level: unsupported level '%s'", l.Level)
	}

	return nil
}

// Validate verifies that the server address is set.
func (n *ServerConfig) Validate() error {
	if n.Address == "" {
		return errors.New("server.address: must be specified")
	}

	if n.ReadTimeout <= 0 {
		return errors.New("server.read_timeout: must be positive")
	}

	if n.WriteTimeout <= 0 {
		return errors.New("server.write_timeout: must be positive")
	}

	if n.MaxBodyBytes <= 0 {
		return errors.New("server.max_body_bytes: must be positive")
	}

	return nil
}

// Validate verifies that the model directory variable is named.
// Exclusion expressions are compiled later by the lister.
func (s *ScoringConfig) Validate() error {
	if s.EnvVar == "" {
		return errors.New("scoring.env_var: must be specified")
	}

	for i, expr := range s.Exclude {
		if strings.TrimSpace(expr) == "" {
			return fmt.Errorf("scoring.exclude[%d]: must not be empty", i)
		}
	}

	return nil
}

func (h *HistoryConfig) Validate() error {
	if h.Length <= 0 {
		return errors.New("history.length: must be positive")
	}

	if h.Ttl < 0 {
		return errors.New("history.ttl: must not be negative")
	}

	return nil
}

func (j *JournalConfig) Validate() error {
	if j.File == "" {
		return nil
	}

	if j.Size <= 0 {
		return errors.New("journal.size: must be positive")
	}

	if j.Amount < 0 {
		return errors.New("journal.amount: must not be negative")
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("server.address", ":5001")
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.max_body_bytes", 100<<20)
	v.SetDefault("scoring.env_var", "AZUREML_MODEL_DIR")
	v.SetDefault("scoring.exclude", []string{})
	v.SetDefault("history.length", 100)
	v.SetDefault("history.ttl", time.Hour)
	v.SetDefault("journal.file", "")
	v.SetDefault("journal.size", 100)
	v.SetDefault("journal.amount", 20)
}

// LoadConfig loads configuration from the YAML file at configPath using Viper.
// An empty configPath skips the file, leaving defaults and environment.
// Environment variables override file values: server.address is read from
// SERVER_ADDRESS, and so on.
//
// Returns an error if the file is not readable, has invalid format
// or one of the sections fails validation.
func LoadConfig(configPath string) (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}
