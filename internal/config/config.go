// Package config defines service configuration and how it is loaded.
package config

import (
	"fmt"
	"strings"

	"github.com/okian/visage/internal/domain/model"
)

// Storage backend names.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogJSON switches the log handler from text to JSON.
	LogJSON bool `koanf:"log_json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DataDir holds the JSON records of the file backend.
	DataDir string `koanf:"data_dir"`

	// StorageBackend is one of file, sqlite, memory.
	StorageBackend string `koanf:"storage_backend"`

	// SQLitePath is the database file of the sqlite backend.
	SQLitePath string `koanf:"sqlite_path"`

	// DescriptorDim is the embedding length produced by the face model.
	// Enrollments of any other length are rejected. Zero disables the check.
	DescriptorDim int `koanf:"descriptor_dim"`

	// ConfidenceThreshold, ShowExpressions and AdaptiveLearning seed the
	// operator settings on first start. Persisted settings win afterwards.
	ConfidenceThreshold float64 `koanf:"confidence_threshold"`
	ShowExpressions     bool    `koanf:"show_expressions"`
	AdaptiveLearning    bool    `koanf:"adaptive_learning"`

	// FrameQueueSize bounds the frame intake queue.
	FrameQueueSize int `koanf:"frame_queue_size"`

	// DedupeSize is how many recent frame ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// HistoryLimit is the default for GET /feedback; MaxHistoryLimit caps it.
	HistoryLimit    int `koanf:"history_limit"`
	MaxHistoryLimit int `koanf:"max_history_limit"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		DataDir:             "./data",
		StorageBackend:      BackendFile,
		SQLitePath:          "./data/visage.db",
		DescriptorDim:       128,
		ConfidenceThreshold: 0.6,
		ShowExpressions:     true,
		AdaptiveLearning:    true,
		FrameQueueSize:      64,
		DedupeSize:          4096,
		HistoryLimit:        10,
		MaxHistoryLimit:     500,
	}
}

// Settings returns the operator settings seeded from c.
func (c *Config) Settings() model.Settings {
	return model.Settings{
		ConfidenceThreshold: c.ConfidenceThreshold,
		ShowExpressions:     c.ShowExpressions,
		AdaptiveLearning:    c.AdaptiveLearning,
	}
}

// Validate reports the first invalid field, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1:
		return fmt.Errorf("%w: confidence_threshold must be within [0,1], got %v", ErrInvalidConfig, c.ConfidenceThreshold)
	case c.DescriptorDim < 0:
		return fmt.Errorf("%w: descriptor_dim must not be negative", ErrInvalidConfig)
	case c.FrameQueueSize <= 0:
		return fmt.Errorf("%w: frame_queue_size must be positive", ErrInvalidConfig)
	case c.HistoryLimit <= 0 || c.MaxHistoryLimit < c.HistoryLimit:
		return fmt.Errorf("%w: need 0 < history_limit <= max_history_limit", ErrInvalidConfig)
	}

	switch c.StorageBackend {
	case BackendFile:
		if c.DataDir == "" {
			return fmt.Errorf("%w: data_dir must not be empty", ErrInvalidConfig)
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite_path must not be empty", ErrInvalidConfig)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: unknown storage_backend %q", ErrInvalidConfig, c.StorageBackend)
	}
	return nil
}
