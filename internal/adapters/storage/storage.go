// Package storage persists named JSON records. It is the durable home of the
// descriptor store, the feedback ledger, the learning statistics and the
// operator settings.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/visage/pkg/errs"
	"github.com/okian/visage/pkg/metrics"
)

// Record keys.
const (
	KeyFaces    = "faceDatabase"
	KeyFeedback = "feedbackDatabase"
	KeyStats    = "learningStats"
	KeySettings = "settings"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Backend stores opaque blobs under string keys.
type Backend interface {
	// Load returns ErrNotFound when key has never been saved.
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open builds the backend named kind. dir is used by the file backend and
// path by the sqlite backend.
func Open(ctx context.Context, kind, dir, path string) (Backend, error) {
	switch kind {
	case BackendFile:
		return NewFile(dir)
	case BackendSQLite:
		return NewSQLite(ctx, path)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
	}
}

// LoadJSON decodes the record under key into v. A missing record returns
// ErrNotFound; undecodable content is reported as errs.ErrConfiguration.
func LoadJSON(ctx context.Context, b Backend, key string, v any) error {
	start := time.Now()
	defer func() { metrics.RecordStorageLatency("load", msSince(start)) }()

	data, err := b.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if err != nil {
		metrics.RecordStorageError("load")
		return fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		metrics.RecordStorageCorrupt(key)
		return errs.Wrap("storage.load "+key, errs.ErrConfiguration, err)
	}
	return nil
}

// SaveJSON encodes v and stores it under key.
func SaveJSON(ctx context.Context, b Backend, key string, v any) error {
	start := time.Now()
	defer func() { metrics.RecordStorageLatency("save", msSince(start)) }()

	data, err := json.Marshal(v)
	if err != nil {
		metrics.RecordStorageError("encode")
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := b.Save(ctx, key, data); err != nil {
		metrics.RecordStorageError("save")
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func validKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\.`) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
