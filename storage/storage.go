// Package storage keeps run artifacts such as diagnostic screenshots.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

var (
	// ErrInvalidPath is returned when an artifact name is empty, absolute or escapes the store.
	ErrInvalidPath = errors.New("invalid path")
)

// ArtifactStore persists a named artifact and reports where it was written.
type ArtifactStore interface {
	Put(ctx context.Context, name string, reader io.Reader) (string, error)
}

// Config selects and configures an ArtifactStore.
type Config struct {
	Type    string // "none", "local" or "s3"
	BaseDir string // For local: "./screenshots"
	Bucket  string // For S3: bucket name
	Region  string // For S3: AWS region
	Prefix  string // For S3: key prefix
}

// NewArtifactStore creates an ArtifactStore implementation based on configuration.
func NewArtifactStore(cfg Config) (ArtifactStore, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "none":
		return Discard{}, nil

	case "local":
		if cfg.BaseDir == "" {
			return nil, fmt.Errorf("base dir is required for local storage")
		}
		return NewLocalStore(cfg.BaseDir)

	case "s3":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("bucket is required for S3 storage")
		}
		if cfg.Region == "" {
			return nil, fmt.Errorf("region is required for S3 storage")
		}
		return NewS3Store(cfg.Bucket, cfg.Region, cfg.Prefix)

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// Discard drops every artifact.
type Discard struct{}

// Put consumes nothing and reports an empty location.
func (Discard) Put(ctx context.Context, name string, reader io.Reader) (string, error) {
	return "", nil
}

// cleanName validates an artifact name and returns it in slash form.
func cleanName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: name cannot be empty", ErrInvalidPath)
	}

	clean := filepath.Clean(name)
	if filepath.IsAbs(clean) {
		return "", fmt.Errorf("%w: absolute paths not allowed", ErrInvalidPath)
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path traversal detected", ErrInvalidPath)
	}

	return filepath.ToSlash(clean), nil
}
