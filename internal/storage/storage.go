// Package storage persists the serialized model state, either on local
// disk or in S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/neha-iitjdh/ChurnShield-AI/internal/config"
)

// ErrStateNotFound reports that no model state has been saved yet.
var ErrStateNotFound = errors.New("model state not found")

// Storage reads and writes the model state blob for the configured
// backend. It implements churn.StateStore.
type Storage struct {
	config config.StorageConfig

	// AWS storage (optional)
	aws *AWSStorage
}

// New creates a Storage for the configured backend.
func New(cfg config.StorageConfig) (*Storage, error) {
	s := &Storage{config: cfg}

	switch cfg.Type {
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, errors.New("s3 storage needs a bucket")
		}
		awsStorage, err := NewAWSStorage(context.Background(), cfg.S3Bucket, cfg.AWSRegion, cfg.GetAWSProfile())
		if err != nil {
			return nil, fmt.Errorf("initializing AWS storage: %w", err)
		}
		s.aws = awsStorage

	case "local", "":
		// Ensure local storage directory exists
		if err := os.MkdirAll(cfg.LocalPath, 0755); err != nil {
			return nil, fmt.Errorf("creating storage directory: %w", err)
		}

	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}

	return s, nil
}

// Location describes where model state lives, for log lines.
func (s *Storage) Location() string {
	if s.aws != nil {
		return fmt.Sprintf("s3://%s/%s", s.config.S3Bucket, s.config.S3Key)
	}
	return s.config.StatePath()
}

// SaveModelState writes the state blob to the backend.
func (s *Storage) SaveModelState(ctx context.Context, data []byte) error {
	if s.aws != nil {
		return s.aws.SaveToS3(ctx, s.config.S3Key, data)
	}
	return s.saveLocal(data)
}

// LoadModelState reads the state blob from the backend. A blob that was
// never saved reports ErrStateNotFound.
func (s *Storage) LoadModelState(ctx context.Context) ([]byte, error) {
	if s.aws != nil {
		return s.aws.GetFromS3(ctx, s.config.S3Key)
	}
	return s.loadLocal()
}

// saveLocal writes through a temp file and rename so a crash never
// leaves a half-written model behind.
func (s *Storage) saveLocal(data []byte) error {
	path := s.config.StatePath()

	tmp, err := os.CreateTemp(filepath.Dir(path), ".model-state-*.json")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("installing state file: %w", err)
	}
	return nil
}

func (s *Storage) loadLocal() ([]byte, error) {
	data, err := os.ReadFile(s.config.StatePath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}
	return data, nil
}
