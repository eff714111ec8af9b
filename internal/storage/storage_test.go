package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neha-iitjdh/ChurnShield-AI/internal/config"
)

func newTestStorage(t *testing.T) *Storage {
	tmpDir := t.TempDir()
	cfg := config.StorageConfig{
		Type:      "local",
		LocalPath: tmpDir,
	}

	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := config.StorageConfig{
		Type:      "local",
		LocalPath: filepath.Join(tmpDir, "models"),
	}

	s, err := New(cfg)
	require.NoError(t, err)
	require.NotNil(t, s)

	// The storage directory is created eagerly.
	info, err := os.Stat(filepath.Join(tmpDir, "models"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewRejectsUnknownType(t *testing.T) {
	_, err := New(config.StorageConfig{Type: "dynamo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage type")
}

func TestNewRejectsS3WithoutBucket(t *testing.T) {
	_, err := New(config.StorageConfig{Type: "s3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket")
}

func TestSaveAndLoadModelState(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	blob := []byte(`{"schema_version":1,"model_id":"abc"}`)
	require.NoError(t, s.SaveModelState(ctx, blob))

	loaded, err := s.LoadModelState(ctx)
	require.NoError(t, err)
	assert.Equal(t, blob, loaded)
}

func TestLoadModelStateBeforeSave(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.LoadModelState(context.Background())
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestSaveModelStateOverwrites(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.SaveModelState(ctx, []byte(`{"model_id":"first"}`)))
	require.NoError(t, s.SaveModelState(ctx, []byte(`{"model_id":"second"}`)))

	loaded, err := s.LoadModelState(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"model_id":"second"}`), loaded)
}

func TestSaveModelStateLeavesNoTempFiles(t *testing.T) {
	tmpDir := t.TempDir()
	s, err := New(config.StorageConfig{Type: "local", LocalPath: tmpDir})
	require.NoError(t, err)

	require.NoError(t, s.SaveModelState(context.Background(), []byte("{}")))

	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "churn_model.json", entries[0].Name())
}

func TestLocation(t *testing.T) {
	s := newTestStorage(t)
	assert.Equal(t, s.config.StatePath(), s.Location())

	s3Store := &Storage{config: config.StorageConfig{
		Type:     "s3",
		S3Bucket: "churn-models",
		S3Key:    "models/churn_model.json",
	}, aws: &AWSStorage{}}
	assert.Equal(t, "s3://churn-models/models/churn_model.json", s3Store.Location())
}
