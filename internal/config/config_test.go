package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 9100
  host: "127.0.0.1"

model:
  rounds: 10
  max_depth: 3
  learning_rate: 0.3
  test_fraction: 0.25
  seed: 7

dataset:
  source: "/data/telco.csv"
  positive_label: "True"

storage:
  type: "s3"
  s3_bucket: "churn-models"
  aws_region: "us-east-1"

history:
  path: "/data/predictions.db"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	// Test server config
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)

	// Test model config
	assert.Equal(t, 10, cfg.Model.Rounds)
	assert.Equal(t, 3, cfg.Model.MaxDepth)
	assert.Equal(t, 0.3, cfg.Model.LearningRate)
	assert.Equal(t, 0.25, cfg.Model.TestFraction)
	assert.Equal(t, int64(7), cfg.Model.Seed)

	// Test dataset config
	assert.Equal(t, "/data/telco.csv", cfg.Dataset.Source)
	assert.Equal(t, "True", cfg.Dataset.PositiveLabel)

	// Test storage config
	assert.Equal(t, "s3", cfg.Storage.Type)
	assert.Equal(t, "churn-models", cfg.Storage.S3Bucket)
	assert.Equal(t, "us-east-1", cfg.Storage.AWSRegion)

	// Test history config
	assert.Equal(t, "/data/predictions.db", cfg.History.Path)

	// Unset fields still take defaults
	assert.Equal(t, 1.0, cfg.Model.Lambda)
	assert.Equal(t, "models/churn_model.json", cfg.Storage.S3Key)
}

func TestLoadDefaults(t *testing.T) {
	// A missing config file is fine; everything has a default.
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 100, cfg.Model.Rounds)
	assert.Equal(t, 5, cfg.Model.MaxDepth)
	assert.Equal(t, 0.1, cfg.Model.LearningRate)
	assert.Equal(t, 1.0, cfg.Model.Lambda)
	assert.Equal(t, 1.0, cfg.Model.MinChildWeight)
	assert.Equal(t, 0.2, cfg.Model.TestFraction)
	assert.Equal(t, int64(42), cfg.Model.Seed)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, filepath.Join("data", "models", "churn_model.json"), cfg.Storage.StatePath())
	assert.Equal(t, "data/predictions.db", cfg.History.Path)
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server: [not a mapping"), 0644))

	_, err := Load(configPath)
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9200")
	t.Setenv("DATABASE_PATH", "/tmp/history.db")
	t.Setenv("MODEL_STORAGE_TYPE", "s3")
	t.Setenv("MODEL_S3_BUCKET", "override-bucket")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("CHURN_DATASET_SOURCE", "https://example.com/telco.csv")

	cfg, err := LoadFromEnv(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	// Environment variables should override file values
	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, "/tmp/history.db", cfg.History.Path)
	assert.Equal(t, "s3", cfg.Storage.Type)
	assert.Equal(t, "override-bucket", cfg.Storage.S3Bucket)
	assert.Equal(t, "eu-west-1", cfg.Storage.AWSRegion)
	assert.Equal(t, "https://example.com/telco.csv", cfg.Dataset.Source)
}

func TestLoadFromEnvIgnoresBadPort(t *testing.T) {
	t.Setenv("PORT", "not-a-port")

	cfg, err := LoadFromEnv(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestGetHost(t *testing.T) {
	t.Setenv("ECS_CONTAINER_METADATA_URI", "")
	t.Setenv("AWS_EXECUTION_ENV", "")
	t.Setenv("SERVER_HOST", "")

	c := ServerConfig{Host: "127.0.0.1"}
	assert.Equal(t, "127.0.0.1", c.GetHost())

	t.Setenv("SERVER_HOST", "10.0.0.5")
	assert.Equal(t, "10.0.0.5", c.GetHost())

	// On ECS, always bind all interfaces
	t.Setenv("AWS_EXECUTION_ENV", "AWS_ECS_FARGATE")
	assert.Equal(t, "0.0.0.0", c.GetHost())
}

func TestGetAWSProfile(t *testing.T) {
	t.Setenv("AWS_PROFILE_OVERRIDE", "")
	t.Setenv("ECS_CONTAINER_METADATA_URI", "")
	t.Setenv("AWS_EXECUTION_ENV", "")

	c := StorageConfig{AWSProfile: "dev"}
	assert.Equal(t, "dev", c.GetAWSProfile())

	t.Setenv("AWS_PROFILE_OVERRIDE", "staging")
	assert.Equal(t, "staging", c.GetAWSProfile())

	t.Setenv("AWS_PROFILE_OVERRIDE", "iam")
	assert.Equal(t, "", c.GetAWSProfile())
}

func TestStatePathFallback(t *testing.T) {
	c := StorageConfig{LocalPath: "/var/lib/churn"}
	assert.Equal(t, filepath.Join("/var/lib/churn", "churn_model.json"), c.StatePath())

	c.StateFile = "model-v2.json"
	assert.Equal(t, filepath.Join("/var/lib/churn", "model-v2.json"), c.StatePath())
}
