package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Model   ModelConfig   `yaml:"model"`
	Dataset DatasetConfig `yaml:"dataset"`
	Storage StorageConfig `yaml:"storage"`
	History HistoryConfig `yaml:"history"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	// Allow override via environment
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// ModelConfig holds classifier training hyperparameters
type ModelConfig struct {
	Rounds         int     `yaml:"rounds"`
	MaxDepth       int     `yaml:"max_depth"`
	LearningRate   float64 `yaml:"learning_rate"`
	Lambda         float64 `yaml:"lambda"`
	Gamma          float64 `yaml:"gamma"`
	MinChildWeight float64 `yaml:"min_child_weight"`
	TestFraction   float64 `yaml:"test_fraction"`
	Seed           int64   `yaml:"seed"`
}

// DatasetConfig holds training dataset configuration. Empty fields fall
// back to the Telco defaults in the dataset package.
type DatasetConfig struct {
	Source        string   `yaml:"source"` // file path or http(s) URL
	LabelColumn   string   `yaml:"label_column"`
	PositiveLabel string   `yaml:"positive_label"`
	Features      []string `yaml:"features"`
}

// StorageConfig holds model state storage configuration
type StorageConfig struct {
	Type       string `yaml:"type"` // "local" or "s3"
	LocalPath  string `yaml:"local_path"`
	StateFile  string `yaml:"state_file"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Key      string `yaml:"s3_key"`
	AWSRegion  string `yaml:"aws_region"`
	AWSProfile string `yaml:"aws_profile"` // Empty string uses default credential chain (IAM role on ECS)
}

// StatePath returns the local file the model state is written to.
func (c StorageConfig) StatePath() string {
	name := c.StateFile
	if name == "" {
		name = "churn_model.json"
	}
	return filepath.Join(c.LocalPath, name)
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c StorageConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return "" // Use default credential chain (IAM role)
		}
		return envProfile
	}
	// On ECS/Lambda, don't use a profile - use IAM role
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "" // Running on ECS or Lambda, use IAM role
	}
	return c.AWSProfile
}

// HistoryConfig holds prediction history database configuration
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// Load reads and parses the configuration file. A missing file is not
// an error; the defaults describe a complete local setup.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Model.Rounds == 0 {
		cfg.Model.Rounds = 100
	}
	if cfg.Model.MaxDepth == 0 {
		cfg.Model.MaxDepth = 5
	}
	if cfg.Model.LearningRate == 0 {
		cfg.Model.LearningRate = 0.1
	}
	if cfg.Model.Lambda == 0 {
		cfg.Model.Lambda = 1.0
	}
	if cfg.Model.MinChildWeight == 0 {
		cfg.Model.MinChildWeight = 1.0
	}
	if cfg.Model.TestFraction == 0 {
		cfg.Model.TestFraction = 0.2
	}
	if cfg.Model.Seed == 0 {
		cfg.Model.Seed = 42
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "data/models"
	}
	if cfg.Storage.StateFile == "" {
		cfg.Storage.StateFile = "churn_model.json"
	}
	if cfg.Storage.S3Key == "" {
		cfg.Storage.S3Key = "models/churn_model.json"
	}
	if cfg.Storage.AWSRegion == "" {
		cfg.Storage.AWSRegion = "us-west-2"
	}
	if cfg.History.Path == "" {
		cfg.History.Path = "data/predictions.db"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so settings can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables if present
	if port := os.Getenv("PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = n
		}
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		cfg.History.Path = dbPath
	}
	if storageType := os.Getenv("MODEL_STORAGE_TYPE"); storageType != "" {
		cfg.Storage.Type = storageType
	}
	if bucket := os.Getenv("MODEL_S3_BUCKET"); bucket != "" {
		cfg.Storage.S3Bucket = bucket
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		cfg.Storage.AWSRegion = region
	}
	if source := os.Getenv("CHURN_DATASET_SOURCE"); source != "" {
		cfg.Dataset.Source = source
	}

	return cfg, nil
}
