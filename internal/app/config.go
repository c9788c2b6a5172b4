package app

import (
	"fmt"
	"strings"

	coreconfig "github.com/m3rciful/relaybot/core/config"
	coredatabase "github.com/m3rciful/relaybot/core/database"
	"github.com/m3rciful/relaybot/internal/ai"
	"github.com/m3rciful/relaybot/internal/health"
)

// Storage backends.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
	BackendMemory   = "memory"
)

const (
	defaultStorageDir = "data"
	defaultSQLiteFile = "relaybot.db"
)

// StorageConfig selects where users and conversations are kept.
type StorageConfig struct {
	Backend    string `yaml:"backend" envconfig:"STORAGE_BACKEND"`
	Dir        string `yaml:"dir" envconfig:"STORAGE_DIR"`
	SQLitePath string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
}

// S3Config points the s3 backend at a bucket.
type S3Config struct {
	Endpoint  string `yaml:"endpoint" envconfig:"S3_ENDPOINT"`
	AccessKey string `yaml:"access_key" envconfig:"S3_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" envconfig:"S3_SECRET_KEY"`
	Region    string `yaml:"region" envconfig:"S3_REGION"`
	Bucket    string `yaml:"bucket" envconfig:"S3_BUCKET"`
	Prefix    string `yaml:"prefix" envconfig:"S3_PREFIX"`
	Insecure  bool   `yaml:"insecure" envconfig:"S3_INSECURE"`
}

// Config is the full relaybot configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	AI       ai.Config           `yaml:"ai"`
	Storage  StorageConfig       `yaml:"storage"`
	Database coredatabase.Config `yaml:"database"`
	S3       S3Config            `yaml:"s3"`
	Health   health.Config       `yaml:"health"`
}

// CoreConfig implements cmd.ConfigCarrier.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// LoadConfig reads the optional YAML file at path, overlays the environment and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	c.AI = c.AI.WithDefaults()

	s := &c.Storage
	s.Backend = strings.ToLower(strings.TrimSpace(s.Backend))
	if s.Backend == "" {
		s.Backend = BackendFile
	}
	if strings.TrimSpace(s.Dir) == "" {
		s.Dir = defaultStorageDir
	}
	if strings.TrimSpace(s.SQLitePath) == "" {
		s.SQLitePath = s.Dir + "/" + defaultSQLiteFile
	}

	switch s.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	case BackendPostgres:
		if strings.TrimSpace(c.Database.Host) == "" || strings.TrimSpace(c.Database.Name) == "" {
			return fmt.Errorf("database.host and database.name are required when storage.backend is 'postgres'")
		}
		if c.Database.Port == "" {
			c.Database.Port = "5432"
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	case BackendS3:
		if strings.TrimSpace(c.S3.Endpoint) == "" || strings.TrimSpace(c.S3.Bucket) == "" {
			return fmt.Errorf("s3.endpoint and s3.bucket are required when storage.backend is 's3'")
		}
	default:
		return fmt.Errorf("invalid storage.backend %q; allowed: file, sqlite, postgres, s3, memory", c.Storage.Backend)
	}
	return nil
}
