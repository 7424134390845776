package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"front50store/internal/state"
)

const (
	BackendS3    = "s3"
	BackendMinio = "minio"
	BackendLocal = "local"

	CompressionNone = "none"
	CompressionZstd = "zstd"

	envPrefix = "FRONT50STORE_"
)

type Config struct {
	Environment string         `toml:"environment"`
	Storage     StorageConfig  `toml:"storage"`
	S3          S3Config       `toml:"s3"`
	Timeouts    TimeoutsConfig `toml:"timeouts"`
	Retry       RetryConfig    `toml:"retry"`
	Server      ServerConfig   `toml:"server"`
}

type StorageConfig struct {
	Backend     string `toml:"backend"`
	LocalDir    string `toml:"local_dir"`
	Compression string `toml:"compression"`
}

type S3Config struct {
	Endpoint        string `toml:"endpoint"`
	Region          string `toml:"region"`
	Bucket          string `toml:"bucket"`
	RootFolder      string `toml:"root_folder"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	PathStyle       bool   `toml:"path_style"`
}

// TimeoutsConfig holds Go duration strings ("30s", "2m").
type TimeoutsConfig struct {
	Request string `toml:"request"`
	Upload  string `toml:"upload"`
}

type RetryConfig struct {
	MaxAttempts     int    `toml:"max_attempts"`
	InitialInterval string `toml:"initial_interval"`
	MaxInterval     string `toml:"max_interval"`
}

type ServerConfig struct {
	Address     string `toml:"address"`
	AuthToken   string `toml:"auth_token"`
	AllowRemote bool   `toml:"allow_remote"`
}

func DefaultConfig() *Config {
	return &Config{
		Environment: "production",
		Storage: StorageConfig{
			Backend:     BackendS3,
			LocalDir:    "",
			Compression: CompressionNone,
		},
		S3: S3Config{
			Endpoint:   "",
			Region:     "ap-shanghai",
			Bucket:     "spinnaker",
			RootFolder: "front50",
		},
		Timeouts: TimeoutsConfig{
			Request: "30s",
			Upload:  "60s",
		},
		Retry: RetryConfig{
			MaxAttempts:     3,
			InitialInterval: "100ms",
			MaxInterval:     "2s",
		},
		Server: ServerConfig{
			Address: "127.0.0.1:8080",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyEnv overlays FRONT50STORE_* variables onto the decoded file.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strVars := map[string]*string{
		"ENVIRONMENT":          &c.Environment,
		"STORAGE_BACKEND":      &c.Storage.Backend,
		"STORAGE_LOCAL_DIR":    &c.Storage.LocalDir,
		"STORAGE_COMPRESSION":  &c.Storage.Compression,
		"S3_ENDPOINT":          &c.S3.Endpoint,
		"S3_REGION":            &c.S3.Region,
		"S3_BUCKET":            &c.S3.Bucket,
		"S3_ROOT_FOLDER":       &c.S3.RootFolder,
		"S3_ACCESS_KEY_ID":     &c.S3.AccessKeyID,
		"S3_SECRET_ACCESS_KEY": &c.S3.SecretAccessKey,
		"TIMEOUT_REQUEST":      &c.Timeouts.Request,
		"TIMEOUT_UPLOAD":       &c.Timeouts.Upload,
		"SERVER_ADDRESS":       &c.Server.Address,
		"SERVER_AUTH_TOKEN":    &c.Server.AuthToken,
	}
	for name, dst := range strVars {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = v
		}
	}

	boolVars := map[string]*bool{
		"S3_PATH_STYLE":       &c.S3.PathStyle,
		"SERVER_ALLOW_REMOTE": &c.Server.AllowRemote,
	}
	for name, dst := range boolVars {
		v, ok := lookup(envPrefix + name)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s must be a boolean: %w", envPrefix, name, err)
		}
		*dst = b
	}
	return nil
}

func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()
	if c.Environment == "" {
		c.Environment = defaults.Environment
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaults.Storage.Backend
	}
	if c.Storage.Compression == "" {
		c.Storage.Compression = defaults.Storage.Compression
	}
	if c.S3.Bucket == "" {
		c.S3.Bucket = defaults.S3.Bucket
	}
	if c.Timeouts.Request == "" {
		c.Timeouts.Request = defaults.Timeouts.Request
	}
	if c.Timeouts.Upload == "" {
		c.Timeouts.Upload = defaults.Timeouts.Upload
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = defaults.Retry.MaxAttempts
	}
	if c.Retry.InitialInterval == "" {
		c.Retry.InitialInterval = defaults.Retry.InitialInterval
	}
	if c.Retry.MaxInterval == "" {
		c.Retry.MaxInterval = defaults.Retry.MaxInterval
	}
	if c.Server.Address == "" {
		c.Server.Address = defaults.Server.Address
	}
}

func (c *Config) Normalize() {
	c.Environment = strings.ToLower(strings.TrimSpace(c.Environment))
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	c.Storage.Compression = strings.ToLower(strings.TrimSpace(c.Storage.Compression))
	c.Storage.LocalDir = strings.TrimSpace(c.Storage.LocalDir)
	c.S3.Endpoint = strings.TrimRight(strings.TrimSpace(c.S3.Endpoint), "/")
	c.S3.Region = strings.TrimSpace(c.S3.Region)
	c.S3.Bucket = strings.TrimSpace(c.S3.Bucket)
	c.S3.RootFolder = strings.Trim(strings.TrimSpace(c.S3.RootFolder), "/")
	c.Server.Address = strings.TrimSpace(c.Server.Address)
	if c.Storage.Backend == BackendLocal && c.Storage.LocalDir == "" {
		if dir, err := state.LocalStoreDir(); err == nil {
			c.Storage.LocalDir = dir
		}
	}
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendS3, BackendMinio:
		if c.S3.Bucket == "" {
			return errors.New("s3.bucket is required")
		}
	case BackendLocal:
		if c.Storage.LocalDir == "" {
			return errors.New("storage.local_dir is required for the local backend")
		}
	default:
		return errors.New("storage.backend must be s3, minio, or local")
	}
	if c.Storage.Backend == BackendMinio && c.S3.Endpoint == "" {
		return errors.New("s3.endpoint is required for the minio backend")
	}

	switch c.Storage.Compression {
	case CompressionNone, CompressionZstd:
	default:
		return errors.New("storage.compression must be none or zstd")
	}

	durations := []struct {
		name  string
		value string
	}{
		{"timeouts.request", c.Timeouts.Request},
		{"timeouts.upload", c.Timeouts.Upload},
		{"retry.initial_interval", c.Retry.InitialInterval},
		{"retry.max_interval", c.Retry.MaxInterval},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		if parsed <= 0 {
			return fmt.Errorf("%s must be positive", d.name)
		}
	}

	if c.Retry.MaxAttempts < 1 {
		return errors.New("retry.max_attempts must be at least 1")
	}
	return nil
}

func (c *Config) RequestTimeout() time.Duration {
	return mustDuration(c.Timeouts.Request)
}

func (c *Config) UploadTimeout() time.Duration {
	return mustDuration(c.Timeouts.Upload)
}

func (c *Config) RetryInitialInterval() time.Duration {
	return mustDuration(c.Retry.InitialInterval)
}

func (c *Config) RetryMaxInterval() time.Duration {
	return mustDuration(c.Retry.MaxInterval)
}

// mustDuration returns zero for unparsable input; Validate rejects it first.
func mustDuration(v string) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}
