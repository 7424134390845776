package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func noEnv(string) (string, bool) { return "", false }

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load missing file: %v", err)
	}

	if cfg.Storage.Backend != BackendS3 {
		t.Fatalf("unexpected default backend: got %q want %q", cfg.Storage.Backend, BackendS3)
	}
	if cfg.S3.Bucket != "spinnaker" {
		t.Fatalf("unexpected default bucket: got %q want %q", cfg.S3.Bucket, "spinnaker")
	}
	if cfg.S3.RootFolder != "front50" {
		t.Fatalf("unexpected default root folder: got %q want %q", cfg.S3.RootFolder, "front50")
	}
	if cfg.S3.Region != "ap-shanghai" {
		t.Fatalf("unexpected default region: got %q want %q", cfg.S3.Region, "ap-shanghai")
	}
	if cfg.Storage.Compression != CompressionNone {
		t.Fatalf("unexpected default compression: got %q", cfg.Storage.Compression)
	}
	if got := cfg.RequestTimeout(); got != 30*time.Second {
		t.Fatalf("unexpected request timeout: got %s", got)
	}
	if got := cfg.UploadTimeout(); got != time.Minute {
		t.Fatalf("unexpected upload timeout: got %s", got)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Fatalf("unexpected retry attempts: got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Server.Address != "127.0.0.1:8080" {
		t.Fatalf("unexpected server address: got %q", cfg.Server.Address)
	}
}

func TestLoadAppliesDefaultsAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"environment = \" Development \"",
		"",
		"[storage]",
		"backend = \" MINIO \"",
		"compression = \"ZSTD\"",
		"",
		"[s3]",
		"endpoint = \"http://localhost:9000/\"",
		"bucket = \" pipelines \"",
		"root_folder = \"/front50/\"",
		"",
		"[timeouts]",
		"request = \"5s\"",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Environment != "development" {
		t.Fatalf("environment mismatch: got %q", cfg.Environment)
	}
	if cfg.Storage.Backend != BackendMinio {
		t.Fatalf("backend mismatch: got %q", cfg.Storage.Backend)
	}
	if cfg.Storage.Compression != CompressionZstd {
		t.Fatalf("compression mismatch: got %q", cfg.Storage.Compression)
	}
	if cfg.S3.Endpoint != "http://localhost:9000" {
		t.Fatalf("endpoint mismatch: got %q", cfg.S3.Endpoint)
	}
	if cfg.S3.Bucket != "pipelines" {
		t.Fatalf("bucket mismatch: got %q", cfg.S3.Bucket)
	}
	if cfg.S3.RootFolder != "front50" {
		t.Fatalf("root folder mismatch: got %q", cfg.S3.RootFolder)
	}
	if got := cfg.RequestTimeout(); got != 5*time.Second {
		t.Fatalf("request timeout mismatch: got %s", got)
	}
	if got := cfg.UploadTimeout(); got != time.Minute {
		t.Fatalf("upload timeout should fall back to default: got %s", got)
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[s3\nbucket = "), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestApplyEnvOverridesFileValues(t *testing.T) {
	cfg := DefaultConfig()
	env := map[string]string{
		"FRONT50STORE_S3_BUCKET":           "from-env",
		"FRONT50STORE_S3_ACCESS_KEY_ID":    "AKID",
		"FRONT50STORE_S3_PATH_STYLE":       "true",
		"FRONT50STORE_SERVER_ALLOW_REMOTE": "1",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if cfg.S3.Bucket != "from-env" {
		t.Fatalf("bucket mismatch: got %q", cfg.S3.Bucket)
	}
	if cfg.S3.AccessKeyID != "AKID" {
		t.Fatalf("access key mismatch: got %q", cfg.S3.AccessKeyID)
	}
	if !cfg.S3.PathStyle || !cfg.Server.AllowRemote {
		t.Fatalf("expected boolean overrides to apply: %+v %+v", cfg.S3, cfg.Server)
	}

	env["FRONT50STORE_S3_PATH_STYLE"] = "maybe"
	if err := cfg.ApplyEnv(lookup); err == nil || !strings.Contains(err.Error(), "must be a boolean") {
		t.Fatalf("expected boolean parse error, got: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "unknown backend", mutate: func(c *Config) { c.Storage.Backend = "gcs" }, wantErr: "storage.backend"},
		{name: "local without dir", mutate: func(c *Config) { c.Storage.Backend = BackendLocal }, wantErr: "local_dir"},
		{name: "local with dir", mutate: func(c *Config) {
			c.Storage.Backend = BackendLocal
			c.Storage.LocalDir = "/tmp/front50"
		}},
		{name: "minio without endpoint", mutate: func(c *Config) { c.Storage.Backend = BackendMinio }, wantErr: "s3.endpoint"},
		{name: "missing bucket", mutate: func(c *Config) { c.S3.Bucket = "" }, wantErr: "s3.bucket"},
		{name: "bad compression", mutate: func(c *Config) { c.Storage.Compression = "gzip" }, wantErr: "compression"},
		{name: "bad timeout", mutate: func(c *Config) { c.Timeouts.Upload = "soon" }, wantErr: "timeouts.upload"},
		{name: "negative timeout", mutate: func(c *Config) { c.Timeouts.Request = "-1s" }, wantErr: "must be positive"},
		{name: "zero attempts", mutate: func(c *Config) { c.Retry.MaxAttempts = 0 }, wantErr: "max_attempts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			if err := cfg.ApplyEnv(noEnv); err != nil {
				t.Fatalf("apply env: %v", err)
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}
