package s3

import (
	"context"
	"errors"
	"testing"

	"stimcore/internal/stimstore/core"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("STIMCORE_STIMULI_S3_BUCKET", "stimuli")
	t.Setenv("STIMCORE_STIMULI_S3_REGION", "eu-central-1")
	t.Setenv("STIMCORE_STIMULI_S3_ENDPOINT", "http://minio:9000")
	t.Setenv("STIMCORE_STIMULI_S3_PATH_STYLE", "TRUE")
	t.Setenv("STIMCORE_STIMULI_S3_ACCESS_KEY_ID", "ak")
	t.Setenv("STIMCORE_STIMULI_S3_SECRET_ACCESS_KEY", "sk")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if cfg.Bucket != "stimuli" || cfg.Region != "eu-central-1" || cfg.Endpoint != "http://minio:9000" {
		t.Fatalf("cfg %+v", cfg)
	}
	if !cfg.PathStyle {
		t.Fatalf("path style not parsed")
	}
	if cfg.AccessKeyID != "ak" || cfg.SecretAccessKey != "sk" {
		t.Fatalf("credentials not parsed")
	}
}

func TestConfigFromEnvRequiresBucket(t *testing.T) {
	t.Setenv("STIMCORE_STIMULI_S3_BUCKET", "")
	if _, err := ConfigFromEnv(); err == nil {
		t.Fatalf("expected error for missing bucket")
	}
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	var msErr core.MissingStoreError
	if !errors.As(err, &msErr) {
		t.Fatalf("expected MissingStoreError, got %v", err)
	}
	if msErr.Driver != core.DriverS3 {
		t.Fatalf("driver %s", msErr.Driver)
	}
}
