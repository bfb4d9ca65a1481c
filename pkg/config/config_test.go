package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("WHITELIST_S3_BUCKET_NAME", "my-bucket")
	t.Setenv("WHITELIST_DYNAMODB_ROOTS_TABLE_NAME", "roots")
	t.Setenv("WHITELIST_DYNAMODB_PROOFS_TABLE_NAME", "proofs")
}

func TestLoad_MissingRequiredFieldsReportsAll(t *testing.T) {
	_, err := Load()
	if err == nil {
		t.Fatal("expected an error when no required env vars are set")
	}
	for _, name := range []string{"WHITELIST_S3_BUCKET_NAME", "WHITELIST_DYNAMODB_ROOTS_TABLE_NAME", "WHITELIST_DYNAMODB_PROOFS_TABLE_NAME"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("expected error to mention %s, got: %v", name, err)
		}
	}
}

func TestLoad_AppliesDefaultsWhenOptionalFieldsUnset(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 8080 {
		t.Errorf("unexpected server defaults: %+v", cfg.Server)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("expected a 30s default read timeout, got %s", cfg.Server.ReadTimeout)
	}
	if cfg.AWS.Region != "us-east-1" {
		t.Errorf("expected a default AWS region, got %q", cfg.AWS.Region)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging defaults: %+v", cfg.Logging)
	}
	if len(cfg.Groups.UploadWhitelist) != 0 {
		t.Errorf("expected an unset AUTHORIZED_GROUPS_* to default to an open (empty) list, got %v", cfg.Groups.UploadWhitelist)
	}
}

func TestLoad_ReadsOverridesAndGroupLists(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("WHITELIST_HTTP_PORT", "9090")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("AUTHORIZED_GROUPS_UPLOAD_WHITELIST", "admins, operators,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected overridden port 9090, got %d", cfg.Server.Port)
	}
	if cfg.AWS.Region != "eu-west-1" {
		t.Errorf("expected overridden region, got %q", cfg.AWS.Region)
	}
	want := []string{"admins", "operators"}
	if len(cfg.Groups.UploadWhitelist) != len(want) {
		t.Fatalf("expected %v, got %v", want, cfg.Groups.UploadWhitelist)
	}
	for i, g := range want {
		if cfg.Groups.UploadWhitelist[i] != g {
			t.Errorf("expected %v, got %v", want, cfg.Groups.UploadWhitelist)
			break
		}
	}
}

func TestEnvIntOrDefault_FallsBackOnUnparsableValue(t *testing.T) {
	t.Setenv("WHITELIST_HTTP_PORT", "not-a-number")
	if got := envIntOrDefault("WHITELIST_HTTP_PORT", 8080); got != 8080 {
		t.Errorf("expected fallback to default on unparsable int, got %d", got)
	}
}

func TestEnvDurationOrDefault_FallsBackOnUnparsableValue(t *testing.T) {
	t.Setenv("WHITELIST_HTTP_READ_TIMEOUT", "not-a-duration")
	if got := envDurationOrDefault("WHITELIST_HTTP_READ_TIMEOUT", 30*time.Second); got != 30*time.Second {
		t.Errorf("expected fallback to default on unparsable duration, got %s", got)
	}
}
