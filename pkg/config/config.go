// Package config loads the whitelist Merkle tree service's process-wide
// configuration once at startup from environment variables, per spec §6/§9:
// an immutable record constructed once, refusing to start on missing
// required fields.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// AWSConfig contains AWS SDK settings shared by the object-store and KV adapters.
type AWSConfig struct {
	Region           string
	S3Endpoint       string
	DynamoDBEndpoint string
}

// StoreConfig names the S3 bucket and DynamoDB tables backing the two stores.
type StoreConfig struct {
	BucketName      string
	RootsTableName  string
	ProofsTableName string
}

// AuthGroupsConfig holds the comma-separated authorized-group lists for
// each group-gated route. An empty list means "open to any authenticated
// caller" per spec §6.
type AuthGroupsConfig struct {
	UploadWhitelist  []string
	DeleteWhitelist  []string
	CreateMerkleTree []string
	DeleteMerkleTree []string
	MerkleRoot       []string
	MerkleRoots      []string
	MerkleProofs     []string
}

// JWTConfig contains JWKS-based JWT validation settings.
type JWTConfig struct {
	JWKSURL string
	Issuer  string
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

// Config is the whitelist Merkle tree service's process-wide configuration.
type Config struct {
	Server  ServerConfig
	AWS     AWSConfig
	Store   StoreConfig
	Groups  AuthGroupsConfig
	JWT     JWTConfig
	Logging LoggingConfig
}

// requiredEnv reads a required environment variable, appending its name to
// missing when unset so Load can report every missing field at once rather
// than failing on the first.
func requiredEnv(name string, missing *[]string) string {
	v := os.Getenv(name)
	if v == "" {
		*missing = append(*missing, name)
	}
	return v
}

func groupList(name string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envDurationOrDefault(name string, def time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func envIntOrDefault(name string, def int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envOrDefault(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

// Load builds a Config from the environment. Required fields (spec §6):
// WHITELIST_S3_BUCKET_NAME, WHITELIST_DYNAMODB_ROOTS_TABLE_NAME,
// WHITELIST_DYNAMODB_PROOFS_TABLE_NAME. The seven AUTHORIZED_GROUPS_* lists
// default to empty (open to any authenticated caller).
func Load() (*Config, error) {
	var missing []string

	cfg := &Config{
		Server: ServerConfig{
			Host:            envOrDefault("WHITELIST_HTTP_HOST", "0.0.0.0"),
			Port:            envIntOrDefault("WHITELIST_HTTP_PORT", 8080),
			ReadTimeout:     envDurationOrDefault("WHITELIST_HTTP_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    envDurationOrDefault("WHITELIST_HTTP_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     envDurationOrDefault("WHITELIST_HTTP_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: envDurationOrDefault("WHITELIST_HTTP_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		AWS: AWSConfig{
			Region:           envOrDefault("AWS_REGION", "us-east-1"),
			S3Endpoint:       os.Getenv("WHITELIST_S3_ENDPOINT"),
			DynamoDBEndpoint: os.Getenv("WHITELIST_DYNAMODB_ENDPOINT"),
		},
		Store: StoreConfig{
			BucketName:      requiredEnv("WHITELIST_S3_BUCKET_NAME", &missing),
			RootsTableName:  requiredEnv("WHITELIST_DYNAMODB_ROOTS_TABLE_NAME", &missing),
			ProofsTableName: requiredEnv("WHITELIST_DYNAMODB_PROOFS_TABLE_NAME", &missing),
		},
		Groups: AuthGroupsConfig{
			UploadWhitelist:  groupList("AUTHORIZED_GROUPS_UPLOAD_WHITELIST"),
			DeleteWhitelist:  groupList("AUTHORIZED_GROUPS_DELETE_WHITELIST"),
			CreateMerkleTree: groupList("AUTHORIZED_GROUPS_CREATE_MERKLE_TREE"),
			DeleteMerkleTree: groupList("AUTHORIZED_GROUPS_DELETE_MERKLE_TREE"),
			MerkleRoot:       groupList("AUTHORIZED_GROUPS_MERKLE_ROOT"),
			MerkleRoots:      groupList("AUTHORIZED_GROUPS_MERKLE_ROOTS"),
			MerkleProofs:     groupList("AUTHORIZED_GROUPS_MERKLE_PROOFS"),
		},
		JWT: JWTConfig{
			JWKSURL: os.Getenv("WHITELIST_JWKS_URL"),
			Issuer:  os.Getenv("WHITELIST_JWT_ISSUER"),
		},
		Logging: LoggingConfig{
			Level:      envOrDefault("WHITELIST_LOG_LEVEL", "info"),
			Format:     envOrDefault("WHITELIST_LOG_FORMAT", "json"),
			OutputPath: envOrDefault("WHITELIST_LOG_OUTPUT", "stdout"),
		},
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}
