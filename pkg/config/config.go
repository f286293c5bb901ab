// Package config loads runtime settings from environment variables, with
// optional YAML import profiles for per-run overrides.
package config

import (
	"os"
	"strconv"
)

const defaultMaxFileBytes = 256 << 20

// Config holds importer configuration.
type Config struct {
	LogLevel string

	// DBDriver is "sqlite" or "postgres"; DatabaseURL is the matching DSN.
	DBDriver    string
	DatabaseURL string

	// Workspace is the root directory for session workspaces and the
	// session-id journal.
	Workspace string

	// MaxFileBytes caps one file retrieval; beyond it the single retrieval
	// aborts, not the session.
	MaxFileBytes int64

	// BlobBackend is "inline", "fs", or "s3".
	BlobBackend string
	BlobDir     string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3Prefix    string

	// OwnerName/OwnerEmail identify the operator owning imported records.
	OwnerName  string
	OwnerEmail string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		LogLevel:     getenv("LOG_LEVEL", "INFO"),
		DBDriver:     getenv("CAIRN_DB_DRIVER", "sqlite"),
		DatabaseURL:  getenv("CAIRN_DATABASE_URL", "cairn.db"),
		Workspace:    getenv("CAIRN_WORKSPACE", "/tmp/cairn"),
		MaxFileBytes: getenvInt64("CAIRN_MAX_FILE_BYTES", defaultMaxFileBytes),
		BlobBackend:  getenv("CAIRN_BLOB_BACKEND", "inline"),
		BlobDir:      getenv("CAIRN_BLOB_DIR", "/var/lib/cairn/blobs"),
		S3Bucket:     os.Getenv("CAIRN_S3_BUCKET"),
		S3Region:     getenv("CAIRN_S3_REGION", "us-east-1"),
		S3Endpoint:   os.Getenv("CAIRN_S3_ENDPOINT"),
		S3Prefix:     getenv("CAIRN_S3_PREFIX", "blobs/"),
		OwnerName:    getenv("CAIRN_OWNER_NAME", "importer"),
		OwnerEmail:   getenv("CAIRN_OWNER_EMAIL", "importer@localhost"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
