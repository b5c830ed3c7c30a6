/*
Package storage signs download URLs for objects held in S3-compatible storage.

The chat server never uploads or deletes objects; it only hands out time-limited
links to user avatars referenced from the user directory.
*/
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrEmptyKey is returned when asked to sign an empty object key.
var ErrEmptyKey = errors.New("storage: empty object key")

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// Enabled reports whether every required field is set.
func (c ServiceConfig) Enabled() bool {
	return c.S3BucketName != "" && c.S3Endpoint != "" && c.S3AccessKeyID != "" && c.S3SecretAccessKey != ""
}

// Signer produces presigned download URLs.
type Signer interface {
	// PresignDownload generates a pre-signed URL for downloading a file.
	PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error)
}

// NewSigner is the factory function for Signer.
// Only S3 compatible implementations are supported.
func NewSigner(ctx context.Context, cfg ServiceConfig) (Signer, error) {
	return newS3Client(ctx, cfg)
}
