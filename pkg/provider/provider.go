// Package provider describes the bucket operations a relocation needs.
//
// A Provider is bound to one bucket. Copy and delete are optional
// capabilities discovered by type assertion, so a read-only bucket handle
// still satisfies Provider. Credentials come from the SDK default chain.
package provider

import (
	"context"
	"time"
)

// Provider is a handle on one bucket. Implementations are safe for
// concurrent use.
type Provider interface {
	// Head fetches object metadata, or an error wrapping ErrNotFound.
	Head(ctx context.Context, key string) (*ObjectMeta, error)

	Close() error
}

// ObjectMeta is what Head reports about an object. ETag is unquoted.
type ObjectMeta struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
	ContentType  string
	Metadata     map[string]string
}

// ProviderType names a storage backend in errors and reports.
type ProviderType string

// ProviderS3 covers AWS S3 and S3-compatible endpoints.
const ProviderS3 ProviderType = "s3"
