package provider

import (
	"errors"
	"fmt"
)

// Classified failures. Backends map their SDK errors onto these so callers
// can decide how to report a relocation without importing SDK types.
var (
	ErrNotFound            = errors.New("object not found")
	ErrAccessDenied        = errors.New("access denied")
	ErrBucketNotFound      = errors.New("bucket not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrThrottled           = errors.New("request throttled")

	// ErrUnsupported is returned when a bucket cannot copy or delete.
	ErrUnsupported = errors.New("operation not supported by provider")
)

// ProviderError records which call against which bucket and key failed.
// Err is usually one of the classified sentinels above.
type ProviderError struct {
	Op       string
	Provider ProviderType
	Bucket   string
	Key      string
	Err      error
}

func (e *ProviderError) Error() string {
	target := e.Bucket
	if e.Key != "" {
		target = e.Bucket + "/" + e.Key
	}
	if target == "" {
		return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Provider, e.Op, target, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is classified as a missing object.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsAccessDenied reports whether err is classified as a permission failure.
func IsAccessDenied(err error) bool { return errors.Is(err, ErrAccessDenied) }

// IsBucketNotFound reports whether err is classified as a missing bucket.
func IsBucketNotFound(err error) bool { return errors.Is(err, ErrBucketNotFound) }

// IsProviderUnavailable reports whether the backend could not be reached.
func IsProviderUnavailable(err error) bool { return errors.Is(err, ErrProviderUnavailable) }

// IsThrottled reports whether the backend rejected the call for rate.
func IsThrottled(err error) bool { return errors.Is(err, ErrThrottled) }

// IsUnsupported reports whether a bucket lacks copy or delete support.
func IsUnsupported(err error) bool { return errors.Is(err, ErrUnsupported) }
