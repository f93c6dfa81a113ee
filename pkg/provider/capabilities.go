package provider

import "context"

// Optional provider capability interfaces.
//
// These interfaces are used for feature detection (type assertions). The core
// Provider interface remains intentionally small.

// ObjectCopier can copy an object from another bucket into the provider's
// bucket without streaming the body through the caller.
type ObjectCopier interface {
	// CopyObject copies srcBucket/srcKey to dstKey in the provider's bucket and
	// returns the ETag of the new object.
	//
	// size is a hint used to pick a copy strategy; zero or negative means
	// unknown.
	CopyObject(ctx context.Context, srcBucket, srcKey, dstKey string, size int64) (etag string, err error)
}

// ObjectDeleter can delete objects.
type ObjectDeleter interface {
	DeleteObject(ctx context.Context, key string) error
}
