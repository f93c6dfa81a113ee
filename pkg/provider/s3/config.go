// Package s3 moves objects between AWS S3 (or S3-compatible) buckets with
// server-side copies.
package s3

// Config describes how to reach one bucket.
//
// Credentials come from the SDK default chain (environment, shared files,
// then the Lambda or ECS role) unless AccessKeyID and SecretAccessKey are
// both set. Region falls back to us-east-1 for AWS only; with a custom
// Endpoint such as moto or MinIO no region is assumed.
type Config struct {
	Bucket   string
	Region   string
	Endpoint string
	Profile  string

	AccessKeyID     string
	SecretAccessKey string

	// ForcePathStyle puts the bucket in the URL path. Most S3-compatible
	// stores need it.
	ForcePathStyle bool

	// MultipartCopyThreshold is the size above which copies use
	// UploadPartCopy. Zero means DefaultMultipartCopyThreshold.
	MultipartCopyThreshold int64

	// CopyPartSize is the UploadPartCopy range size. Zero means
	// DefaultCopyPartSize; it grows when needed to stay within MaxCopyParts.
	CopyPartSize int64
}

// DefaultAWSRegion applies when nothing else names a region.
const DefaultAWSRegion = "us-east-1"

// S3 copy limits.
const (
	MaxSimpleCopySize int64 = 5 << 30
	MinCopyPartSize   int64 = 5 << 20
	MaxCopyParts            = 10000
)

// Single-request copies are used up to the size S3 accepts.
const (
	DefaultMultipartCopyThreshold       = MaxSimpleCopySize
	DefaultCopyPartSize           int64 = 256 << 20
)

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	checks := []struct {
		bad     bool
		field   string
		message string
	}{
		{c.Bucket == "", "Bucket", "bucket name is required"},
		{
			(c.AccessKeyID != "") != (c.SecretAccessKey != ""),
			"AccessKeyID/SecretAccessKey",
			"both access key ID and secret access key must be provided together",
		},
		{
			c.MultipartCopyThreshold < 0 || c.MultipartCopyThreshold > MaxSimpleCopySize,
			"MultipartCopyThreshold",
			"must be between 0 and 5 GiB",
		},
		{
			c.CopyPartSize != 0 && (c.CopyPartSize < MinCopyPartSize || c.CopyPartSize > MaxSimpleCopySize),
			"CopyPartSize",
			"must be between 5 MiB and 5 GiB",
		},
	}
	for _, ch := range checks {
		if ch.bad {
			return &ConfigError{Field: ch.field, Message: ch.message}
		}
	}
	return nil
}

// ConfigError names the invalid Config field.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "s3 config: " + e.Field + ": " + e.Message
}
