package relocate

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// VerifyMode controls what must hold before the source object is deleted.
type VerifyMode string

const (
	// VerifyNone deletes the source as soon as the copy call returns without error.
	VerifyNone VerifyMode = "none"

	// VerifyHead requires the destination object to be visible (HEAD) and, when
	// the copy reported an ETag, to carry that ETag.
	VerifyHead VerifyMode = "head"
)

// Config is the relocation configuration. It is read once per process and
// not modified afterwards.
type Config struct {
	// SourceBucket is where objects are copied from and then deleted (required).
	SourceBucket string

	// DestinationBucket is where objects are copied to under the same key (required).
	DestinationBucket string

	// Verify selects the confirmation required before deleting the source.
	// Empty uses VerifyHead.
	Verify VerifyMode

	// RateLimit caps relocations per second. Zero means unlimited.
	RateLimit float64

	// SkipPatterns are doublestar globs; matching keys are left in place.
	SkipPatterns []string
}

// DefaultConfig returns a Config with default options and no buckets set.
func DefaultConfig() Config {
	return Config{
		Verify: VerifyHead,
	}
}

// Validate checks the configuration. It performs no I/O.
func (c *Config) Validate() error {
	if c.SourceBucket == "" {
		return &ConfigError{Field: "SourceBucket", Message: "source bucket is required"}
	}
	if c.DestinationBucket == "" {
		return &ConfigError{Field: "DestinationBucket", Message: "destination bucket is required"}
	}
	if c.SourceBucket == c.DestinationBucket {
		// Copy onto the same key followed by delete would destroy the object.
		return &ConfigError{Field: "DestinationBucket", Message: "destination bucket must differ from source bucket"}
	}

	switch c.Verify {
	case "", VerifyNone, VerifyHead:
	default:
		return &ConfigError{Field: "Verify", Message: fmt.Sprintf("unsupported verify mode %q (expected none or head)", c.Verify)}
	}

	if c.RateLimit < 0 {
		return &ConfigError{Field: "RateLimit", Message: "must be >= 0"}
	}

	for _, pattern := range c.SkipPatterns {
		if !doublestar.ValidatePattern(pattern) {
			return &ConfigError{Field: "SkipPatterns", Message: fmt.Sprintf("invalid pattern %q", pattern)}
		}
	}

	return nil
}

// MatchSkip reports the first skip pattern matching key.
func (c *Config) MatchSkip(key string) (string, bool) {
	for _, pattern := range c.SkipPatterns {
		// Invalid patterns are rejected by Validate; Match reports them as no match.
		if ok, _ := doublestar.Match(pattern, key); ok {
			return pattern, true
		}
	}
	return "", false
}

func (c *Config) verifyMode() VerifyMode {
	if c.Verify == "" {
		return VerifyHead
	}
	return c.Verify
}
