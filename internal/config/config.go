// Package config loads the s3relocate runtime configuration.
//
// Values are layered, lowest precedence first: built-in defaults, an
// optional YAML config file, environment variables, runtime overrides.
package config

import (
	"time"

	"github.com/3leaps/s3relocate/pkg/provider/s3"
	"github.com/3leaps/s3relocate/pkg/relocate"
)

// Config is the effective configuration of one process.
type Config struct {
	// Relocation names the buckets and the per-record policy.
	Relocation RelocationConfig `mapstructure:"relocation" yaml:"relocation" json:"relocation"`

	// S3 configures the storage client shared by both buckets.
	S3 S3Config `mapstructure:"s3" yaml:"s3" json:"s3"`

	// Server configures the webhook server started by `serve`.
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	Logging LoggingConfig `mapstructure:"logging" yaml:"logging" json:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
	Health  HealthConfig  `mapstructure:"health" yaml:"health" json:"health"`
}

// RelocationConfig mirrors relocate.Config.
type RelocationConfig struct {
	SourceBucket      string   `mapstructure:"source_bucket" yaml:"source_bucket" json:"source_bucket"`
	DestinationBucket string   `mapstructure:"destination_bucket" yaml:"destination_bucket" json:"destination_bucket"`
	Verify            string   `mapstructure:"verify" yaml:"verify" json:"verify"`
	RateLimit         float64  `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
	SkipPatterns      []string `mapstructure:"skip_patterns" yaml:"skip_patterns" json:"skip_patterns"`
}

// S3Config holds connection settings. Credentials come from the AWS
// default chain and are never part of the file or env layers here.
type S3Config struct {
	Region             string `mapstructure:"region" yaml:"region" json:"region"`
	Endpoint           string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	Profile            string `mapstructure:"profile" yaml:"profile" json:"profile"`
	ForcePathStyle     bool   `mapstructure:"force_path_style" yaml:"force_path_style" json:"force_path_style"`
	MultipartThreshold int64  `mapstructure:"multipart_threshold" yaml:"multipart_threshold" json:"multipart_threshold"`
	PartSize           int64  `mapstructure:"part_size" yaml:"part_size" json:"part_size"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host" json:"host"`
	Port            int           `mapstructure:"port" yaml:"port" json:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout" json:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`

	// MaxBodyBytes caps the size of a webhook payload.
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" yaml:"max_body_bytes" json:"max_body_bytes"`
}

// LoggingConfig selects the zap level and encoder profile.
type LoggingConfig struct {
	Level   string `mapstructure:"level" yaml:"level" json:"level"`
	Profile string `mapstructure:"profile" yaml:"profile" json:"profile"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
}

type HealthConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
}

// RelocateConfig converts the relocation section for relocate.New.
func (c *Config) RelocateConfig() relocate.Config {
	return relocate.Config{
		SourceBucket:      c.Relocation.SourceBucket,
		DestinationBucket: c.Relocation.DestinationBucket,
		Verify:            relocate.VerifyMode(c.Relocation.Verify),
		RateLimit:         c.Relocation.RateLimit,
		SkipPatterns:      append([]string(nil), c.Relocation.SkipPatterns...),
	}
}

// ProviderConfig returns the S3 provider configuration for bucket.
//
// A custom endpoint implies path-style addressing, which S3-compatible
// services (LocalStack, MinIO, moto) require.
func (c *Config) ProviderConfig(bucket string) s3.Config {
	return s3.Config{
		Bucket:                 bucket,
		Region:                 c.S3.Region,
		Endpoint:               c.S3.Endpoint,
		Profile:                c.S3.Profile,
		ForcePathStyle:         c.S3.ForcePathStyle || c.S3.Endpoint != "",
		MultipartCopyThreshold: c.S3.MultipartThreshold,
		CopyPartSize:           c.S3.PartSize,
	}
}
