package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/s3relocate/pkg/relocate"
)

// clearEnv unsets every recognized variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, spec := range getEnvSpecs() {
		t.Setenv(spec.Name, "")
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("LoadDefaults", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Empty(t, cfg.Relocation.SourceBucket)
		assert.Empty(t, cfg.Relocation.DestinationBucket)
		assert.Equal(t, "head", cfg.Relocation.Verify)
		assert.Zero(t, cfg.Relocation.RateLimit)
		assert.Empty(t, cfg.Relocation.SkipPatterns)

		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 15*time.Minute, cfg.Server.WriteTimeout)
		assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
		assert.Equal(t, int64(10<<20), cfg.Server.MaxBodyBytes)

		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, "structured", cfg.Logging.Profile)

		assert.True(t, cfg.Metrics.Enabled)
		assert.True(t, cfg.Health.Enabled)
	})

	t.Run("RuntimeOverrides", func(t *testing.T) {
		clearEnv(t)

		overrides := map[string]any{
			"server": map[string]any{
				"port": 9000,
				"host": "0.0.0.0",
			},
			"logging": map[string]any{
				"level": "debug",
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)

		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Logging.Level)

		// Non-overridden values remain default
		assert.Equal(t, "structured", cfg.Logging.Profile)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	})

	t.Run("BareBucketEnv", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SOURCE_BUCKET", "incoming")
		t.Setenv("DESTINATION_BUCKET", "archive")

		cfg, err := Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, "incoming", cfg.Relocation.SourceBucket)
		assert.Equal(t, "archive", cfg.Relocation.DestinationBucket)
	})

	t.Run("PrefixedEnvWinsOverBare", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SOURCE_BUCKET", "bare")
		t.Setenv("S3RELOCATE_SOURCE_BUCKET", "prefixed")
		t.Setenv("S3_ENDPOINT", "http://bare:4566")
		t.Setenv("S3RELOCATE_S3_ENDPOINT", "http://prefixed:4566")

		cfg, err := Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, "prefixed", cfg.Relocation.SourceBucket)
		assert.Equal(t, "http://prefixed:4566", cfg.S3.Endpoint)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("S3RELOCATE_PORT", "3000")
		t.Setenv("S3RELOCATE_LOG_LEVEL", "warn")
		t.Setenv("S3RELOCATE_METRICS_ENABLED", "false")
		t.Setenv("S3RELOCATE_VERIFY", "none")
		t.Setenv("S3RELOCATE_RATE_LIMIT", "2.5")
		t.Setenv("S3RELOCATE_SKIP_PATTERNS", "**/*.tmp, logs/**")
		t.Setenv("S3RELOCATE_MULTIPART_THRESHOLD", "1073741824")

		cfg, err := Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Server.Port)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.False(t, cfg.Metrics.Enabled)
		assert.Equal(t, "none", cfg.Relocation.Verify)
		assert.Equal(t, 2.5, cfg.Relocation.RateLimit)
		assert.Equal(t, []string{"**/*.tmp", "logs/**"}, cfg.Relocation.SkipPatterns)
		assert.Equal(t, int64(1<<30), cfg.S3.MultipartThreshold)
	})

	t.Run("ConfigPrecedence", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("S3RELOCATE_PORT", "4000")

		overrides := map[string]any{
			"server": map[string]any{
				"port": 5000,
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)

		// Runtime override should take precedence over env var
		assert.Equal(t, 5000, cfg.Server.Port)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := Load(cctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLoadFile(t *testing.T) {
	ctx := context.Background()

	t.Run("YAMLFile", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "s3relocate.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
relocation:
  source_bucket: uploads
  destination_bucket: processed
  skip_patterns:
    - "**/*.part"
s3:
  endpoint: http://localhost:4566
server:
  shutdown_timeout: 5m
`), 0o600))

		cfg, err := LoadFile(ctx, path)
		require.NoError(t, err)

		assert.Equal(t, "uploads", cfg.Relocation.SourceBucket)
		assert.Equal(t, "processed", cfg.Relocation.DestinationBucket)
		assert.Equal(t, []string{"**/*.part"}, cfg.Relocation.SkipPatterns)
		assert.Equal(t, "http://localhost:4566", cfg.S3.Endpoint)
		assert.Equal(t, 5*time.Minute, cfg.Server.ShutdownTimeout)
	})

	t.Run("EnvBeatsFile", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DESTINATION_BUCKET", "from-env")
		path := filepath.Join(t.TempDir(), "s3relocate.yaml")
		require.NoError(t, os.WriteFile(path, []byte("relocation:\n  destination_bucket: from-file\n"), 0o600))

		cfg, err := LoadFile(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.Relocation.DestinationBucket)
	})

	t.Run("MissingExplicitFile", func(t *testing.T) {
		_, err := LoadFile(ctx, filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read config file")
	})

	t.Run("InvalidValue", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("S3RELOCATE_READ_TIMEOUT", "soon")

		_, err := Load(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode config")
	})
}

func TestGetConfig(t *testing.T) {
	clearEnv(t)
	ctx := context.Background()

	cfg, err := Load(ctx)
	require.NoError(t, err)

	retrieved := GetConfig()
	require.NotNil(t, retrieved)
	assert.Equal(t, cfg.Server.Port, retrieved.Server.Port)

	cfg2, err := Load(ctx, map[string]any{"server": map[string]any{"port": cfg.Server.Port + 1000}})
	require.NoError(t, err)
	assert.Equal(t, cfg2.Server.Port, GetConfig().Server.Port)
}

func TestEnvSpecs(t *testing.T) {
	specs := getEnvSpecs()
	require.NotEmpty(t, specs)

	names := make(map[string]string)
	for _, spec := range specs {
		assert.NotEmpty(t, spec.Path, "env var %s should have a path", spec.Name)
		names[spec.Name] = spec.Path
	}

	assert.Equal(t, "relocation.source_bucket", names["SOURCE_BUCKET"])
	assert.Equal(t, "relocation.destination_bucket", names["DESTINATION_BUCKET"])
	assert.Equal(t, "s3.endpoint", names["S3_ENDPOINT"])
	assert.Equal(t, "logging.level", names["S3RELOCATE_LOG_LEVEL"])
	assert.Equal(t, "server.port", names["S3RELOCATE_PORT"])
}

func TestSetDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	assert.Equal(t, "localhost", v.GetString("server.host"))
	assert.Equal(t, 8080, v.GetInt("server.port"))
	assert.Equal(t, "30s", v.GetString("server.read_timeout"))
	assert.Equal(t, "120s", v.GetString("server.idle_timeout"))
	assert.Equal(t, "info", v.GetString("logging.level"))
	assert.Equal(t, "structured", v.GetString("logging.profile"))
	assert.Equal(t, "head", v.GetString("relocation.verify"))
	assert.True(t, v.GetBool("metrics.enabled"))
}

func TestFlatten(t *testing.T) {
	got := flatten("", map[string]any{
		"Server":  map[string]any{"port": 1, "host": "h"},
		"verbose": true,
	})
	assert.Equal(t, map[string]any{
		"server.port": 1,
		"server.host": "h",
		"verbose":     true,
	}, got)
}

func TestConfigConversions(t *testing.T) {
	cfg := &Config{
		Relocation: RelocationConfig{
			SourceBucket:      "a",
			DestinationBucket: "b",
			Verify:            "none",
			RateLimit:         3,
			SkipPatterns:      []string{"*.tmp"},
		},
		S3: S3Config{
			Region:             "eu-west-1",
			Endpoint:           "http://localhost:9000",
			MultipartThreshold: 100,
			PartSize:           10,
		},
	}

	rc := cfg.RelocateConfig()
	assert.Equal(t, relocate.Config{
		SourceBucket:      "a",
		DestinationBucket: "b",
		Verify:            relocate.VerifyNone,
		RateLimit:         3,
		SkipPatterns:      []string{"*.tmp"},
	}, rc)

	// The conversion copies the slice.
	rc.SkipPatterns[0] = "changed"
	assert.Equal(t, "*.tmp", cfg.Relocation.SkipPatterns[0])

	pc := cfg.ProviderConfig("b")
	assert.Equal(t, "b", pc.Bucket)
	assert.Equal(t, "eu-west-1", pc.Region)
	assert.True(t, pc.ForcePathStyle, "custom endpoint implies path-style")
	assert.Equal(t, int64(100), pc.MultipartCopyThreshold)
	assert.Equal(t, int64(10), pc.CopyPartSize)

	cfg.S3.Endpoint = ""
	assert.False(t, cfg.ProviderConfig("b").ForcePathStyle)
}
