package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every s3relocate environment variable.
	EnvPrefix = "S3RELOCATE"

	// ConfigName is the base name of the optional config file.
	ConfigName = "s3relocate"
)

// EnvSpec maps one environment variable to a config path.
type EnvSpec struct {
	Name string
	Path string
}

var (
	configMu  sync.RWMutex
	appConfig *Config
)

// getEnvSpecs lists the recognized environment variables. When several
// names map to one path the earlier name wins.
func getEnvSpecs() []EnvSpec {
	p := func(name string) string { return EnvPrefix + "_" + name }
	return []EnvSpec{
		{Name: p("SOURCE_BUCKET"), Path: "relocation.source_bucket"},
		{Name: "SOURCE_BUCKET", Path: "relocation.source_bucket"},
		{Name: p("DESTINATION_BUCKET"), Path: "relocation.destination_bucket"},
		{Name: "DESTINATION_BUCKET", Path: "relocation.destination_bucket"},
		{Name: p("VERIFY"), Path: "relocation.verify"},
		{Name: p("RATE_LIMIT"), Path: "relocation.rate_limit"},
		{Name: p("SKIP_PATTERNS"), Path: "relocation.skip_patterns"},

		{Name: p("S3_REGION"), Path: "s3.region"},
		{Name: p("S3_ENDPOINT"), Path: "s3.endpoint"},
		{Name: "S3_ENDPOINT", Path: "s3.endpoint"},
		{Name: p("S3_PROFILE"), Path: "s3.profile"},
		{Name: p("S3_FORCE_PATH_STYLE"), Path: "s3.force_path_style"},
		{Name: p("MULTIPART_THRESHOLD"), Path: "s3.multipart_threshold"},
		{Name: p("PART_SIZE"), Path: "s3.part_size"},

		{Name: p("HOST"), Path: "server.host"},
		{Name: p("PORT"), Path: "server.port"},
		{Name: p("READ_TIMEOUT"), Path: "server.read_timeout"},
		{Name: p("WRITE_TIMEOUT"), Path: "server.write_timeout"},
		{Name: p("IDLE_TIMEOUT"), Path: "server.idle_timeout"},
		{Name: p("SHUTDOWN_TIMEOUT"), Path: "server.shutdown_timeout"},
		{Name: p("MAX_BODY_BYTES"), Path: "server.max_body_bytes"},

		{Name: p("LOG_LEVEL"), Path: "logging.level"},
		{Name: p("LOG_PROFILE"), Path: "logging.profile"},
		{Name: p("METRICS_ENABLED"), Path: "metrics.enabled"},
		{Name: p("HEALTH_ENABLED"), Path: "health.enabled"},
	}
}

// SetDefaults registers built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("relocation.source_bucket", "")
	v.SetDefault("relocation.destination_bucket", "")
	v.SetDefault("relocation.verify", "head")
	v.SetDefault("relocation.rate_limit", 0)
	v.SetDefault("relocation.skip_patterns", []string{})

	v.SetDefault("s3.region", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.profile", "")
	v.SetDefault("s3.force_path_style", false)
	v.SetDefault("s3.multipart_threshold", 0)
	v.SetDefault("s3.part_size", 0)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "15m")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.max_body_bytes", 10<<20)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("health.enabled", true)
}

// Load builds the configuration from defaults, environment and overrides.
//
// Overrides are nested maps keyed like the YAML file, e.g.
// {"server": {"port": 9000}}. The result also becomes the value returned
// by GetConfig.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	return LoadFile(ctx, "", overrides...)
}

// LoadFile is Load with an explicit YAML config file. An empty path reads
// s3relocate.yaml from the working directory when present.
func LoadFile(ctx context.Context, path string, overrides ...map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := viper.New()
	SetDefaults(v)

	if err := readConfigFile(v, path); err != nil {
		return nil, err
	}

	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	for _, o := range overrides {
		for key, value := range flatten("", o) {
			v.Set(key, value)
		}
	}

	cfg := &Config{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Relocation.SkipPatterns = trimEmpty(cfg.Relocation.SkipPatterns)

	configMu.Lock()
	appConfig = cfg
	configMu.Unlock()

	return cfg, nil
}

// GetConfig returns the configuration produced by the most recent Load.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName(ConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}

// bindEnvs binds each config path to all of its env names in order.
func bindEnvs(v *viper.Viper) error {
	names := make(map[string][]string)
	var paths []string
	for _, spec := range getEnvSpecs() {
		if _, seen := names[spec.Path]; !seen {
			paths = append(paths, spec.Path)
		}
		names[spec.Path] = append(names[spec.Path], spec.Name)
	}

	for _, path := range paths {
		if err := v.BindEnv(append([]string{path}, names[path]...)...); err != nil {
			return fmt.Errorf("bind env %s: %w", path, err)
		}
	}
	return nil
}

// flatten turns nested override maps into dotted viper keys.
func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any)
	for k, val := range m {
		key := strings.ToLower(k)
		if prefix != "" {
			key = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = val
	}
	return out
}

func trimEmpty(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
