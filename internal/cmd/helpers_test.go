package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/s3relocate/internal/config"
	"github.com/3leaps/s3relocate/pkg/output"
	"github.com/3leaps/s3relocate/pkg/provider"
)

// memStore is an in-memory set of buckets shared by memBucket providers.
type memStore struct {
	mu      sync.Mutex
	objects map[string]map[string]int64
	copyErr map[string]error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string]map[string]int64{}, copyErr: map[string]error{}}
}

func (s *memStore) put(bucket, key string, size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.objects[bucket] == nil {
		s.objects[bucket] = map[string]int64{}
	}
	s.objects[bucket][key] = size
}

func (s *memStore) has(bucket, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[bucket][key]
	return ok
}

type memBucket struct {
	store  *memStore
	bucket string
}

func (b *memBucket) Head(ctx context.Context, key string) (*provider.ObjectMeta, error) {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	size, ok := b.store.objects[b.bucket][key]
	if !ok {
		return nil, &provider.ProviderError{Op: "Head", Provider: provider.ProviderS3, Bucket: b.bucket, Key: key, Err: provider.ErrNotFound}
	}
	return &provider.ObjectMeta{Key: key, Size: size, ETag: "etag-" + key}, nil
}

func (b *memBucket) CopyObject(ctx context.Context, srcBucket, srcKey, dstKey string, size int64) (string, error) {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	if err, ok := b.store.copyErr[srcKey]; ok {
		return "", err
	}
	srcSize, ok := b.store.objects[srcBucket][srcKey]
	if !ok {
		return "", &provider.ProviderError{Op: "CopyObject", Provider: provider.ProviderS3, Bucket: b.bucket, Key: dstKey, Err: provider.ErrNotFound}
	}
	if b.store.objects[b.bucket] == nil {
		b.store.objects[b.bucket] = map[string]int64{}
	}
	b.store.objects[b.bucket][dstKey] = srcSize
	return "etag-" + dstKey, nil
}

func (b *memBucket) DeleteObject(ctx context.Context, key string) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	delete(b.store.objects[b.bucket], key)
	return nil
}

func (b *memBucket) Close() error { return nil }

// useMemStore routes newProviders to store for the duration of the test.
func useMemStore(t *testing.T, store *memStore) {
	t.Helper()
	orig := newProviders
	newProviders = func(ctx context.Context, cfg *config.Config) (provider.Provider, provider.Provider, error) {
		return &memBucket{store: store, bucket: cfg.Relocation.SourceBucket},
			&memBucket{store: store, bucket: cfg.Relocation.DestinationBucket}, nil
	}
	t.Cleanup(func() { newProviders = orig })
}

// resetCommandState clears flag values and environment left by earlier
// tests; cobra keeps both across Execute calls.
func resetCommandState(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"SOURCE_BUCKET", "DESTINATION_BUCKET", "S3_ENDPOINT",
		"S3RELOCATE_SOURCE_BUCKET", "S3RELOCATE_DESTINATION_BUCKET", "S3RELOCATE_S3_ENDPOINT",
		"S3RELOCATE_VERIFY", "S3RELOCATE_SKIP_PATTERNS", "AWS_LAMBDA_RUNTIME_API",
	} {
		t.Setenv(name, "")
	}

	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				_ = sv.Replace(nil)
			} else {
				_ = f.Value.Set(f.DefValue)
			}
			f.Changed = false
		})
	}
	reset(rootCmd.PersistentFlags())
	reset(rootCmd.Flags())
	for _, c := range rootCmd.Commands() {
		reset(c.Flags())
	}
	appConfig = nil
}

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	resetCommandState(t)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})

	// cobra only fills in a subcommand context when it is nil, so a
	// context from an earlier run would otherwise stick.
	for _, c := range rootCmd.Commands() {
		c.SetContext(ctx)
	}

	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// decodeRecords splits JSONL output into records.
func decodeRecords(t *testing.T, out string) []output.Record {
	t.Helper()
	var records []output.Record
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		var rec output.Record
		require.NoError(t, json.Unmarshal([]byte(line), &rec), "line: %s", line)
		records = append(records, rec)
	}
	return records
}
