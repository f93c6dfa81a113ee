package cmd

import (
	"context"

	"github.com/3leaps/s3relocate/internal/config"
	"github.com/3leaps/s3relocate/pkg/provider"
	"github.com/3leaps/s3relocate/pkg/provider/s3"
	"github.com/3leaps/s3relocate/pkg/relocate"
)

// newProviders builds the source and destination providers. Both share one
// S3 client. Tests replace it to run commands against in-memory buckets.
var newProviders = func(ctx context.Context, cfg *config.Config) (src, dst provider.Provider, err error) {
	rc := cfg.RelocateConfig()
	source, err := s3.New(ctx, cfg.ProviderConfig(rc.SourceBucket))
	if err != nil {
		return nil, nil, err
	}
	return source, source.ForBucket(rc.DestinationBucket), nil
}

// newRelocator validates the relocation settings and wires a Relocator.
// Configuration errors are reported before any client is created.
func newRelocator(ctx context.Context, cfg *config.Config) (*relocate.Relocator, func(), error) {
	rc := cfg.RelocateConfig()
	if err := rc.Validate(); err != nil {
		return nil, nil, err
	}

	src, dst, err := newProviders(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = src.Close()
	}

	rel, err := relocate.New(rc, src, dst)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return rel, cleanup, nil
}
