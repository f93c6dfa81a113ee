//go:build cloudintegration

package relocate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/s3relocate/pkg/notification"
	"github.com/3leaps/s3relocate/pkg/provider/s3"
	"github.com/3leaps/s3relocate/pkg/relocate"
	"github.com/3leaps/s3relocate/test/cloudtest"
)

func TestRelocate_CloudIntegration(t *testing.T) {
	cloudtest.SkipIfUnavailable(t)
	ctx := context.Background()

	src := cloudtest.CreateBucket(t, ctx)
	dst := cloudtest.CreateBucket(t, ctx)
	cloudtest.PutObject(t, ctx, src, "reports/q3 summary.pdf", []byte("quarterly"))
	cloudtest.PutObject(t, ctx, src, "tmp/upload.part", []byte("partial"))

	srcProv, err := s3.New(ctx, s3.Config{
		Bucket:          src,
		Endpoint:        cloudtest.Endpoint,
		Region:          cloudtest.Region,
		AccessKeyID:     cloudtest.TestAccessKeyID,
		SecretAccessKey: cloudtest.TestSecretAccessKey,
		ForcePathStyle:  true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srcProv.Close() })

	r, err := relocate.New(relocate.Config{
		SourceBucket:      src,
		DestinationBucket: dst,
		SkipPatterns:      []string{"tmp/**"},
	}, srcProv, srcProv.ForBucket(dst))
	require.NoError(t, err)

	batch, err := notification.Decode([]byte(`{"Records":[
		{"s3":{"bucket":{"name":"` + src + `"},"object":{"key":"reports/q3+summary.pdf","size":9}}},
		{"s3":{"bucket":{"name":"` + src + `"},"object":{"key":"tmp/upload.part","size":7}}}
	]}`))
	require.NoError(t, err)

	sum, err := r.Relocate(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Relocated)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, int64(9), sum.BytesMoved)

	assert.False(t, cloudtest.ObjectExists(t, ctx, src, "reports/q3 summary.pdf"))
	assert.True(t, cloudtest.ObjectExists(t, ctx, dst, "reports/q3 summary.pdf"))
	assert.True(t, cloudtest.ObjectExists(t, ctx, src, "tmp/upload.part"))
	assert.False(t, cloudtest.ObjectExists(t, ctx, dst, "tmp/upload.part"))
}
