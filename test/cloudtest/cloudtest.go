// Package cloudtest sets up throwaway buckets on a local moto server for
// tests tagged cloudintegration.
//
//	cloudtest.SkipIfUnavailable(t)
//	src := cloudtest.CreateBucket(t, ctx)
//	cloudtest.PutObject(t, ctx, src, "incoming/a.csv", []byte("x"))
package cloudtest

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// Moto accepts any credentials. Port 5555 keeps clear of macOS AirPlay on 5000.
const (
	DefaultEndpoint     = "http://localhost:5555"
	DefaultRegion       = "us-east-1"
	TestAccessKeyID     = "testing"
	TestSecretAccessKey = "testing"
)

// Endpoint and Region honour MOTO_ENDPOINT and MOTO_REGION.
var (
	Endpoint = envOr("MOTO_ENDPOINT", DefaultEndpoint)
	Region   = envOr("MOTO_REGION", DefaultRegion)
)

var invalidBucketChars = regexp.MustCompile(`[^a-z0-9-]+`)

var sharedClient = sync.OnceValues(func() (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(TestAccessKeyID, TestSecretAccessKey, "")),
	)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(Endpoint)
		o.UsePathStyle = true
	}), nil
})

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Available reports whether the moto control API answers.
func Available() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, Endpoint+"/moto-api/", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// SkipIfUnavailable skips t when no moto server is running.
func SkipIfUnavailable(t *testing.T) {
	t.Helper()
	if !Available() {
		t.Skipf("moto not reachable at %s (set MOTO_ENDPOINT or start moto_server -p 5555)", Endpoint)
	}
}

// Client returns the shared moto client or fails t.
func Client(t *testing.T) *s3.Client {
	t.Helper()
	c, err := sharedClient()
	if err != nil {
		t.Fatalf("moto client: %v", err)
	}
	return c
}

// CreateBucket makes a uniquely named bucket that is emptied and removed
// when t finishes.
func CreateBucket(t *testing.T, ctx context.Context) string {
	t.Helper()

	prefix := invalidBucketChars.ReplaceAllString(strings.ToLower(t.Name()), "-")
	if len(prefix) > 40 {
		prefix = prefix[:40]
	}
	name := strings.Trim(prefix, "-") + "-" + uuid.NewString()[:8]

	if _, err := Client(t).CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(name)}); err != nil {
		t.Fatalf("create bucket %s: %v", name, err)
	}
	t.Cleanup(func() { removeBucket(t, name) })
	return name
}

func removeBucket(t *testing.T, bucket string) {
	ctx := context.Background()
	c := Client(t)

	pages := s3.NewListObjectsV2Paginator(c, &s3.ListObjectsV2Input{Bucket: aws.String(bucket)})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			t.Logf("cleanup %s: list: %v", bucket, err)
			return
		}
		if len(page.Contents) == 0 {
			continue
		}
		ids := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
		}
		if _, err := c.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		}); err != nil {
			t.Logf("cleanup %s: delete objects: %v", bucket, err)
		}
	}

	if _, err := c.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)}); err != nil {
		t.Logf("cleanup %s: %v", bucket, err)
	}
}

// PutObject writes body to bucket/key or fails t.
func PutObject(t *testing.T, ctx context.Context, bucket, key string, body []byte) {
	t.Helper()
	_, err := Client(t).PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		t.Fatalf("put %s/%s: %v", bucket, key, err)
	}
}

// ObjectExists reports whether bucket/key answers a HEAD.
func ObjectExists(t *testing.T, ctx context.Context, bucket, key string) bool {
	t.Helper()
	_, err := Client(t).HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	return err == nil
}
