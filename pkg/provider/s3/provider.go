package s3

import (
	"context"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/3leaps/s3relocate/pkg/provider"
)

// api lists the client calls a relocation makes. Tests substitute a fake.
type api interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPartCopy(ctx context.Context, in *s3.UploadPartCopyInput, optFns ...func(*s3.Options)) (*s3.UploadPartCopyOutput, error)
	CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

// Provider is an S3 bucket handle. Copies land in its bucket; heads and
// deletes address it.
type Provider struct {
	client             api
	bucket             string
	multipartThreshold int64
	partSize           int64
}

var (
	_ provider.Provider      = (*Provider)(nil)
	_ provider.ObjectCopier  = (*Provider)(nil)
	_ provider.ObjectDeleter = (*Provider)(nil)
)

// New validates cfg and builds a client from the SDK default chain, with
// cfg's explicit credentials, profile and endpoint layered on top.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, &provider.ProviderError{Op: "New", Provider: provider.ProviderS3, Bucket: cfg.Bucket, Err: err}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.ForcePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newWithClient(client, cfg), nil
}

func newWithClient(client api, cfg Config) *Provider {
	p := &Provider{
		client:             client,
		bucket:             cfg.Bucket,
		multipartThreshold: cfg.MultipartCopyThreshold,
		partSize:           cfg.CopyPartSize,
	}
	if p.multipartThreshold <= 0 {
		p.multipartThreshold = DefaultMultipartCopyThreshold
	}
	if p.partSize <= 0 {
		p.partSize = DefaultCopyPartSize
	}
	return p
}

// ForBucket returns a handle on bucket sharing p's client and copy settings.
func (p *Provider) ForBucket(bucket string) *Provider {
	clone := *p
	clone.bucket = bucket
	return &clone
}

func loadAWSConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}
	awsCfg.Region = resolveRegion(cfg.Endpoint, awsCfg.Region)
	return awsCfg, nil
}

// Bucket names the bucket p addresses.
func (p *Provider) Bucket() string {
	return p.bucket
}

func (p *Provider) Head(ctx context.Context, key string) (*provider.ObjectMeta, error) {
	out, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, p.wrapError("Head", key, err)
	}

	return &provider.ObjectMeta{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ETag:         cleanETag(aws.ToString(out.ETag)),
		LastModified: aws.ToTime(out.LastModified),
		ContentType:  aws.ToString(out.ContentType),
		Metadata:     out.Metadata,
	}, nil
}

// CopyObject copies srcBucket/srcKey to dstKey in p's bucket on the server
// side. Sizes above the multipart threshold go through UploadPartCopy.
func (p *Provider) CopyObject(ctx context.Context, srcBucket, srcKey, dstKey string, size int64) (string, error) {
	if size > p.multipartThreshold {
		return p.multipartCopy(ctx, srcBucket, srcKey, dstKey, size)
	}

	out, err := p.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(p.bucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(copySource(srcBucket, srcKey)),
	})
	if err != nil {
		return "", p.wrapError("CopyObject", dstKey, err)
	}
	if out.CopyObjectResult == nil {
		return "", nil
	}
	return cleanETag(aws.ToString(out.CopyObjectResult.ETag)), nil
}

func (p *Provider) DeleteObject(ctx context.Context, key string) error {
	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return p.wrapError("DeleteObject", key, err)
	}
	return nil
}

// Close is a no-op; the SDK client holds nothing that needs releasing.
func (p *Provider) Close() error {
	return nil
}

// copySource encodes bucket/key for x-amz-copy-source. Each key segment is
// path-escaped with '+' forced to %2B; separators stay literal.
func copySource(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = strings.ReplaceAll(url.PathEscape(seg), "+", "%2B")
	}
	return bucket + "/" + strings.Join(segments, "/")
}

func cleanETag(etag string) string {
	return strings.Trim(etag, `"`)
}

// resolveRegion falls back to us-east-1 for AWS when neither config, env
// nor profile named a region. Custom endpoints get no default.
func resolveRegion(endpoint, sdkRegion string) string {
	switch {
	case sdkRegion != "":
		return sdkRegion
	case endpoint == "":
		return DefaultAWSRegion
	default:
		return ""
	}
}
