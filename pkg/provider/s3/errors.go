package s3

import (
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/3leaps/s3relocate/pkg/provider"
)

var errorCodes = map[string]error{
	"NoSuchKey":             provider.ErrNotFound,
	"NotFound":              provider.ErrNotFound,
	"NoSuchUpload":          provider.ErrNotFound,
	"NoSuchBucket":          provider.ErrBucketNotFound,
	"AccessDenied":          provider.ErrAccessDenied,
	"Forbidden":             provider.ErrAccessDenied,
	"InvalidAccessKeyId":    provider.ErrInvalidCredentials,
	"SignatureDoesNotMatch": provider.ErrInvalidCredentials,
	"SlowDown":              provider.ErrThrottled,
	"Throttling":            provider.ErrThrottled,
	"RequestLimitExceeded":  provider.ErrThrottled,
	"ServiceUnavailable":    provider.ErrProviderUnavailable,
	"InternalError":         provider.ErrProviderUnavailable,
}

// Checked in order; NoSuchBucket must precede the generic 404 match.
var errorFragments = []struct {
	sentinel  error
	fragments []string
}{
	{provider.ErrBucketNotFound, []string{"NoSuchBucket"}},
	{provider.ErrNotFound, []string{"NoSuchKey", "NotFound", "404"}},
	{provider.ErrAccessDenied, []string{"AccessDenied", "Forbidden", "403"}},
	{provider.ErrInvalidCredentials, []string{"InvalidAccessKeyId", "SignatureDoesNotMatch"}},
	{provider.ErrThrottled, []string{"SlowDown", "Throttling", "429"}},
	{provider.ErrProviderUnavailable, []string{"ServiceUnavailable", "503"}},
}

// classify maps an SDK error onto a provider sentinel, or nil when the
// failure is not recognised.
func classify(err error) error {
	var (
		notFound     *types.NotFound
		noSuchKey    *types.NoSuchKey
		noSuchUpload *types.NoSuchUpload
		noSuchBucket *types.NoSuchBucket
	)
	switch {
	case errors.As(err, &notFound), errors.As(err, &noSuchKey), errors.As(err, &noSuchUpload):
		return provider.ErrNotFound
	case errors.As(err, &noSuchBucket):
		return provider.ErrBucketNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return errorCodes[apiErr.ErrorCode()]
	}

	msg := err.Error()
	for _, f := range errorFragments {
		for _, frag := range f.fragments {
			if strings.Contains(msg, frag) {
				return f.sentinel
			}
		}
	}
	return nil
}

// wrapError records op and key against p's bucket, substituting the
// classified sentinel for err when there is one.
func (p *Provider) wrapError(op, key string, err error) error {
	if sentinel := classify(err); sentinel != nil {
		err = sentinel
	}
	return &provider.ProviderError{
		Op:       op,
		Provider: provider.ProviderS3,
		Bucket:   p.bucket,
		Key:      key,
		Err:      err,
	}
}
