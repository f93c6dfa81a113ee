package s3

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// multipartCopy copies an object too large for a single CopyObject request.
//
// Parts are copied sequentially in part-number order. Any failure aborts the
// upload so no partial object is left behind in the destination.
func (p *Provider) multipartCopy(ctx context.Context, srcBucket, srcKey, dstKey string, size int64) (string, error) {
	created, err := p.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(dstKey),
	})
	if err != nil {
		return "", p.wrapError("CreateMultipartUpload", dstKey, err)
	}
	uploadID := aws.ToString(created.UploadId)

	parts, err := p.copyParts(ctx, srcBucket, srcKey, dstKey, uploadID, size)
	if err != nil {
		p.abortMultipartUpload(dstKey, uploadID)
		return "", err
	}

	out, err := p.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(p.bucket),
		Key:             aws.String(dstKey),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: parts},
	})
	if err != nil {
		p.abortMultipartUpload(dstKey, uploadID)
		return "", p.wrapError("CompleteMultipartUpload", dstKey, err)
	}

	return cleanETag(aws.ToString(out.ETag)), nil
}

func (p *Provider) copyParts(ctx context.Context, srcBucket, srcKey, dstKey, uploadID string, size int64) ([]types.CompletedPart, error) {
	partSize := effectivePartSize(size, p.partSize)
	numParts := partCount(size, partSize)
	source := copySource(srcBucket, srcKey)

	parts := make([]types.CompletedPart, 0, numParts)
	for i := 0; i < numParts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		partNumber := int32(i + 1)
		start := int64(i) * partSize
		end := start + partSize - 1
		if end >= size {
			end = size - 1
		}

		out, err := p.client.UploadPartCopy(ctx, &s3.UploadPartCopyInput{
			Bucket:          aws.String(p.bucket),
			Key:             aws.String(dstKey),
			UploadId:        aws.String(uploadID),
			PartNumber:      aws.Int32(partNumber),
			CopySource:      aws.String(source),
			CopySourceRange: aws.String(fmt.Sprintf("bytes=%d-%d", start, end)),
		})
		if err != nil {
			return nil, p.wrapError("UploadPartCopy", dstKey, err)
		}

		var etag *string
		if out.CopyPartResult != nil {
			etag = out.CopyPartResult.ETag
		}
		parts = append(parts, types.CompletedPart{
			ETag:       etag,
			PartNumber: aws.Int32(partNumber),
		})
	}

	return parts, nil
}

// abortMultipartUpload is best-effort cleanup. It runs on a fresh context so
// that a cancelled copy still releases the upload.
func (p *Provider) abortMultipartUpload(key, uploadID string) {
	_, _ = p.client.AbortMultipartUpload(context.Background(), &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(p.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
}

// effectivePartSize grows the configured part size when the object would
// otherwise need more than MaxCopyParts parts.
func effectivePartSize(size, configured int64) int64 {
	partSize := configured
	if partCount(size, partSize) > MaxCopyParts {
		partSize = (size + MaxCopyParts - 1) / MaxCopyParts
	}
	return partSize
}

// partCount is the ceiling of size/partSize, with a minimum of one part.
func partCount(size, partSize int64) int {
	if size <= 0 {
		return 1
	}
	return int((size + partSize - 1) / partSize)
}
