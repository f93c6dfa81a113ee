package output

import (
	"context"
	"errors"

	"github.com/3leaps/s3relocate/pkg/notification"
	"github.com/3leaps/s3relocate/pkg/provider"
	"github.com/3leaps/s3relocate/pkg/relocate"
)

// Report writes one record per processed notification, an error record when
// runErr is non-nil, and a closing summary.
//
// sum may be nil when the batch never started (for example a decode
// failure); only the error and an empty summary are written then.
func Report(ctx context.Context, w Writer, sum *relocate.Summary, runErr error) error {
	if sum == nil {
		sum = &relocate.Summary{}
	}

	for _, res := range sum.Results {
		var err error
		switch res.Status {
		case relocate.StatusSkipped:
			err = w.WriteSkip(ctx, &SkipRecord{
				Index:  res.Index,
				Key:    res.Key,
				Reason: res.Reason,
			})
		default:
			err = w.WriteRelocation(ctx, &RelocationRecord{
				Index:             res.Index,
				Key:               res.Key,
				SourceBucket:      res.SourceBucket,
				DestinationBucket: res.DestinationBucket,
				ETag:              res.ETag,
				Bytes:             res.Bytes,
			})
		}
		if err != nil {
			return err
		}
	}

	if runErr != nil {
		if err := w.WriteError(ctx, NewErrorRecord(runErr)); err != nil {
			return err
		}
	}

	rec := NewSummaryRecord(sum, runErr != nil)
	return w.WriteSummary(ctx, &rec)
}

// NewSummaryRecord converts a batch summary. A nil sum yields zero counts.
func NewSummaryRecord(sum *relocate.Summary, failed bool) SummaryRecord {
	if sum == nil {
		sum = &relocate.Summary{}
	}
	return SummaryRecord{
		Records:       sum.Records,
		Relocated:     sum.Relocated,
		Skipped:       sum.Skipped,
		BytesMoved:    sum.BytesMoved,
		Duration:      sum.Duration,
		DurationHuman: sum.Duration.String(),
		Failed:        failed,
	}
}

// NewErrorRecord builds an ErrorRecord from a relocation or decode error.
func NewErrorRecord(err error) *ErrorRecord {
	rec := &ErrorRecord{
		Code:    ClassifyError(err),
		Message: err.Error(),
	}

	var relErr *relocate.RelocationError
	if errors.As(err, &relErr) {
		idx := relErr.Index
		rec.Index = &idx
		rec.Key = relErr.Key
		rec.Stage = string(relErr.Stage)
	}

	var decErr *notification.DecodeError
	if errors.As(err, &decErr) && decErr.Index >= 0 {
		idx := decErr.Index
		rec.Index = &idx
	}

	return rec
}

// ClassifyError maps err to one of the ErrCode* constants.
func ClassifyError(err error) string {
	var decErr *notification.DecodeError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &decErr), relocate.IsConfigError(err):
		return ErrCodeInvalidInput
	case errors.Is(err, relocate.ErrVerifyFailed):
		return ErrCodeVerifyFailed
	case provider.IsNotFound(err):
		return ErrCodeNotFound
	case provider.IsAccessDenied(err):
		return ErrCodeAccessDenied
	case provider.IsThrottled(err):
		return ErrCodeThrottled
	case provider.IsProviderUnavailable(err):
		return ErrCodeProviderUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	default:
		return ErrCodeInternal
	}
}
