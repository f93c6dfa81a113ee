// Package relocate moves objects named by storage event notifications from a
// source bucket to a destination bucket.
//
// Each notification is handled to completion (copy, optional verification,
// delete) before the next one starts. The first failure aborts the batch;
// nothing already relocated is rolled back and nothing is retried here.
// Retrying the whole batch is the invoker's responsibility.
package relocate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/3leaps/s3relocate/pkg/notification"
	"github.com/3leaps/s3relocate/pkg/provider"
)

// Status is the outcome of one record.
type Status string

const (
	StatusRelocated Status = "relocated"
	StatusSkipped   Status = "skipped"
)

// Result describes one record that was processed without error.
type Result struct {
	Index             int
	Key               string
	SourceBucket      string
	DestinationBucket string
	ETag              string
	Bytes             int64
	Status            Status
	Reason            string
}

// Summary aggregates a batch. It is returned even when the batch fails, and
// then covers only the records before the failure.
type Summary struct {
	Records    int
	Relocated  int
	Skipped    int
	BytesMoved int64
	Duration   time.Duration
	Results    []Result
}

// destination is what the relocator needs from the destination bucket.
type destination interface {
	provider.Provider
	provider.ObjectCopier
}

// Relocator applies copy-then-delete to event batches.
//
// A Relocator holds no per-batch state and may be reused across invocations,
// but Relocate must not be called concurrently.
type Relocator struct {
	cfg     Config
	src     provider.ObjectDeleter
	dst     destination
	limiter *rate.Limiter
}

// New validates cfg and binds it to the source and destination providers.
//
// src must support DeleteObject; dst must support CopyObject. Missing
// capabilities are reported as provider.ErrUnsupported.
func New(cfg Config, src provider.Provider, dst provider.Provider) (*Relocator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	deleter, ok := src.(provider.ObjectDeleter)
	if !ok {
		return nil, fmt.Errorf("source provider: DeleteObject: %w", provider.ErrUnsupported)
	}
	copier, ok := dst.(destination)
	if !ok {
		return nil, fmt.Errorf("destination provider: CopyObject: %w", provider.ErrUnsupported)
	}

	if cfg.Verify == "" {
		cfg.Verify = DefaultConfig().Verify
	}

	r := &Relocator{cfg: cfg, src: deleter, dst: copier}
	if cfg.RateLimit > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return r, nil
}

// Config returns the configuration the relocator was built with.
func (r *Relocator) Config() Config {
	return r.cfg
}

// Relocate processes batch in order. An empty batch issues no remote calls.
//
// On failure the returned error is a *RelocationError and the summary covers
// the records completed before it.
func (r *Relocator) Relocate(ctx context.Context, batch notification.Batch) (*Summary, error) {
	start := time.Now()
	sum := &Summary{
		Records: len(batch),
		Results: make([]Result, 0, len(batch)),
	}
	finish := func(err error) (*Summary, error) {
		sum.Duration = time.Since(start)
		return sum, err
	}

	if err := r.cfg.Validate(); err != nil {
		return finish(err)
	}

	for i, n := range batch {
		if pattern, ok := r.cfg.MatchSkip(n.Key); ok {
			sum.Skipped++
			sum.Results = append(sum.Results, Result{
				Index:             i,
				Key:               n.Key,
				SourceBucket:      r.cfg.SourceBucket,
				DestinationBucket: r.cfg.DestinationBucket,
				Status:            StatusSkipped,
				Reason:            "skip_pattern:" + pattern,
			})
			continue
		}

		if err := r.wait(ctx); err != nil {
			return finish(&RelocationError{Index: i, Key: n.Key, Stage: StageCopy, Err: err})
		}

		res, stage, err := r.relocateOne(ctx, n)
		if err != nil {
			return finish(&RelocationError{Index: i, Key: n.Key, Stage: stage, Err: err})
		}
		res.Index = i

		sum.Relocated++
		sum.BytesMoved += res.Bytes
		sum.Results = append(sum.Results, res)
	}

	return finish(nil)
}

func (r *Relocator) relocateOne(ctx context.Context, n notification.Notification) (Result, Stage, error) {
	res := Result{
		Key:               n.Key,
		SourceBucket:      r.cfg.SourceBucket,
		DestinationBucket: r.cfg.DestinationBucket,
		Bytes:             n.Size,
		Status:            StatusRelocated,
	}

	etag, err := r.dst.CopyObject(ctx, r.cfg.SourceBucket, n.Key, n.Key, n.Size)
	if err != nil {
		return res, StageCopy, err
	}
	res.ETag = etag

	if r.cfg.verifyMode() == VerifyHead {
		meta, err := r.dst.Head(ctx, n.Key)
		if err != nil {
			return res, StageVerify, err
		}
		if etag != "" && meta.ETag != "" && meta.ETag != etag {
			return res, StageVerify, &VerifyError{Key: n.Key, Expected: etag, Got: meta.ETag}
		}
		if n.Size > 0 && meta.Size != n.Size {
			return res, StageVerify, &VerifyError{
				Key:      n.Key,
				Expected: "size=" + strconv.FormatInt(n.Size, 10),
				Got:      "size=" + strconv.FormatInt(meta.Size, 10),
			}
		}
		res.Bytes = meta.Size
		if res.ETag == "" {
			res.ETag = meta.ETag
		}
	}

	if err := r.src.DeleteObject(ctx, n.Key); err != nil {
		return res, StageDelete, err
	}

	return res, "", nil
}

func (r *Relocator) wait(ctx context.Context) error {
	if r.limiter != nil {
		return r.limiter.Wait(ctx)
	}
	return ctx.Err()
}
