// Package runner executes event batches against a Relocator and reports
// them through the process loggers and metrics.
package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/3leaps/s3relocate/internal/observability"
	"github.com/3leaps/s3relocate/pkg/notification"
	"github.com/3leaps/s3relocate/pkg/output"
	"github.com/3leaps/s3relocate/pkg/relocate"
)

// Relocator is the subset of *relocate.Relocator the runner drives.
type Relocator interface {
	Relocate(ctx context.Context, batch notification.Batch) (*relocate.Summary, error)
}

// Runner serializes batches through one Relocator.
type Runner struct {
	relocator Relocator
	logger    *zap.Logger
	metrics   *observability.Metrics

	mu sync.Mutex
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics records every batch in m.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// New creates a Runner for rel.
func New(rel Relocator, opts ...Option) *Runner {
	r := &Runner{relocator: rel, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewInvocationID returns a random ID for correlating records of one batch.
func NewInvocationID() string {
	return uuid.NewString()
}

// Run relocates batch. Concurrent calls are executed one at a time.
//
// The summary is non-nil even when err is non-nil.
func (r *Runner) Run(ctx context.Context, invocationID string, batch notification.Batch) (*relocate.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	log := r.logger.With(zap.String("invocation_id", invocationID))
	log.Debug("Relocating batch", zap.Int("records", len(batch)))

	start := time.Now()
	sum, err := r.relocator.Relocate(ctx, batch)
	if sum == nil {
		sum = &relocate.Summary{Records: len(batch), Duration: time.Since(start)}
	}

	for _, res := range sum.Results {
		log.Debug("Record processed",
			zap.Int("index", res.Index),
			zap.String("key", res.Key),
			zap.String("status", string(res.Status)),
			zap.String("reason", res.Reason),
			zap.Int64("bytes", res.Bytes))
	}

	fields := []zap.Field{
		zap.Int("records", sum.Records),
		zap.Int("relocated", sum.Relocated),
		zap.Int("skipped", sum.Skipped),
		zap.Int64("bytes_moved", sum.BytesMoved),
		zap.Duration("duration", sum.Duration),
	}

	if err != nil {
		r.observe(resultFor(err), sum, 1)
		var relErr *relocate.RelocationError
		if errors.As(err, &relErr) {
			fields = append(fields,
				zap.Int("failed_index", relErr.Index),
				zap.String("failed_key", relErr.Key),
				zap.String("stage", string(relErr.Stage)))
		}
		fields = append(fields, zap.String("code", output.ClassifyError(err)), zap.Error(err))
		log.Error("Batch aborted", fields...)
		return sum, err
	}

	r.observe(observability.ResultSuccess, sum, 0)
	log.Info("Batch relocated", fields...)
	return sum, nil
}

// Reject records a batch that never reached the relocator, such as an
// undecodable payload.
func (r *Runner) Reject(invocationID string, err error) {
	r.observe(observability.ResultInvalid, &relocate.Summary{}, 0)
	r.logger.Warn("Batch rejected",
		zap.String("invocation_id", invocationID),
		zap.String("code", output.ClassifyError(err)),
		zap.Error(err))
}

func (r *Runner) observe(result string, sum *relocate.Summary, failed int) {
	if r.metrics == nil {
		return
	}
	r.metrics.ObserveBatch(result, sum.Relocated, sum.Skipped, failed, sum.BytesMoved, sum.Duration)
}

func resultFor(err error) string {
	if relocate.IsConfigError(err) {
		return observability.ResultInvalid
	}
	return observability.ResultFailure
}
