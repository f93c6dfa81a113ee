package output

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Writer emits the records of one relocation batch. Each call writes one
// complete line; implementations are safe for concurrent use.
type Writer interface {
	WriteRelocation(ctx context.Context, rec *RelocationRecord) error
	WriteSkip(ctx context.Context, skip *SkipRecord) error
	WriteError(ctx context.Context, err *ErrorRecord) error
	WriteSummary(ctx context.Context, sum *SummaryRecord) error
	Close() error
}

// JSONLWriter wraps every record in a Record envelope stamped with the
// invocation ID and writes it as one JSON line.
type JSONLWriter struct {
	mu     sync.Mutex
	out    io.Writer
	closed bool

	invocationID string
	provider     string
}

var _ Writer = (*JSONLWriter)(nil)

// NewJSONLWriter writes to out. provider is stamped on every envelope,
// typically "s3".
func NewJSONLWriter(out io.Writer, invocationID, provider string) *JSONLWriter {
	return &JSONLWriter{out: out, invocationID: invocationID, provider: provider}
}

func (jw *JSONLWriter) WriteRelocation(ctx context.Context, rec *RelocationRecord) error {
	return jw.emit(ctx, TypeRelocation, rec)
}

func (jw *JSONLWriter) WriteSkip(ctx context.Context, skip *SkipRecord) error {
	return jw.emit(ctx, TypeSkip, skip)
}

func (jw *JSONLWriter) WriteError(ctx context.Context, err *ErrorRecord) error {
	return jw.emit(ctx, TypeError, err)
}

func (jw *JSONLWriter) WriteSummary(ctx context.Context, sum *SummaryRecord) error {
	return jw.emit(ctx, TypeSummary, sum)
}

// Close rejects further writes. The underlying io.Writer stays open; its
// owner closes it.
func (jw *JSONLWriter) Close() error {
	jw.mu.Lock()
	jw.closed = true
	jw.mu.Unlock()
	return nil
}

func (jw *JSONLWriter) emit(ctx context.Context, recordType string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return &WriteError{Op: "marshal_data", Err: err}
	}

	jw.mu.Lock()
	defer jw.mu.Unlock()
	if jw.closed {
		return ErrWriterClosed
	}

	line, err := json.Marshal(Record{
		Type:         recordType,
		TS:           time.Now().UTC(),
		InvocationID: jw.invocationID,
		Provider:     jw.provider,
		Data:         data,
	})
	if err != nil {
		return &WriteError{Op: "marshal_record", Err: err}
	}

	if err := writeFull(jw.out, append(line, '\n')); err != nil {
		return &WriteError{Op: "write", Err: err}
	}
	return nil
}

// writeFull retries short writes so a line is never truncated.
func writeFull(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		switch {
		case err != nil:
			return err
		case n == 0:
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}
