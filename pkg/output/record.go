// Package output reports relocation batches as JSON lines, one typed
// envelope per line. Every batch ends with a summary envelope.
package output

import (
	"encoding/json"
	"errors"
	"time"
)

// Envelope types, versioned so consumers can switch on them.
const (
	TypeRelocation = "s3relocate.relocation.v1"
	TypeSkip       = "s3relocate.skip.v1"
	TypeError      = "s3relocate.error.v1"
	TypeSummary    = "s3relocate.summary.v1"
)

// Record is one JSONL line. Data holds the payload named by Type.
type Record struct {
	Type         string          `json:"type"`
	TS           time.Time       `json:"ts"`
	InvocationID string          `json:"invocation_id"`
	Provider     string          `json:"provider"`
	Data         json.RawMessage `json:"data"`
}

// RelocationRecord is the data payload for a relocated object.
type RelocationRecord struct {
	Index             int    `json:"index"`
	Key               string `json:"key"`
	SourceBucket      string `json:"source_bucket"`
	DestinationBucket string `json:"destination_bucket"`
	ETag              string `json:"etag,omitempty"`
	Bytes             int64  `json:"bytes"`
}

// SkipRecord is the data payload for an object that was not relocated.
type SkipRecord struct {
	Index  int    `json:"index"`
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// ErrorRecord describes why a batch stopped. Index and Key are set when a
// particular record failed; Stage names copy, verify or delete.
type ErrorRecord struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Key     string `json:"key,omitempty"`
	Index   *int   `json:"index,omitempty"`
	Stage   string `json:"stage,omitempty"`
}

// Error codes for ErrorRecord.
const (
	ErrCodeAccessDenied        = "ACCESS_DENIED"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeTimeout             = "TIMEOUT"
	ErrCodeThrottled           = "THROTTLED"
	ErrCodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	ErrCodeVerifyFailed        = "VERIFY_FAILED"
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeInternal            = "INTERNAL"
)

// SummaryRecord closes every batch, including aborted ones.
type SummaryRecord struct {
	Records       int           `json:"records"`
	Relocated     int           `json:"relocated"`
	Skipped       int           `json:"skipped"`
	BytesMoved    int64         `json:"bytes_moved"`
	Duration      time.Duration `json:"duration_ns"`
	DurationHuman string        `json:"duration"`
	Failed        bool          `json:"failed"`
}

// ErrWriterClosed is returned by writes after Close.
var ErrWriterClosed = errors.New("writer is closed")

// WriteError is a marshal or write failure; Op says which.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string {
	return "output: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
