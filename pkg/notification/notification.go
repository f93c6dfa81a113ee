// Package notification decodes object-storage event notifications into an
// ordered batch of object references.
//
// The wire format is the S3 event notification document
// ({"Records":[{"s3":{"bucket":{...},"object":{...}}}]}) as delivered to
// Lambda functions, SQS/SNS subscribers and S3-compatible webhook targets
// such as MinIO.
package notification

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/aws/aws-lambda-go/events"
)

// Notification identifies one object named by an event record.
type Notification struct {
	// Bucket is the bucket named in the event record. Relocation always reads
	// from the configured source bucket; this value is informational.
	Bucket string

	// Key is the URL-decoded object key.
	Key string

	// RawKey is the key exactly as delivered in the event.
	RawKey string

	// Size is the object size reported by the event. Zero when absent.
	Size int64

	// ETag is the object ETag reported by the event, if any.
	ETag string

	// VersionID is the object version reported by the event, if any.
	VersionID string

	// EventName is the event type, e.g. "ObjectCreated:Put".
	EventName string

	// EventTime is when the storage service emitted the event.
	EventTime time.Time

	// Sequencer orders events for the same key.
	Sequencer string
}

// Batch is an ordered sequence of notifications from a single invocation.
type Batch []Notification

// Keys returns the decoded keys in batch order.
func (b Batch) Keys() []string {
	keys := make([]string, len(b))
	for i, n := range b {
		keys[i] = n.Key
	}
	return keys
}

// Decode parses an S3 event notification document.
//
// A document without a Records array (for example the s3:TestEvent sent when
// a notification configuration is created) decodes to an empty batch.
// Documents are checked against the embedded notification schema first, so
// a record of the wrong shape is reported with its position.
func Decode(data []byte) (Batch, error) {
	if !json.Valid(data) {
		return nil, &DecodeError{Index: -1, Err: errors.New("invalid JSON")}
	}
	if err := ValidateRaw(data); err != nil {
		idx := -1
		var verrs ValidationErrors
		if errors.As(err, &verrs) {
			idx = verrs.recordIndex()
		}
		return nil, &DecodeError{Index: idx, Err: err}
	}

	var doc struct {
		Records []json.RawMessage `json:"Records"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &DecodeError{Index: -1, Err: err}
	}

	batch := make(Batch, 0, len(doc.Records))
	for i, raw := range doc.Records {
		rec, err := unmarshalRecord(raw)
		if err != nil {
			return nil, &DecodeError{Index: i, Err: err}
		}
		n, err := fromRecord(rec)
		if err != nil {
			return nil, &DecodeError{Index: i, Err: err}
		}
		batch = append(batch, n)
	}
	return batch, nil
}

// unmarshalRecord decodes one record. events.S3Object unescapes the key
// while unmarshalling, so an escape failure there is reported as
// ErrInvalidKey.
func unmarshalRecord(raw json.RawMessage) (events.S3EventRecord, error) {
	var rec events.S3EventRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		var keyOnly struct {
			S3 struct {
				Object struct {
					Key string `json:"key"`
				} `json:"object"`
			} `json:"s3"`
		}
		if json.Unmarshal(raw, &keyOnly) == nil {
			if _, keyErr := DecodeKey(keyOnly.S3.Object.Key); errors.Is(keyErr, ErrInvalidKey) {
				return rec, keyErr
			}
		}
		return rec, err
	}
	return rec, nil
}

// FromS3Event converts a Lambda-typed S3 event into a batch, preserving
// record order.
func FromS3Event(evt events.S3Event) (Batch, error) {
	batch := make(Batch, 0, len(evt.Records))
	for i, rec := range evt.Records {
		n, err := fromRecord(rec)
		if err != nil {
			return nil, &DecodeError{Index: i, Err: err}
		}
		batch = append(batch, n)
	}
	return batch, nil
}

func fromRecord(rec events.S3EventRecord) (Notification, error) {
	raw := rec.S3.Object.Key
	if raw == "" {
		return Notification{}, ErrEmptyKey
	}

	key := rec.S3.Object.URLDecodedKey
	if key == "" {
		var err error
		if key, err = DecodeKey(raw); err != nil {
			return Notification{}, err
		}
	}

	return Notification{
		Bucket:    rec.S3.Bucket.Name,
		Key:       key,
		RawKey:    raw,
		Size:      rec.S3.Object.Size,
		ETag:      rec.S3.Object.ETag,
		VersionID: rec.S3.Object.VersionID,
		EventName: rec.EventName,
		EventTime: rec.EventTime,
		Sequencer: rec.S3.Object.Sequencer,
	}, nil
}

// DecodeKey reverses the form encoding S3 applies to keys in event
// notifications ("+" for space, percent-escapes for reserved bytes).
func DecodeKey(raw string) (string, error) {
	key, err := url.QueryUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidKey, raw, err)
	}
	if key == "" {
		return "", ErrEmptyKey
	}
	return key, nil
}
