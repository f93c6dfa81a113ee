package relocate

import (
	"errors"
	"fmt"
)

// Stage names the remote step that failed for a record.
type Stage string

const (
	StageCopy   Stage = "copy"
	StageVerify Stage = "verify"
	StageDelete Stage = "delete"
)

// ConfigError represents a relocation configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "relocate config: " + e.Field + ": " + e.Message
}

// RelocationError reports the record that aborted a batch.
//
// Records before Index were fully relocated; the record at Index and every
// record after it were left in the source bucket, except that a StageDelete
// failure leaves the record copied but not deleted.
type RelocationError struct {
	// Index is the position of the failing record in the batch.
	Index int

	// Key is the object key of the failing record.
	Key string

	// Stage is the step that failed.
	Stage Stage

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *RelocationError) Error() string {
	return fmt.Sprintf("relocate record %d (%s): %s: %v", e.Index, e.Key, e.Stage, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *RelocationError) Unwrap() error {
	return e.Err
}

// ErrVerifyFailed indicates the destination did not match the copy.
var ErrVerifyFailed = errors.New("destination verification failed")

// VerifyError describes a mismatch between what was copied and the
// destination object: its ETag, or its size when the event carried one.
type VerifyError struct {
	Key      string
	Expected string
	Got      string
}

// Error implements the error interface.
func (e *VerifyError) Error() string {
	return fmt.Sprintf("destination mismatch for %s: expected=%s got=%s", e.Key, e.Expected, e.Got)
}

// Is reports VerifyError as ErrVerifyFailed.
func (e *VerifyError) Is(target error) bool {
	return target == ErrVerifyFailed
}

// IsConfigError returns true if err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}
