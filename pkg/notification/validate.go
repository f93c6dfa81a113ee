package notification

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/schema"

	schemasassets "github.com/3leaps/s3relocate/internal/assets/schemas"
)

// ErrSchemaViolation indicates a document that does not match the S3 event
// notification schema.
var ErrSchemaViolation = errors.New("event does not match notification schema")

var (
	validatorOnce sync.Once
	validator     *schema.Validator
	validatorErr  error
)

// ValidationError is a single schema violation.
type ValidationError struct {
	// Path is the JSON pointer to the offending value, e.g. "/Records/1/s3".
	Path    string
	Message string
}

func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors collects the violations found in one document.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	switch len(e) {
	case 0:
		return ErrSchemaViolation.Error()
	case 1:
		return e[0].Error()
	}
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return fmt.Sprintf("%d schema violations: %s", len(e), strings.Join(msgs, "; "))
}

func (e ValidationErrors) Unwrap() error {
	return ErrSchemaViolation
}

// recordIndex returns the lowest record position named by the violations,
// or -1 when none points inside Records.
func (e ValidationErrors) recordIndex() int {
	idx := -1
	for _, v := range e {
		if i := recordIndexFromPointer(v.Path); i >= 0 && (idx < 0 || i < idx) {
			idx = i
		}
	}
	return idx
}

// ValidateRaw checks a JSON document against the embedded notification
// schema. It returns nil or ValidationErrors.
func ValidateRaw(data []byte) error {
	v, err := getValidator()
	if err != nil {
		return err
	}

	diags, err := v.ValidateJSON(data)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	var errs ValidationErrors
	for _, d := range diags {
		if d.Severity == schema.SeverityError {
			errs = append(errs, ValidationError{Path: d.Pointer, Message: d.Message})
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func getValidator() (*schema.Validator, error) {
	validatorOnce.Do(func() {
		if len(schemasassets.S3EventNotificationSchema) == 0 {
			validatorErr = errors.New("embedded notification schema is empty")
			return
		}
		validator, validatorErr = schema.NewValidator(schemasassets.S3EventNotificationSchema)
		if validatorErr != nil {
			validatorErr = fmt.Errorf("compile notification schema: %w", validatorErr)
		}
	})
	return validator, validatorErr
}

// recordIndexFromPointer extracts N from "/Records/N/...".
func recordIndexFromPointer(pointer string) int {
	rest, ok := strings.CutPrefix(pointer, "/Records/")
	if !ok {
		return -1
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return -1
	}
	return n
}
