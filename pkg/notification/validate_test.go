package notification

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRaw(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "two records", body: twoRecordEvent},
		{name: "test event", body: `{"Service":"Amazon S3","Event":"s3:TestEvent"}`},
		{name: "empty document", body: `{}`},
		{name: "records not an array", body: `{"Records":"a.txt"}`, wantErr: true},
		{name: "record without s3", body: `{"Records":[{"eventName":"ObjectCreated:Put"}]}`, wantErr: true},
		{name: "numeric key", body: `{"Records":[{"s3":{"object":{"key":7}}}]}`, wantErr: true},
		{name: "negative size", body: `{"Records":[{"s3":{"object":{"key":"a","size":-1}}}]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRaw([]byte(tt.body))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSchemaViolation))

			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.NotEmpty(t, verrs)
		})
	}
}

func TestDecode_SchemaViolation(t *testing.T) {
	_, err := Decode([]byte(`{"Records":[{"s3":{"object":{"key":"ok"}}},{"s3":{}}]}`))
	require.Error(t, err)

	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.True(t, errors.Is(err, ErrSchemaViolation))
}

func TestRecordIndexFromPointer(t *testing.T) {
	tests := []struct {
		pointer string
		want    int
	}{
		{"/Records/0", 0},
		{"/Records/12/s3/object/key", 12},
		{"/Records", -1},
		{"/Records/x/s3", -1},
		{"/Event", -1},
		{"", -1},
	}

	for _, tt := range tests {
		t.Run(tt.pointer, func(t *testing.T) {
			assert.Equal(t, tt.want, recordIndexFromPointer(tt.pointer))
		})
	}
}

func TestValidationErrors(t *testing.T) {
	errs := ValidationErrors{
		{Path: "/Records/3/s3", Message: "missing properties: 'object'"},
		{Path: "/Records/1/s3/object/key", Message: "expected string"},
	}

	assert.Equal(t, 1, errs.recordIndex())
	assert.Contains(t, errs.Error(), "2 schema violations")
	assert.Equal(t, "/Records/1/s3/object/key: expected string", errs[1].Error())
	assert.Equal(t, "root", ValidationError{Message: "root"}.Error())
	assert.Equal(t, -1, ValidationErrors{{Message: "root"}}.recordIndex())
}
