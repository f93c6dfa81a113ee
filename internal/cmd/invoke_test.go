package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/s3relocate/pkg/output"
	"github.com/3leaps/s3relocate/pkg/provider"
)

const invokeEventDoc = `{
  "Records": [
    {"eventName": "ObjectCreated:Put", "s3": {"bucket": {"name": "incoming"}, "object": {"key": "a.txt", "size": 3}}},
    {"eventName": "ObjectCreated:Put", "s3": {"bucket": {"name": "incoming"}, "object": {"key": "tmp/b.part", "size": 4}}},
    {"eventName": "ObjectCreated:Put", "s3": {"bucket": {"name": "incoming"}, "object": {"key": "dir/c+d.txt", "size": 5}}}
  ]
}`

var bucketArgs = []string{"--source-bucket", "incoming", "--destination-bucket", "archive"}

func invokeArgs(extra ...string) []string {
	return append(append([]string{"invoke"}, bucketArgs...), extra...)
}

func seedInvokeStore() *memStore {
	store := newMemStore()
	store.put("incoming", "a.txt", 3)
	store.put("incoming", "tmp/b.part", 4)
	store.put("incoming", "dir/c d.txt", 5)
	return store
}

func TestInvoke_RelocatesBatch(t *testing.T) {
	store := seedInvokeStore()
	useMemStore(t, store)
	event := writeFile(t, "event.json", invokeEventDoc)

	out, err := execute(t, context.Background(), invokeArgs("--event", event, "--skip", "tmp/**")...)
	require.NoError(t, err)

	assert.False(t, store.has("incoming", "a.txt"))
	assert.True(t, store.has("archive", "a.txt"))
	assert.True(t, store.has("incoming", "tmp/b.part"), "skipped key stays in place")
	assert.True(t, store.has("archive", "dir/c d.txt"), "keys are URL-decoded")

	records := decodeRecords(t, out)
	require.Len(t, records, 4)
	assert.Equal(t, output.TypeRelocation, records[0].Type)
	assert.Equal(t, output.TypeSkip, records[1].Type)
	assert.Equal(t, output.TypeRelocation, records[2].Type)
	assert.Equal(t, output.TypeSummary, records[3].Type)
	for _, rec := range records {
		assert.Equal(t, records[0].InvocationID, rec.InvocationID)
		assert.Equal(t, "s3", rec.Provider)
	}

	var sum output.SummaryRecord
	require.NoError(t, json.Unmarshal(records[3].Data, &sum))
	assert.Equal(t, 3, sum.Records)
	assert.Equal(t, 2, sum.Relocated)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, int64(8), sum.BytesMoved)
	assert.False(t, sum.Failed)
}

func TestInvoke_AbortWritesErrorRecord(t *testing.T) {
	store := seedInvokeStore()
	store.copyErr["tmp/b.part"] = &provider.ProviderError{Op: "CopyObject", Provider: provider.ProviderS3, Key: "tmp/b.part", Err: provider.ErrAccessDenied}
	useMemStore(t, store)
	event := writeFile(t, "event.json", invokeEventDoc)

	out, err := execute(t, context.Background(), invokeArgs("--event", event)...)
	require.Error(t, err)
	assert.Equal(t, foundry.ExitExternalServiceUnavailable, ExitCode(err))

	assert.True(t, store.has("archive", "a.txt"))
	assert.True(t, store.has("incoming", "tmp/b.part"))
	assert.True(t, store.has("incoming", "dir/c d.txt"), "records after the failure are not attempted")

	records := decodeRecords(t, out)
	require.Len(t, records, 3)
	assert.Equal(t, output.TypeRelocation, records[0].Type)
	assert.Equal(t, output.TypeError, records[1].Type)
	assert.Equal(t, output.TypeSummary, records[2].Type)

	var rec output.ErrorRecord
	require.NoError(t, json.Unmarshal(records[1].Data, &rec))
	assert.Equal(t, output.ErrCodeAccessDenied, rec.Code)
	assert.Equal(t, "tmp/b.part", rec.Key)
	require.NotNil(t, rec.Index)
	assert.Equal(t, 1, *rec.Index)
	assert.Equal(t, "copy", rec.Stage)
}

func TestInvoke_InvalidEvent(t *testing.T) {
	store := newMemStore()
	useMemStore(t, store)
	event := writeFile(t, "event.json", `{"Records": [`)

	out, err := execute(t, context.Background(), invokeArgs("--event", event)...)
	require.Error(t, err)
	assert.Equal(t, foundry.ExitInvalidArgument, ExitCode(err))

	records := decodeRecords(t, out)
	require.Len(t, records, 2)
	assert.Equal(t, output.TypeError, records[0].Type)

	var rec output.ErrorRecord
	require.NoError(t, json.Unmarshal(records[0].Data, &rec))
	assert.Equal(t, output.ErrCodeInvalidInput, rec.Code)
}

func TestInvoke_MissingBuckets(t *testing.T) {
	useMemStore(t, newMemStore())
	event := writeFile(t, "event.json", invokeEventDoc)

	_, err := execute(t, context.Background(), "invoke", "--event", event)
	require.Error(t, err)
	assert.Equal(t, foundry.ExitInvalidArgument, ExitCode(err))
}

func TestInvoke_EventFileNotFound(t *testing.T) {
	_, err := execute(t, context.Background(), invokeArgs("--event", filepath.Join(t.TempDir(), "missing.json"))...)
	require.Error(t, err)
	assert.Equal(t, foundry.ExitFileNotFound, ExitCode(err))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestInvoke_DryRunDoesNotTouchBuckets(t *testing.T) {
	store := seedInvokeStore()
	useMemStore(t, store)
	event := writeFile(t, "event.json", invokeEventDoc)

	out, err := execute(t, context.Background(), invokeArgs("--event", event, "--dry-run", "--skip", "tmp/**")...)
	require.NoError(t, err)

	assert.Contains(t, out, "Relocation Plan (dry-run)")
	assert.Contains(t, out, "[0] relocate  a.txt")
	assert.Contains(t, out, "[1] skip      tmp/b.part (matches tmp/**)")
	assert.Contains(t, out, "[2] relocate  dir/c d.txt")
	assert.True(t, store.has("incoming", "a.txt"))
	assert.False(t, store.has("archive", "a.txt"))
}

func TestInvoke_FileOutput(t *testing.T) {
	useMemStore(t, seedInvokeStore())
	event := writeFile(t, "event.json", invokeEventDoc)
	dest := filepath.Join(t.TempDir(), "out.jsonl")

	out, err := execute(t, context.Background(), invokeArgs("--event", event, "--output", "file:"+dest)...)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Len(t, decodeRecords(t, string(data)), 4)
}

func TestCreateWriter(t *testing.T) {
	t.Run("unwritable path", func(t *testing.T) {
		_, _, err := createWriter("file:"+filepath.Join(t.TempDir(), "missing", "out.jsonl"), "id", nil)
		require.Error(t, err)
	})
}

func TestInvoke_InvalidPartSizeIsInvalidArgument(t *testing.T) {
	t.Setenv("S3RELOCATE_PART_SIZE", "1024")
	event := writeFile(t, "event.json", invokeEventDoc)

	_, err := execute(t, context.Background(), invokeArgs("--event", event)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CopyPartSize")
	assert.Equal(t, foundry.ExitInvalidArgument, ExitCode(err))
}

func TestInvoke_FreshContextAfterCancelledRun(t *testing.T) {
	store := seedInvokeStore()
	useMemStore(t, store)
	event := writeFile(t, "event.json", invokeEventDoc)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := execute(t, cancelled, invokeArgs("--event", event)...)
	require.Error(t, err)
	assert.True(t, store.has("incoming", "a.txt"), "cancelled run must not relocate")

	_, err = execute(t, context.Background(), invokeArgs("--event", event)...)
	require.NoError(t, err)
	assert.True(t, store.has("archive", "a.txt"))
}
