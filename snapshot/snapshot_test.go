package snapshot

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFileBackendWritesAndReplaces(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir, testLogger())
	require.NoError(t, err)

	require.NoError(t, backend.WriteSnapshot(context.Background(), []byte(`{"v":1}`)))
	require.NoError(t, backend.WriteSnapshot(context.Background(), []byte(`{"v":2}`)))

	data, err := os.ReadFile(filepath.Join(dir, snapshotFileName))
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(data))
}

func TestFromURIFile(t *testing.T) {
	dir := t.TempDir()
	backend, err := FromURI("file://"+dir, testLogger())
	require.NoError(t, err)
	assert.Contains(t, backend.Name(), "file-")
}

func TestFromURIS3(t *testing.T) {
	backend, err := FromURI("s3://key:secret@my-bucket/backups?region=eu-west-1", testLogger())
	require.NoError(t, err)
	assert.Equal(t, "s3-my-bucket", backend.Name())
}

func TestFromURIUnsupported(t *testing.T) {
	_, err := FromURI("ftp://host/path", testLogger())
	assert.Error(t, err)

	_, err = FromURI("s3://?region=eu-west-1", testLogger())
	assert.Error(t, err)
}
