package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// snapshotFileName is the fixed name of the latest ledger snapshot inside the
// backend's directory or prefix.
const snapshotFileName = "consumption-ledger.json"

// FileBackend writes snapshots to a directory, typically a mounted backup
// volume.
type FileBackend struct {
	dir string
	log *slog.Logger
}

// NewFileBackend creates a filesystem snapshot backend rooted at dir.
func NewFileBackend(dir string, log *slog.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &FileBackend{dir: dir, log: log}, nil
}

// WriteSnapshot replaces the latest snapshot atomically.
func (b *FileBackend) WriteSnapshot(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := filepath.Join(b.dir, snapshotFileName)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write snapshot temp file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("failed to replace snapshot file: %w", err)
	}

	b.log.Debug("Wrote ledger snapshot", slog.String("path", target), slog.Int("size", len(data)))
	return nil
}

// Name identifies the backend in logs.
func (b *FileBackend) Name() string {
	return "file-" + b.dir
}
