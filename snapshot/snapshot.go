// Package snapshot mirrors the consumption ledger to off-host storage. Every
// persisted ledger state is pushed to the configured backend so an operator
// can recover the at-most-once guarantees after losing the host disk.
//
// Backends are selected by URI:
//   - file:///var/backups/suirify - local or mounted filesystem
//   - s3://key:secret@bucket/prefix?region=eu-west-1 - S3 compatible object store
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// Backend receives serialized ledger snapshots.
type Backend interface {
	// WriteSnapshot stores one serialized ledger state.
	WriteSnapshot(ctx context.Context, data []byte) error

	// Name identifies the backend in logs.
	Name() string
}

// FromURI creates a snapshot backend from a location URI.
func FromURI(locationURI string, log *slog.Logger) (Backend, error) {
	u, err := url.Parse(locationURI)
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot location %q: %w", locationURI, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return NewFileBackend(u.Path, log)
	case "s3":
		return newS3FromURL(u, log)
	default:
		return nil, fmt.Errorf("unsupported snapshot scheme: %s", u.Scheme)
	}
}
