package kyc

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suirifyprotocol/suirify-sub000/interfaces"
)

func newTestDirectory() *Directory {
	return NewDirectory(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestLookupSeeded(t *testing.T) {
	d := newTestDirectory()
	ctx := context.Background()

	rec, err := d.Lookup(ctx, "Nigeria", "NGA-12345678901")
	require.NoError(t, err)
	assert.Equal(t, "Adaeze Obi", rec.FullName)

	// Country labels resolve through jurisdiction aliases.
	rec, err = d.Lookup(ctx, "NG", " NGA-12345678901 ")
	require.NoError(t, err)
	assert.Equal(t, "Adaeze Obi", rec.FullName)

	_, err = d.Lookup(ctx, "Nigeria", "NGA-00000000000")
	assert.ErrorIs(t, err, interfaces.ErrIdentityNotFound)
}

func TestOver18(t *testing.T) {
	d := newTestDirectory()
	ctx := context.Background()
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	adult, err := d.Lookup(ctx, "Nigeria", "NGA-12345678901")
	require.NoError(t, err)
	assert.True(t, adult.Over18(now))

	minor, err := d.Lookup(ctx, "Nigeria", "NGA-20060101002")
	require.NoError(t, err)
	assert.False(t, minor.Over18(now))

	// Exactly on the 18th birthday counts as over 18.
	boundary := &interfaces.IdentityRecord{DateOfBirth: time.Date(2008, 9, 1, 0, 0, 0, 0, time.UTC)}
	assert.True(t, boundary.Over18(now))
}

func TestLoadFile(t *testing.T) {
	d := newTestDirectory()
	path := filepath.Join(t.TempDir(), "records.json")
	content := `{"records":[{"country":"Ghana","idNumber":"GHA-1","fullName":"Ama Owusu","dateOfBirth":"1979-07-19"}]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	require.NoError(t, d.LoadFile(path))
	rec, err := d.Lookup(context.Background(), "GH", "GHA-1")
	require.NoError(t, err)
	assert.Equal(t, "Ama Owusu", rec.FullName)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"records":[{"country":"x","idNumber":"1","fullName":"n","dateOfBirth":"nope"}]}`), 0o600))
	assert.Error(t, d.LoadFile(bad))
}
