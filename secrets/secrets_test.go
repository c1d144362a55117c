package secrets

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvSource(t *testing.T) {
	t.Setenv("SUIRIFY_GOV_ID_PEPPER", "super-secret-pepper-value")

	src := NewEnvSource()
	value, err := src.Secret(context.Background(), GovIDPepper)
	require.NoError(t, err)
	assert.Equal(t, "super-secret-pepper-value", string(value))

	_, err = src.Secret(context.Background(), SponsorSeed)
	assert.Error(t, err)
}

func TestSeed32(t *testing.T) {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i)
	}
	t.Setenv("SUIRIFY_ENCLAVE_SEED", hex.EncodeToString(seed))
	t.Setenv("SUIRIFY_SPONSOR_SEED", "deadbeef")
	t.Setenv("SUIRIFY_ADMIN_API_KEY", "zz-not-hex")

	src := NewEnvSource()

	decoded, err := Seed32(context.Background(), src, EnclaveSeed)
	require.NoError(t, err)
	assert.Equal(t, seed, decoded)

	_, err = Seed32(context.Background(), src, SponsorSeed)
	assert.Error(t, err, "wrong length")

	_, err = Seed32(context.Background(), src, AdminAPIKey)
	assert.Error(t, err, "not hex")
}
