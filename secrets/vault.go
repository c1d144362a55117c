package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
)

// VaultSource reads secrets from a HashiCorp Vault KV v2 mount. All backend
// secrets live under a single KV entry, one field per secret name.
type VaultSource struct {
	client    *api.Client
	mountPath string
	dataPath  string
	log       *slog.Logger
}

// NewVaultSource creates a Vault-backed secret source.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - token: Vault token with read access to the secret path
//   - mountPath: KV v2 mount (e.g. "secret")
//   - dataPath: entry within the mount (e.g. "suirify/backend")
func NewVaultSource(address, token, mountPath, dataPath string, log *slog.Logger) (*VaultSource, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.Timeout = 30 * time.Second

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	client.SetToken(token)

	return &VaultSource{
		client:    client,
		mountPath: strings.TrimSuffix(mountPath, "/"),
		dataPath:  strings.Trim(dataPath, "/"),
		log:       log,
	}, nil
}

// Secret reads one field from the backend's KV entry.
func (s *VaultSource) Secret(ctx context.Context, name string) ([]byte, error) {
	// KV v2 read path structure.
	path := fmt.Sprintf("%s/data/%s", s.mountPath, s.dataPath)

	secret, err := s.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		s.log.Error("Failed to read from Vault", slog.String("path", path), "err", err)
		return nil, fmt.Errorf("vault read failed: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("vault entry %s not found", path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("vault entry %s has no KV v2 data", path)
	}
	value, ok := data[name].(string)
	if !ok || value == "" {
		return nil, fmt.Errorf("secret %s not present in vault entry %s", name, path)
	}
	return []byte(value), nil
}

var _ Source = (*VaultSource)(nil)
