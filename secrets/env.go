package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// envPrefix namespaces the backend's secret variables.
const envPrefix = "SUIRIFY_"

// EnvSource reads secrets from environment variables. Development and test
// deployments only; production uses Vault.
type EnvSource struct{}

// NewEnvSource creates an environment-backed secret source.
func NewEnvSource() *EnvSource {
	return &EnvSource{}
}

// Secret reads the variable derived from the secret name, e.g.
// "gov-id-pepper" becomes SUIRIFY_GOV_ID_PEPPER.
func (s *EnvSource) Secret(ctx context.Context, name string) ([]byte, error) {
	key := envPrefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	value := os.Getenv(key)
	if value == "" {
		return nil, fmt.Errorf("secret %s not set (environment variable %s)", name, key)
	}
	return []byte(value), nil
}

var _ Source = (*EnvSource)(nil)
