package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nmcp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
namespace: prod
gateway:
  host: 127.0.0.1
  port: 9090
activation:
  timeout: 45s
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.Namespace)
	assert.Equal(t, "127.0.0.1", cfg.Gateway.Host)
	assert.Equal(t, 9090, cfg.Gateway.Port)
	assert.Equal(t, 45*time.Second, cfg.Activation.Timeout)
	// Untouched defaults survive the partial override.
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("NMCP_TEST_NAMESPACE", "from-env")
	path := filepath.Join(t.TempDir(), "nmcp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("namespace: ${NMCP_TEST_NAMESPACE}\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Namespace)
}

func TestLoadLeavesUnexpandedVarWhenUnset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nmcp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("namespace: ${NMCP_TEST_UNSET_VAR}\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "${NMCP_TEST_UNSET_VAR}", cfg.Namespace)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nmcp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("namespace: [unterminated\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
