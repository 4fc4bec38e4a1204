package fileloader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanhound/scanhound/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vcs_instances.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadParsesInstances(t *testing.T) {
	path := writeConfig(t, `
vcs_instances:
  bb-main:
    provider_type: BITBUCKET
    scheme: https
    hostname: bitbucket.example.com
    port: 443
    scope: [PROJ, OTHER]
    exceptions: [SANDBOX]
    username: BB_USERNAME
    token: BB_TOKEN
  gh-public:
    name: gh-public
    provider_type: GITHUB_PUBLIC
    scheme: https
    hostname: api.github.com
    organization: acme
`)

	cfg, err := NewFileLoader(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, cfg.VCSInstances, 2)

	bb := cfg.VCSInstances["bb-main"]
	assert.Equal(t, "bb-main", bb.Name, "name defaults to the map key")
	assert.Equal(t, config.ProviderTypeBitbucket, bb.ProviderType)
	assert.Equal(t, "https://bitbucket.example.com:443", bb.BaseURL())
	assert.Equal(t, []string{"PROJ", "OTHER"}, bb.Scope)
	assert.Equal(t, []string{"SANDBOX"}, bb.Exceptions)
	assert.Equal(t, "BB_TOKEN", bb.TokenEnv)

	gh := cfg.VCSInstances["gh-public"]
	assert.Equal(t, "https://api.github.com", gh.BaseURL(), "port is optional")
	assert.Equal(t, "acme", gh.Organization)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewFileLoader("/does/not/exist.yaml").Load(context.Background())
	require.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "vcs_instances: [not a map")
	_, err := NewFileLoader(path).Load(context.Background())
	require.Error(t, err)
}
