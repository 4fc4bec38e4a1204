package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanhound/scanhound/internal/config"
)

func TestCredentialStoreReadsEnv(t *testing.T) {
	t.Setenv("TEST_BB_USERNAME", "svc-account")
	t.Setenv("TEST_BB_TOKEN", "s3cret")

	store, err := NewCredentialStore(map[string]config.VCSInstance{
		"bb-main": {Name: "bb-main", UsernameEnv: "TEST_BB_USERNAME", TokenEnv: "TEST_BB_TOKEN"},
	})
	require.NoError(t, err)

	creds, err := store.GetCredentials("bb-main")
	require.NoError(t, err)
	assert.Equal(t, "svc-account", creds.Username)
	assert.Equal(t, "s3cret", creds.Token)
}

func TestCredentialStoreMissingTokenEnv(t *testing.T) {
	_, err := NewCredentialStore(map[string]config.VCSInstance{
		"bb-main": {Name: "bb-main", TokenEnv: "TEST_BB_TOKEN_UNSET"},
	})
	require.Error(t, err)
}

func TestCredentialStoreAnonymousInstance(t *testing.T) {
	store, err := NewCredentialStore(map[string]config.VCSInstance{
		"gh-public": {Name: "gh-public"},
	})
	require.NoError(t, err)

	creds, err := store.GetCredentials("gh-public")
	require.NoError(t, err)
	assert.Empty(t, creds.Token)
}

func TestCredentialStoreUnknownInstance(t *testing.T) {
	store, err := NewCredentialStore(nil)
	require.NoError(t, err)

	_, err = store.GetCredentials("nope")
	require.Error(t, err)
}
