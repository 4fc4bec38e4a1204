package memory

import (
	"fmt"
	"os"

	"github.com/scanhound/scanhound/internal/config"
	"github.com/scanhound/scanhound/internal/config/credentials"
)

// CredentialStore resolves per-instance credentials from the environment
// variables named in each instance's configuration. Values are read once at
// construction so a run sees a consistent view.
type CredentialStore struct {
	creds map[string]*credentials.Credentials
}

// NewCredentialStore initializes a store from the configured VCS instances.
// Instances that name a token environment variable which is unset produce an
// error, since collection against them would only fail later with auth errors.
func NewCredentialStore(instances map[string]config.VCSInstance) (*CredentialStore, error) {
	store := &CredentialStore{creds: make(map[string]*credentials.Credentials)}

	for name, inst := range instances {
		c := &credentials.Credentials{}
		if inst.UsernameEnv != "" {
			c.Username = os.Getenv(inst.UsernameEnv)
		}
		if inst.TokenEnv != "" {
			token, ok := os.LookupEnv(inst.TokenEnv)
			if !ok {
				return nil, fmt.Errorf("credentials for vcs instance %s: env var %s not set", name, inst.TokenEnv)
			}
			c.Token = token
		}
		store.creds[name] = c
	}

	return store, nil
}

// GetCredentials looks up credentials by VCS instance name.
// Returns an error if the instance is unknown.
func (s *CredentialStore) GetCredentials(instanceName string) (*credentials.Credentials, error) {
	c, ok := s.creds[instanceName]
	if !ok {
		return nil, fmt.Errorf("no credentials found for vcs instance: %s", instanceName)
	}
	return c, nil
}
