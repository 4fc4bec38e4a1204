package config

import "fmt"

// ProviderType enumerates the supported VCS provider types.
type ProviderType string

const (
	ProviderTypeBitbucket   ProviderType = "BITBUCKET"
	ProviderTypeAzureDevOps ProviderType = "AZURE_DEVOPS"
	ProviderTypeGitHub      ProviderType = "GITHUB_PUBLIC"
)

// VCSInstance describes a configured connection to a specific version-control
// server. Instances are keyed by name and immutable for the duration of a
// collection run.
type VCSInstance struct {
	Name         string       `yaml:"name"`
	ProviderType ProviderType `yaml:"provider_type"`
	Scheme       string       `yaml:"scheme"`
	Hostname     string       `yaml:"hostname"`
	Port         int          `yaml:"port"`
	Organization string       `yaml:"organization,omitempty"`

	// Scope restricts collection to the listed project keys. Empty means all
	// projects visible to the instance's credentials.
	Scope []string `yaml:"scope,omitempty"`

	// Exceptions lists project keys that are never collected, even when they
	// fall inside Scope.
	Exceptions []string `yaml:"exceptions,omitempty"`

	// UsernameEnv and TokenEnv name the environment variables holding the
	// instance's credentials. The values themselves never appear in the file.
	UsernameEnv string `yaml:"username,omitempty"`
	TokenEnv    string `yaml:"token,omitempty"`
}

// BaseURL returns the root URL for the instance's API endpoints.
func (v VCSInstance) BaseURL() string {
	if v.Port == 0 {
		return fmt.Sprintf("%s://%s", v.Scheme, v.Hostname)
	}
	return fmt.Sprintf("%s://%s:%d", v.Scheme, v.Hostname, v.Port)
}

// Config represents the top-level VCS instances configuration.
type Config struct {
	VCSInstances map[string]VCSInstance `yaml:"vcs_instances"`
}
