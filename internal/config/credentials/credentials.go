// Package credentials provides access to VCS instance authentication material.
package credentials

// Credentials holds the authentication material for one VCS instance.
// The token may be empty for instances that allow anonymous access.
type Credentials struct {
	Username string
	Token    string
}

// Store provides centralized access to per-instance credentials.
type Store interface {
	// GetCredentials looks up credentials by VCS instance name.
	GetCredentials(instanceName string) (*Credentials, error)
}
