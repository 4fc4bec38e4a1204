package fileloader

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/scanhound/scanhound/internal/config"
)

// FileLoader loads VCS instance definitions from a file on disk. It implements
// the Loader interface to provide file-based configuration management.
type FileLoader struct {
	// path is the filesystem path to the configuration file.
	path string
}

// NewFileLoader creates a new FileLoader that will load configuration from the
// specified file path.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path}
}

// Load reads and parses the configuration file specified in FileLoader.path.
// Instance entries keyed without an explicit name inherit the map key.
// It returns the parsed configuration or an error if reading or parsing fails.
func (l *FileLoader) Load(ctx context.Context) (*config.Config, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	for key, inst := range cfg.VCSInstances {
		if inst.Name == "" {
			inst.Name = key
			cfg.VCSInstances[key] = inst
		}
	}

	return &cfg, nil
}
