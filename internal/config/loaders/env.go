// Package loaders provides environment-based service settings for the
// collector and API processes.
package loaders

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// CollectorSettings holds everything the collector worker needs from its
// environment: broker addresses, topic names, the backend endpoint, and the
// path to the VCS instance definitions.
type CollectorSettings struct {
	KafkaBrokers    []string `mapstructure:"kafka_brokers"`
	ProjectTopic    string   `mapstructure:"project_topic"`
	RepositoryTopic string   `mapstructure:"repository_topic"`
	GroupID         string   `mapstructure:"group_id"`

	BackendHost string `mapstructure:"backend_host"`
	BackendPort int    `mapstructure:"backend_port"`

	VCSInstancesFilePath string `mapstructure:"vcs_instances_file_path"`
}

// APISettings holds the backend web service settings.
type APISettings struct {
	ListenAddr     string `mapstructure:"listen_addr"`
	DatabaseURL    string `mapstructure:"database_url"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

// LoadCollectorSettings reads collector settings from the environment.
// Required values without defaults produce an error when absent.
func LoadCollectorSettings() (*CollectorSettings, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("project_topic", "projects")
	v.SetDefault("repository_topic", "repositories")
	v.SetDefault("group_id", "vcs-collector")
	v.SetDefault("backend_port", 8000)

	for _, key := range []string{
		"kafka_brokers", "project_topic", "repository_topic", "group_id",
		"backend_host", "backend_port", "vcs_instances_file_path",
	} {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("binding env %s: %w", key, err)
		}
	}

	var settings CollectorSettings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("unmarshaling collector settings: %w", err)
	}

	// Viper does not split comma-separated env values for slices.
	if raw := v.GetString("kafka_brokers"); raw != "" {
		settings.KafkaBrokers = strings.Split(raw, ",")
	}

	if len(settings.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must be set")
	}
	if settings.BackendHost == "" {
		return nil, fmt.Errorf("BACKEND_HOST must be set")
	}
	if settings.VCSInstancesFilePath == "" {
		return nil, fmt.Errorf("VCS_INSTANCES_FILE_PATH must be set")
	}

	return &settings, nil
}

// LoadAPISettings reads backend web service settings from the environment.
func LoadAPISettings() (*APISettings, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("listen_addr", ":8000")
	v.SetDefault("migrations_path", "file://db/migrations")

	for _, key := range []string{"listen_addr", "database_url", "migrations_path"} {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("binding env %s: %w", key, err)
		}
	}

	var settings APISettings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("unmarshaling api settings: %w", err)
	}

	if settings.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}

	return &settings, nil
}
