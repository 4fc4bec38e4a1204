package loaders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCollectorSettings(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("BACKEND_HOST", "backend")
	t.Setenv("VCS_INSTANCES_FILE_PATH", "/etc/scanhound/vcs_instances.yaml")

	settings, err := LoadCollectorSettings()
	require.NoError(t, err)

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, settings.KafkaBrokers)
	assert.Equal(t, "projects", settings.ProjectTopic, "default topic")
	assert.Equal(t, "repositories", settings.RepositoryTopic, "default topic")
	assert.Equal(t, "vcs-collector", settings.GroupID)
	assert.Equal(t, "backend", settings.BackendHost)
	assert.Equal(t, 8000, settings.BackendPort)
}

func TestLoadCollectorSettingsMissingBrokers(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("BACKEND_HOST", "backend")
	t.Setenv("VCS_INSTANCES_FILE_PATH", "/etc/scanhound/vcs_instances.yaml")

	_, err := LoadCollectorSettings()
	require.Error(t, err)
}

func TestLoadAPISettings(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://user:pass@db:5432/scanhound")

	settings, err := LoadAPISettings()
	require.NoError(t, err)

	assert.Equal(t, ":8000", settings.ListenAddr)
	assert.Equal(t, "file://db/migrations", settings.MigrationsPath)
	assert.Equal(t, "postgres://user:pass@db:5432/scanhound", settings.DatabaseURL)
}

func TestLoadAPISettingsMissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := LoadAPISettings()
	require.Error(t, err)
}
