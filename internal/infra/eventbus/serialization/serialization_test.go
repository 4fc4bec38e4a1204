package serialization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanhound/scanhound/internal/domain/repository"
)

func TestCollectionTaskRoundTrip(t *testing.T) {
	task := repository.CollectionTask{
		ProjectKey:      "PROJ",
		VCSInstanceName: "bb-main",
	}

	data, err := SerializeEventEnvelope(repository.EventTypeCollectionRequested, task)
	require.NoError(t, err)

	evtType, payloadBytes, err := UnmarshalUniversalEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, repository.EventTypeCollectionRequested, evtType)

	decoded, err := DeserializePayload(evtType, payloadBytes)
	require.NoError(t, err)
	assert.Equal(t, task, decoded)
}

func TestScanTaskRoundTrip(t *testing.T) {
	scanTask := repository.Repository{
		ProjectKey:      "PROJ",
		RepositoryID:    "repo-a",
		RepositoryName:  "repo-a",
		RepositoryURL:   "https://bitbucket.example.com/scm/proj/repo-a.git",
		VCSInstanceName: "bb-main",
		LatestCommit:    "0a1b2c3d",
		Branches:        []string{"main"},
	}

	data, err := SerializeEventEnvelope(repository.EventTypeScanTaskCreated, scanTask)
	require.NoError(t, err)

	evtType, payloadBytes, err := UnmarshalUniversalEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, repository.EventTypeScanTaskCreated, evtType)

	decoded, err := DeserializePayload(evtType, payloadBytes)
	require.NoError(t, err)
	assert.Equal(t, scanTask, decoded)
}

func TestSerializeUnknownEventType(t *testing.T) {
	_, err := SerializeEventEnvelope("Bogus", struct{}{})
	require.Error(t, err)
}

func TestSerializeWrongPayloadType(t *testing.T) {
	_, err := SerializeEventEnvelope(repository.EventTypeScanTaskCreated, "not a repository")
	require.Error(t, err)
}

func TestUnmarshalMalformedEnvelope(t *testing.T) {
	_, _, err := UnmarshalUniversalEnvelope([]byte("{"))
	require.Error(t, err)
}
