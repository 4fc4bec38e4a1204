package collector

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/scanhound/scanhound/internal/config"
	"github.com/scanhound/scanhound/internal/config/credentials"
	"github.com/scanhound/scanhound/internal/domain/events"
	"github.com/scanhound/scanhound/internal/domain/repository"
	"github.com/scanhound/scanhound/internal/vcs"
	"github.com/scanhound/scanhound/pkg/common/logger"
)

type fnConfigLoader struct {
	loadFn func(ctx context.Context) (*config.Config, error)
}

func (l *fnConfigLoader) Load(ctx context.Context) (*config.Config, error) { return l.loadFn(ctx) }

type fnCredStore struct {
	getFn func(instanceName string) (*credentials.Credentials, error)
}

func (s *fnCredStore) GetCredentials(instanceName string) (*credentials.Credentials, error) {
	return s.getFn(instanceName)
}

func staticConfig() *config.Config {
	return &config.Config{VCSInstances: map[string]config.VCSInstance{
		"bb-main": {
			Name:         "bb-main",
			ProviderType: config.ProviderTypeBitbucket,
			Scheme:       "https",
			Hostname:     "bitbucket.example.com",
			Port:         443,
		},
	}}
}

type serviceHarness struct {
	svc       *Service
	conn      *mockConnector
	published *[]events.EventEnvelope
	reported  *[]repository.ActiveRepositories
	reportErr error
}

func newServiceHarness(t *testing.T, loader config.Loader) *serviceHarness {
	t.Helper()

	conn := new(mockConnector)
	published := new([]events.EventEnvelope)
	reported := new([]repository.ActiveRepositories)

	h := &serviceHarness{conn: conn, published: published, reported: reported}

	pub := &fnPublisher{publishFn: func(ctx context.Context, evt events.EventEnvelope, opts ...events.PublishOption) error {
		*published = append(*published, evt)
		return nil
	}}
	be := &fnBackend{reportFn: func(ctx context.Context, active repository.ActiveRepositories) error {
		*reported = append(*reported, active)
		return h.reportErr
	}}

	newConnector := func(
		inst config.VCSInstance,
		creds *credentials.Credentials,
		httpClient *http.Client,
		log *logger.Logger,
		tracer trace.Tracer,
	) (vcs.Connector, error) {
		return conn, nil
	}

	dispatcher := NewDispatcher(pub, testLogger(), testTracer, noopMetrics{})
	reporter := NewReporter(be, testLogger(), testTracer, noopMetrics{})

	h.svc = NewService(
		loader,
		&fnCredStore{getFn: func(string) (*credentials.Credentials, error) {
			return &credentials.Credentials{Username: "svc", Token: "tok"}, nil
		}},
		newConnector,
		http.DefaultClient,
		dispatcher,
		reporter,
		testLogger(),
		testTracer,
		noopMetrics{},
	)
	return h
}

func TestCollectRepositoriesHappyPath(t *testing.T) {
	loader := &fnConfigLoader{loadFn: func(context.Context) (*config.Config, error) {
		return staticConfig(), nil
	}}
	h := newServiceHarness(t, loader)

	repoA := vcs.RawRepository{ProjectKey: "PROJ", ID: "repo-a", Name: "repo-a"}
	repoB := vcs.RawRepository{ProjectKey: "PROJ", ID: "repo-b", Name: "repo-b"}

	h.conn.On("ListRepositories", mock.Anything, "PROJ").
		Return([]vcs.RawRepository{repoA, repoB}, nil)
	h.conn.On("LatestCommit", mock.Anything, "PROJ", "repo-a").Return("abc", true, nil)
	h.conn.On("LatestCommit", mock.Anything, "PROJ", "repo-b").Return("", false, nil)
	h.conn.On("ExportRepository", repoA, "abc", "bb-main").Return(exported(repoA, "abc", "bb-main"))

	err := h.svc.CollectRepositories(context.Background(), repository.CollectionTask{
		ProjectKey:      "PROJ",
		VCSInstanceName: "bb-main",
	})

	require.NoError(t, err)
	require.Len(t, *h.published, 1, "only the repository with commits is dispatched")
	assert.Equal(t, repository.EventTypeScanTaskCreated, (*h.published)[0].Type)

	require.Len(t, *h.reported, 1)
	assert.Len(t, (*h.reported)[0].Repositories, 2, "the active report covers the full listing")
}

func TestCollectRepositoriesUnknownInstance(t *testing.T) {
	loader := &fnConfigLoader{loadFn: func(context.Context) (*config.Config, error) {
		return staticConfig(), nil
	}}
	h := newServiceHarness(t, loader)

	err := h.svc.CollectRepositories(context.Background(), repository.CollectionTask{
		ProjectKey:      "PROJ",
		VCSInstanceName: "nope",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrUnknownInstance)
	assert.Empty(t, *h.published)
	assert.Empty(t, *h.reported, "no report when the run never reached extraction")
}

func TestCollectRepositoriesConfigLoadFailure(t *testing.T) {
	loader := &fnConfigLoader{loadFn: func(context.Context) (*config.Config, error) {
		return nil, errors.New("read error")
	}}
	h := newServiceHarness(t, loader)

	err := h.svc.CollectRepositories(context.Background(), repository.CollectionTask{
		ProjectKey:      "PROJ",
		VCSInstanceName: "bb-main",
	})

	require.Error(t, err)
	assert.Empty(t, *h.published)
}

func TestCollectRepositoriesListingFailureSkipsReport(t *testing.T) {
	loader := &fnConfigLoader{loadFn: func(context.Context) (*config.Config, error) {
		return staticConfig(), nil
	}}
	h := newServiceHarness(t, loader)

	h.conn.On("ListRepositories", mock.Anything, "PROJ").
		Return(nil, errors.New("listing failed"))

	err := h.svc.CollectRepositories(context.Background(), repository.CollectionTask{
		ProjectKey:      "PROJ",
		VCSInstanceName: "bb-main",
	})

	require.Error(t, err)
	assert.Empty(t, *h.published)
	assert.Empty(t, *h.reported)
}

func TestCollectRepositoriesReportsWhenBackendFails(t *testing.T) {
	loader := &fnConfigLoader{loadFn: func(context.Context) (*config.Config, error) {
		return staticConfig(), nil
	}}
	h := newServiceHarness(t, loader)
	h.reportErr = errors.New("backend down")

	repoA := vcs.RawRepository{ProjectKey: "PROJ", ID: "repo-a", Name: "repo-a"}
	h.conn.On("ListRepositories", mock.Anything, "PROJ").
		Return([]vcs.RawRepository{repoA}, nil)
	h.conn.On("LatestCommit", mock.Anything, "PROJ", "repo-a").Return("abc", true, nil)
	h.conn.On("ExportRepository", repoA, "abc", "bb-main").Return(exported(repoA, "abc", "bb-main"))

	err := h.svc.CollectRepositories(context.Background(), repository.CollectionTask{
		ProjectKey:      "PROJ",
		VCSInstanceName: "bb-main",
	})

	require.NoError(t, err, "a failed report never fails a dispatched run")
	assert.Len(t, *h.published, 1)
}

func TestHandleEventAcksAndRuns(t *testing.T) {
	loader := &fnConfigLoader{loadFn: func(context.Context) (*config.Config, error) {
		return staticConfig(), nil
	}}
	h := newServiceHarness(t, loader)

	h.conn.On("ListRepositories", mock.Anything, "PROJ").Return([]vcs.RawRepository{}, nil)

	acked := false
	evt := events.EventEnvelope{
		Type:      repository.EventTypeCollectionRequested,
		Timestamp: time.Now(),
		Payload:   repository.CollectionTask{ProjectKey: "PROJ", VCSInstanceName: "bb-main"},
	}
	err := h.svc.HandleEvent(context.Background(), evt, func(error) { acked = true })

	require.NoError(t, err)
	assert.True(t, acked)
}

func TestHandleEventRejectsWrongPayload(t *testing.T) {
	loader := &fnConfigLoader{loadFn: func(context.Context) (*config.Config, error) {
		return staticConfig(), nil
	}}
	h := newServiceHarness(t, loader)

	acked := false
	evt := events.EventEnvelope{
		Type:    repository.EventTypeCollectionRequested,
		Payload: "not a task",
	}
	err := h.svc.HandleEvent(context.Background(), evt, func(error) { acked = true })

	require.Error(t, err)
	assert.True(t, acked, "malformed events are acked so they are not redelivered")
}

func TestSupportedEvents(t *testing.T) {
	loader := &fnConfigLoader{loadFn: func(context.Context) (*config.Config, error) {
		return staticConfig(), nil
	}}
	h := newServiceHarness(t, loader)

	assert.Equal(t, []events.EventType{repository.EventTypeCollectionRequested}, h.svc.SupportedEvents())
}
