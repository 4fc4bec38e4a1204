package collector

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/scanhound/scanhound/internal/domain/repository"
	"github.com/scanhound/scanhound/internal/vcs"
	"github.com/scanhound/scanhound/pkg/common/logger"
)

// noopMetrics satisfies Metrics for tests that do not assert on metrics.
type noopMetrics struct{}

func (noopMetrics) IncCollectionRunsStarted(context.Context, string)           {}
func (noopMetrics) IncCollectionRunsCompleted(context.Context, string)         {}
func (noopMetrics) IncCollectionRunsFailed(context.Context, string)            {}
func (noopMetrics) ObserveRepositoriesDiscovered(context.Context, string, int) {}
func (noopMetrics) IncScanTasksDispatched(context.Context, string)             {}
func (noopMetrics) IncDispatchErrors(context.Context, string)                  {}
func (noopMetrics) IncActiveReportFailures(context.Context, string)            {}

type mockConnector struct{ mock.Mock }

func (m *mockConnector) ListRepositories(ctx context.Context, projectKey string) ([]vcs.RawRepository, error) {
	args := m.Called(ctx, projectKey)
	if v := args.Get(0); v != nil {
		return v.([]vcs.RawRepository), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockConnector) LatestCommit(ctx context.Context, projectKey, repositoryID string) (string, bool, error) {
	args := m.Called(ctx, projectKey, repositoryID)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockConnector) ExportRepository(raw vcs.RawRepository, latestCommit, vcsInstanceName string) repository.Repository {
	args := m.Called(raw, latestCommit, vcsInstanceName)
	return args.Get(0).(repository.Repository)
}

func testLogger() *logger.Logger { return logger.Noop() }

var testTracer = noop.NewTracerProvider().Tracer("test")

func exported(raw vcs.RawRepository, commit, instance string) repository.Repository {
	return repository.Repository{
		ProjectKey:      raw.ProjectKey,
		RepositoryID:    raw.ID,
		RepositoryName:  raw.Name,
		RepositoryURL:   raw.URL,
		VCSInstanceName: instance,
		LatestCommit:    commit,
		Branches:        []string{raw.DefaultBranch},
	}
}

func TestExtractListingFailureAborts(t *testing.T) {
	conn := new(mockConnector)
	conn.On("ListRepositories", mock.Anything, "PROJ").
		Return(nil, fmt.Errorf("%w: status 503", repository.ErrUpstreamUnavailable))

	e := NewExtractor(conn, testLogger(), testTracer)
	tasks, raws, err := e.Extract(context.Background(), "PROJ", "bb-main")

	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrUpstreamUnavailable)
	assert.Nil(t, tasks)
	assert.Nil(t, raws)
	conn.AssertNotCalled(t, "LatestCommit", mock.Anything, mock.Anything, mock.Anything)
}

func TestExtractSkipsEmptyRepositories(t *testing.T) {
	repoA := vcs.RawRepository{ProjectKey: "PROJ", ID: "repo-a", Name: "repo-a", URL: "https://vcs/repo-a.git"}
	repoB := vcs.RawRepository{ProjectKey: "PROJ", ID: "repo-b", Name: "repo-b", URL: "https://vcs/repo-b.git"}
	repoC := vcs.RawRepository{ProjectKey: "PROJ", ID: "repo-c", Name: "repo-c", URL: "https://vcs/repo-c.git"}

	conn := new(mockConnector)
	conn.On("ListRepositories", mock.Anything, "PROJ").
		Return([]vcs.RawRepository{repoA, repoB, repoC}, nil)
	conn.On("LatestCommit", mock.Anything, "PROJ", "repo-a").Return("abc", true, nil)
	conn.On("LatestCommit", mock.Anything, "PROJ", "repo-b").Return("", false, nil)
	conn.On("LatestCommit", mock.Anything, "PROJ", "repo-c").Return("def", true, nil)
	conn.On("ExportRepository", repoA, "abc", "bb-main").Return(exported(repoA, "abc", "bb-main"))
	conn.On("ExportRepository", repoC, "def", "bb-main").Return(exported(repoC, "def", "bb-main"))

	e := NewExtractor(conn, testLogger(), testTracer)
	tasks, raws, err := e.Extract(context.Background(), "PROJ", "bb-main")

	require.NoError(t, err)
	assert.Len(t, raws, 3, "the raw listing keeps commitless repositories")
	require.Len(t, tasks, 2)
	assert.Equal(t, "repo-a", tasks[0].RepositoryID)
	assert.Equal(t, "abc", tasks[0].LatestCommit)
	assert.Equal(t, "repo-c", tasks[1].RepositoryID)
	assert.Equal(t, "def", tasks[1].LatestCommit)
}

func TestExtractIsolatesCommitLookupFailures(t *testing.T) {
	repoA := vcs.RawRepository{ProjectKey: "PROJ", ID: "repo-a", Name: "repo-a"}
	repoB := vcs.RawRepository{ProjectKey: "PROJ", ID: "repo-b", Name: "repo-b"}
	repoC := vcs.RawRepository{ProjectKey: "PROJ", ID: "repo-c", Name: "repo-c"}

	conn := new(mockConnector)
	conn.On("ListRepositories", mock.Anything, "PROJ").
		Return([]vcs.RawRepository{repoA, repoB, repoC}, nil)
	conn.On("LatestCommit", mock.Anything, "PROJ", "repo-a").Return("abc", true, nil)
	conn.On("LatestCommit", mock.Anything, "PROJ", "repo-b").
		Return("", false, errors.New("commit lookup: status 500"))
	conn.On("LatestCommit", mock.Anything, "PROJ", "repo-c").Return("def", true, nil)
	conn.On("ExportRepository", repoA, "abc", "bb-main").Return(exported(repoA, "abc", "bb-main"))
	conn.On("ExportRepository", repoC, "def", "bb-main").Return(exported(repoC, "def", "bb-main"))

	e := NewExtractor(conn, testLogger(), testTracer)
	tasks, raws, err := e.Extract(context.Background(), "PROJ", "bb-main")

	require.NoError(t, err, "a per-repository failure never fails the run")
	assert.Len(t, raws, 3)
	require.Len(t, tasks, 2)
	assert.Equal(t, "repo-a", tasks[0].RepositoryID)
	assert.Equal(t, "repo-c", tasks[1].RepositoryID)
}

func TestExtractEmptyProject(t *testing.T) {
	conn := new(mockConnector)
	conn.On("ListRepositories", mock.Anything, "PROJ").Return([]vcs.RawRepository{}, nil)

	e := NewExtractor(conn, testLogger(), testTracer)
	tasks, raws, err := e.Extract(context.Background(), "PROJ", "bb-main")

	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Empty(t, raws)
}
