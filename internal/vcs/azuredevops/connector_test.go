package azuredevops

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/scanhound/scanhound/internal/config/credentials"
	"github.com/scanhound/scanhound/internal/domain/repository"
	"github.com/scanhound/scanhound/pkg/common/logger"
)

var testTracer = noop.NewTracerProvider().Tracer("test")

func newTestConnector(t *testing.T, handler http.Handler) *Connector {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &Connector{
		instanceName: "ado-main",
		api: NewClient(srv.URL, "acme-org",
			&credentials.Credentials{Token: "pat"},
			srv.Client(), testTracer),
		logger: logger.Noop(),
		tracer: testTracer,
	}
}

func TestListRepositoriesNormalizesRecords(t *testing.T) {
	var gotUser, gotPass string
	mux := http.NewServeMux()
	mux.HandleFunc("/acme-org/PROJ/_apis/git/repositories", func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		assert.Equal(t, "6.0", r.URL.Query().Get("api-version"))
		fmt.Fprint(w, `{
			"count": 2,
			"value": [
				{"id": "c4d1", "name": "repo-a", "remoteUrl": "https://dev.azure.com/acme-org/PROJ/_git/repo-a", "defaultBranch": "refs/heads/main"},
				{"id": "e5f2", "name": "repo-b", "remoteUrl": "https://dev.azure.com/acme-org/PROJ/_git/repo-b", "defaultBranch": ""}
			]
		}`)
	})

	conn := newTestConnector(t, mux)
	raws, err := conn.ListRepositories(context.Background(), "PROJ")

	require.NoError(t, err)
	assert.Empty(t, gotUser, "PATs go over basic auth with an empty username")
	assert.Equal(t, "pat", gotPass)
	require.Len(t, raws, 2)
	assert.Equal(t, "c4d1", raws[0].ID, "the repository uuid addresses the repository")
	assert.Equal(t, "main", raws[0].DefaultBranch, "refs/heads/ prefix is stripped")
	assert.Empty(t, raws[1].DefaultBranch)
}

func TestLatestCommit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/acme-org/PROJ/_apis/git/repositories/c4d1/commits", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("searchCriteria.$top"))
		fmt.Fprint(w, `{"count": 1, "value": [{"commitId": "0a1b2c3d"}]}`)
	})

	conn := newTestConnector(t, mux)
	commit, ok, err := conn.LatestCommit(context.Background(), "PROJ", "c4d1")

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "0a1b2c3d", commit)
}

func TestLatestCommitEmptyRepository(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/acme-org/PROJ/_apis/git/repositories/c4d1/commits", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"count": 0, "value": []}`)
	})

	conn := newTestConnector(t, mux)
	commit, ok, err := conn.LatestCommit(context.Background(), "PROJ", "c4d1")

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, commit)
}

func TestLatestCommitUpstreamError(t *testing.T) {
	conn := newTestConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, _, err := conn.LatestCommit(context.Background(), "PROJ", "c4d1")
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrUpstreamUnavailable)
}

func TestShortBranchName(t *testing.T) {
	assert.Equal(t, "main", shortBranchName("refs/heads/main"))
	assert.Equal(t, "develop", shortBranchName("develop"))
	assert.Empty(t, shortBranchName(""))
}
