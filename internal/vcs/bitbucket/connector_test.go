package bitbucket

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/scanhound/scanhound/internal/config"
	"github.com/scanhound/scanhound/internal/config/credentials"
	"github.com/scanhound/scanhound/internal/domain/repository"
	"github.com/scanhound/scanhound/internal/vcs"
	"github.com/scanhound/scanhound/pkg/common/logger"
)

var testTracer = noop.NewTracerProvider().Tracer("test")

func newRaw(projectKey, id, name, url string) vcs.RawRepository {
	return vcs.RawRepository{ProjectKey: projectKey, ID: id, Name: name, URL: url}
}

func newTestConnector(t *testing.T, handler http.Handler) (*Connector, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	conn := &Connector{
		instanceName: "bb-main",
		api: NewClient(srv.URL,
			&credentials.Credentials{Username: "svc", Token: "tok"},
			srv.Client(), testTracer),
		logger: logger.Noop(),
		tracer: testTracer,
	}
	return conn, srv
}

func TestListRepositoriesFollowsPagination(t *testing.T) {
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/1.0/projects/PROJ/repos", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		switch r.URL.Query().Get("start") {
		case "0":
			fmt.Fprint(w, `{
				"values": [
					{"id": 1, "slug": "repo-a", "name": "Repo A", "links": {"clone": [
						{"href": "ssh://git@host/proj/repo-a.git", "name": "ssh"},
						{"href": "https://host/scm/proj/repo-a.git", "name": "http"}
					]}}
				],
				"isLastPage": false,
				"nextPageStart": 1
			}`)
		case "1":
			fmt.Fprint(w, `{
				"values": [
					{"id": 2, "slug": "repo-b", "name": "Repo B", "links": {"clone": [
						{"href": "https://host/scm/proj/repo-b.git", "name": "http"}
					]}}
				],
				"isLastPage": true
			}`)
		default:
			t.Errorf("unexpected start param %q", r.URL.Query().Get("start"))
		}
	})

	conn, _ := newTestConnector(t, mux)
	raws, err := conn.ListRepositories(context.Background(), "PROJ")

	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", gotAuth)
	require.Len(t, raws, 2)
	assert.Equal(t, "repo-a", raws[0].ID, "the slug addresses the repository")
	assert.Equal(t, "Repo A", raws[0].Name)
	assert.Equal(t, "https://host/scm/proj/repo-a.git", raws[0].URL, "http clone link wins over ssh")
	assert.Equal(t, "PROJ", raws[0].ProjectKey)
	assert.Equal(t, "repo-b", raws[1].ID)
}

func TestListRepositoriesUpstreamError(t *testing.T) {
	conn, _ := newTestConnector(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := conn.ListRepositories(context.Background(), "PROJ")
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrUpstreamUnavailable)
}

func TestLatestCommit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/1.0/projects/PROJ/repos/repo-a/commits", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		fmt.Fprint(w, `{"values": [{"id": "0a1b2c3d"}]}`)
	})

	conn, _ := newTestConnector(t, mux)
	commit, ok, err := conn.LatestCommit(context.Background(), "PROJ", "repo-a")

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "0a1b2c3d", commit)
}

func TestLatestCommitEmptyRepository(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/1.0/projects/PROJ/repos/repo-a/commits", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"values": []}`)
	})

	conn, _ := newTestConnector(t, mux)
	commit, ok, err := conn.LatestCommit(context.Background(), "PROJ", "repo-a")

	require.NoError(t, err, "an empty repository is not an error")
	assert.False(t, ok)
	assert.Empty(t, commit)
}

func TestExportRepository(t *testing.T) {
	conn := &Connector{instanceName: "bb-main", logger: logger.Noop(), tracer: testTracer}

	got := conn.ExportRepository(
		newRaw("PROJ", "repo-a", "Repo A", "https://host/scm/proj/repo-a.git"),
		"0a1b2c3d", "bb-main",
	)

	assert.Equal(t, repository.Repository{
		ProjectKey:      "PROJ",
		RepositoryID:    "repo-a",
		RepositoryName:  "Repo A",
		RepositoryURL:   "https://host/scm/proj/repo-a.git",
		VCSInstanceName: "bb-main",
		LatestCommit:    "0a1b2c3d",
	}, got)
}

func TestNewConnectorBuildsBaseURL(t *testing.T) {
	inst := config.VCSInstance{
		Name:         "bb-main",
		ProviderType: config.ProviderTypeBitbucket,
		Scheme:       "https",
		Hostname:     "bitbucket.example.com",
		Port:         443,
	}
	conn := NewConnector(inst, nil, http.DefaultClient, logger.Noop(), testTracer)
	require.NotNil(t, conn)

	client, ok := conn.api.(*Client)
	require.True(t, ok)
	assert.Equal(t, "https://bitbucket.example.com:443", client.baseURL)
}
