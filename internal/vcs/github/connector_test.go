package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/scanhound/scanhound/internal/config/credentials"
	"github.com/scanhound/scanhound/internal/domain/repository"
	"github.com/scanhound/scanhound/internal/vcs"
	"github.com/scanhound/scanhound/pkg/common/logger"
)

var testTracer = noop.NewTracerProvider().Tracer("test")

func vcsRaw(org, name, cloneURL, defaultBranch string) vcs.RawRepository {
	return vcs.RawRepository{
		ProjectKey:    org,
		ID:            name,
		Name:          name,
		URL:           cloneURL,
		DefaultBranch: defaultBranch,
	}
}

func newTestConnector(t *testing.T, handler http.Handler) *Connector {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &Connector{
		instanceName: "gh-public",
		api: NewClient(srv.URL,
			&credentials.Credentials{Token: "tok"},
			srv.Client(), testTracer),
		logger: logger.Noop(),
		tracer: testTracer,
	}
}

func TestListRepositoriesStopsAtShortPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/orgs/acme/repos", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "1":
			// A full page keeps the pagination going.
			var entries []string
			for i := 0; i < 100; i++ {
				entries = append(entries, fmt.Sprintf(
					`{"id": %d, "name": "repo-%03d", "clone_url": "https://github.com/acme/repo-%03d.git", "default_branch": "main"}`,
					i, i, i))
			}
			fmt.Fprintf(w, "[%s]", strings.Join(entries, ","))
		case "2":
			fmt.Fprint(w, `[{"id": 100, "name": "repo-100", "clone_url": "https://github.com/acme/repo-100.git", "default_branch": "main"}]`)
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	})

	conn := newTestConnector(t, mux)
	raws, err := conn.ListRepositories(context.Background(), "acme")

	require.NoError(t, err)
	require.Len(t, raws, 101)
	assert.Equal(t, "repo-000", raws[0].ID, "the name addresses the repository")
	assert.Equal(t, "main", raws[0].DefaultBranch)
	assert.Equal(t, "acme", raws[0].ProjectKey)
}

func TestLatestCommit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/repo-a/commits", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("per_page"))
		fmt.Fprint(w, `[{"sha": "0a1b2c3d"}]`)
	})

	conn := newTestConnector(t, mux)
	commit, ok, err := conn.LatestCommit(context.Background(), "acme", "repo-a")

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "0a1b2c3d", commit)
}

func TestLatestCommitEmptyRepositoryConflict(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/repo-a/commits", func(w http.ResponseWriter, r *http.Request) {
		// GitHub answers 409 Conflict for repositories with no commits.
		w.WriteHeader(http.StatusConflict)
	})

	conn := newTestConnector(t, mux)
	commit, ok, err := conn.LatestCommit(context.Background(), "acme", "repo-a")

	require.NoError(t, err, "an empty repository is not an error")
	assert.False(t, ok)
	assert.Empty(t, commit)
}

func TestLatestCommitUpstreamError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/repo-a/commits", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	conn := newTestConnector(t, mux)
	_, _, err := conn.LatestCommit(context.Background(), "acme", "repo-a")

	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrUpstreamUnavailable)
}

func TestExportRepositoryCarriesDefaultBranch(t *testing.T) {
	conn := &Connector{instanceName: "gh-public", logger: logger.Noop(), tracer: testTracer}

	got := conn.ExportRepository(
		vcsRaw("acme", "repo-a", "https://github.com/acme/repo-a.git", "main"),
		"0a1b2c3d", "gh-public",
	)

	assert.Equal(t, []string{"main"}, got.Branches)
	assert.Equal(t, "gh-public", got.VCSInstanceName)
	assert.Equal(t, "0a1b2c3d", got.LatestCommit)
}
