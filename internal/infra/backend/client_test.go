package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/scanhound/scanhound/internal/domain/repository"
)

var testTracer = noop.NewTracerProvider().Tracer("test")

func activeSet() repository.ActiveRepositories {
	return repository.ActiveRepositories{
		ProjectKey:      "PROJ",
		VCSInstanceName: "bb-main",
		Repositories: []repository.SimpleRepository{
			{ID: "repo-a", Name: "repo-a"},
			{ID: "repo-b", Name: "repo-b"},
		},
	}
}

func TestReportActiveRepositories(t *testing.T) {
	var gotPath, gotContentType string
	var gotBody repository.ActiveRepositories

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), testTracer)
	err := c.ReportActiveRepositories(context.Background(), activeSet())

	require.NoError(t, err)
	assert.Equal(t, "/resc/v1/repositories/active", gotPath)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "PROJ", gotBody.ProjectKey)
	assert.Len(t, gotBody.Repositories, 2)
}

func TestReportActiveRepositoriesRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), testTracer)
	err := c.ReportActiveRepositories(context.Background(), activeSet())
	require.Error(t, err)
}

func TestReportActiveRepositoriesUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, nil, testTracer)
	err := c.ReportActiveRepositories(context.Background(), activeSet())
	require.Error(t, err)
}
