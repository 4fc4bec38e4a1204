package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanhound/scanhound/internal/domain/repository"
	"github.com/scanhound/scanhound/internal/vcs"
)

type fnBackend struct {
	reportFn func(ctx context.Context, active repository.ActiveRepositories) error
}

func (b *fnBackend) ReportActiveRepositories(ctx context.Context, active repository.ActiveRepositories) error {
	return b.reportFn(ctx, active)
}

func TestReportIncludesEveryListedRepository(t *testing.T) {
	var got repository.ActiveRepositories
	be := &fnBackend{reportFn: func(ctx context.Context, active repository.ActiveRepositories) error {
		got = active
		return nil
	}}

	r := NewReporter(be, testLogger(), testTracer, noopMetrics{})
	r.Report(context.Background(), "PROJ", "bb-main", []vcs.RawRepository{
		{ProjectKey: "PROJ", ID: "repo-a", Name: "repo-a"},
		{ProjectKey: "PROJ", ID: "repo-b", Name: "repo-b"}, // commitless, still reported
	})

	assert.Equal(t, "PROJ", got.ProjectKey)
	assert.Equal(t, "bb-main", got.VCSInstanceName)
	require.Len(t, got.Repositories, 2)
	assert.Equal(t, repository.SimpleRepository{ID: "repo-a", Name: "repo-a"}, got.Repositories[0])
	assert.Equal(t, repository.SimpleRepository{ID: "repo-b", Name: "repo-b"}, got.Repositories[1])
}

func TestReportSwallowsBackendFailure(t *testing.T) {
	be := &fnBackend{reportFn: func(context.Context, repository.ActiveRepositories) error {
		return errors.New("backend down")
	}}

	r := NewReporter(be, testLogger(), testTracer, noopMetrics{})

	// Must not panic or propagate; reporting is best effort.
	r.Report(context.Background(), "PROJ", "bb-main", []vcs.RawRepository{
		{ProjectKey: "PROJ", ID: "repo-a", Name: "repo-a"},
	})
}

func TestReportEmptyListing(t *testing.T) {
	var got repository.ActiveRepositories
	be := &fnBackend{reportFn: func(ctx context.Context, active repository.ActiveRepositories) error {
		got = active
		return nil
	}}

	r := NewReporter(be, testLogger(), testTracer, noopMetrics{})
	r.Report(context.Background(), "PROJ", "bb-main", nil)

	assert.NotNil(t, got.Repositories, "an empty project still reports an empty active set")
	assert.Empty(t, got.Repositories)
}
