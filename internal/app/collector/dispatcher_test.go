package collector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanhound/scanhound/internal/domain/events"
	"github.com/scanhound/scanhound/internal/domain/repository"
)

// fnPublisher routes PublishDomainEvent through a test-supplied function.
type fnPublisher struct {
	publishFn func(ctx context.Context, evt events.EventEnvelope, opts ...events.PublishOption) error
}

func (p *fnPublisher) PublishDomainEvent(ctx context.Context, evt events.EventEnvelope, opts ...events.PublishOption) error {
	return p.publishFn(ctx, evt, opts...)
}

func scanTask(id string) repository.Repository {
	return repository.Repository{
		ProjectKey:      "PROJ",
		RepositoryID:    id,
		RepositoryName:  id,
		RepositoryURL:   "https://vcs/" + id + ".git",
		VCSInstanceName: "bb-main",
		LatestCommit:    "abc",
	}
}

func TestDispatchPublishesOneEventPerTask(t *testing.T) {
	var published []events.EventEnvelope
	var keys []string

	pub := &fnPublisher{publishFn: func(ctx context.Context, evt events.EventEnvelope, opts ...events.PublishOption) error {
		published = append(published, evt)
		var params events.PublishParams
		for _, opt := range opts {
			opt(&params)
		}
		keys = append(keys, params.Key)
		return nil
	}}

	d := NewDispatcher(pub, testLogger(), testTracer, noopMetrics{})
	dispatched := d.Dispatch(context.Background(), "bb-main", []repository.Repository{
		scanTask("repo-a"), scanTask("repo-b"),
	})

	assert.Equal(t, 2, dispatched)
	require.Len(t, published, 2)
	assert.Equal(t, repository.EventTypeScanTaskCreated, published[0].Type)
	assert.Equal(t, []string{"repo-a", "repo-b"}, keys, "events are keyed by repository id")

	task, ok := published[0].Payload.(repository.Repository)
	require.True(t, ok)
	assert.Equal(t, "repo-a", task.RepositoryID)
}

func TestDispatchIsolatesEnqueueFailures(t *testing.T) {
	var published []string

	pub := &fnPublisher{publishFn: func(ctx context.Context, evt events.EventEnvelope, opts ...events.PublishOption) error {
		task := evt.Payload.(repository.Repository)
		if task.RepositoryID == "repo-d" {
			return errors.New("broker unavailable")
		}
		published = append(published, task.RepositoryID)
		return nil
	}}

	d := NewDispatcher(pub, testLogger(), testTracer, noopMetrics{})
	dispatched := d.Dispatch(context.Background(), "bb-main", []repository.Repository{
		scanTask("repo-d"), scanTask("repo-e"),
	})

	assert.Equal(t, 1, dispatched, "a failed enqueue does not block later tasks")
	assert.Equal(t, []string{"repo-e"}, published)
}

func TestDispatchNoTasks(t *testing.T) {
	pub := &fnPublisher{publishFn: func(context.Context, events.EventEnvelope, ...events.PublishOption) error {
		t.Fatal("no publish expected")
		return nil
	}}

	d := NewDispatcher(pub, testLogger(), testTracer, noopMetrics{})
	assert.Zero(t, d.Dispatch(context.Background(), "bb-main", nil))
}
