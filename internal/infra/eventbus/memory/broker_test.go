package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scanhound/scanhound/internal/domain/events"
	"github.com/scanhound/scanhound/internal/domain/repository"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	bus := NewEventBus()

	var got []events.EventEnvelope
	err := bus.Subscribe(context.Background(),
		[]events.EventType{repository.EventTypeScanTaskCreated},
		func(ctx context.Context, evt events.EventEnvelope, ack events.AckFunc) error {
			got = append(got, evt)
			ack(nil)
			return nil
		})
	require.NoError(t, err)

	evt := events.EventEnvelope{
		Type:    repository.EventTypeScanTaskCreated,
		Payload: repository.Repository{RepositoryID: "repo-a"},
	}
	require.NoError(t, bus.Publish(context.Background(), evt, events.WithKey("repo-a")))

	require.Len(t, got, 1)
	assert.Equal(t, "repo-a", got[0].Key, "publish options apply before delivery")
}

func TestPublishIgnoresUnmatchedTypes(t *testing.T) {
	bus := NewEventBus()

	called := false
	require.NoError(t, bus.Subscribe(context.Background(),
		[]events.EventType{repository.EventTypeCollectionRequested},
		func(ctx context.Context, evt events.EventEnvelope, ack events.AckFunc) error {
			called = true
			return nil
		}))

	require.NoError(t, bus.Publish(context.Background(), events.EventEnvelope{
		Type: repository.EventTypeScanTaskCreated,
	}))
	assert.False(t, called)
}

func TestPublishPropagatesHandlerError(t *testing.T) {
	bus := NewEventBus()

	require.NoError(t, bus.Subscribe(context.Background(),
		[]events.EventType{repository.EventTypeScanTaskCreated},
		func(ctx context.Context, evt events.EventEnvelope, ack events.AckFunc) error {
			return errors.New("handler failure")
		}))

	err := bus.Publish(context.Background(), events.EventEnvelope{
		Type: repository.EventTypeScanTaskCreated,
	})
	require.Error(t, err)
}

func TestCloseDropsHandlers(t *testing.T) {
	bus := NewEventBus()

	called := false
	require.NoError(t, bus.Subscribe(context.Background(),
		[]events.EventType{repository.EventTypeScanTaskCreated},
		func(ctx context.Context, evt events.EventEnvelope, ack events.AckFunc) error {
			called = true
			return nil
		}))
	require.NoError(t, bus.Close())

	require.NoError(t, bus.Publish(context.Background(), events.EventEnvelope{
		Type: repository.EventTypeScanTaskCreated,
	}))
	assert.False(t, called)
}
