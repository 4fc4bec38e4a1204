// Package serialization provides a registry-based system for serializing and
// deserializing domain events in the event bus infrastructure. It acts as a
// translation layer between domain objects and their JSON wire format.
//
// The package implements a registry pattern where serialization and
// deserialization functions are registered per event type. This keeps the
// domain layer clean of serialization concerns and allows new event types to
// be added without modifying existing code.
package serialization

import (
	"encoding/json"
	"fmt"

	"github.com/scanhound/scanhound/internal/domain/events"
	"github.com/scanhound/scanhound/internal/domain/repository"
)

// SerializeFunc converts a domain object into a serialized byte slice.
type SerializeFunc func(payload any) ([]byte, error)

// DeserializeFunc converts a serialized byte slice back into a domain object.
type DeserializeFunc func(data []byte) (any, error)

// Global registries map event types to their serialization functions.
// This allows for dynamic dispatch based on event type at runtime.
var (
	serializerRegistry   = map[events.EventType]SerializeFunc{}
	deserializerRegistry = map[events.EventType]DeserializeFunc{}
)

// RegisterSerializeFunc registers a serialization function for a given event
// type.
func RegisterSerializeFunc(eventType events.EventType, fn SerializeFunc) {
	serializerRegistry[eventType] = fn
}

// RegisterDeserializeFunc registers a deserialization function for a given
// event type.
func RegisterDeserializeFunc(eventType events.EventType, fn DeserializeFunc) {
	deserializerRegistry[eventType] = fn
}

// SerializePayload converts a domain object into bytes using the registered
// serializer for its event type. Returns an error if no serializer is
// registered for the given event type.
func SerializePayload(eventType events.EventType, payload any) ([]byte, error) {
	fn, ok := serializerRegistry[eventType]
	if !ok {
		return nil, fmt.Errorf("no serializer registered for eventType=%s", eventType)
	}
	return fn(payload)
}

// DeserializePayload converts bytes back into a domain object using the
// registered deserializer for its event type. Returns an error if no
// deserializer is registered for the given event type.
func DeserializePayload(eventType events.EventType, data []byte) (any, error) {
	fn, ok := deserializerRegistry[eventType]
	if !ok {
		return nil, fmt.Errorf("no deserializer registered for eventType=%s", eventType)
	}
	return fn(data)
}

func init() {
	RegisterEventSerializers()
}

// RegisterEventSerializers initializes the serialization system by registering
// handlers for all supported event types. Registration happens at package init
// so event processing can occur as soon as a bus is constructed.
func RegisterEventSerializers() {
	RegisterSerializeFunc(repository.EventTypeCollectionRequested, serializeCollectionTask)
	RegisterDeserializeFunc(repository.EventTypeCollectionRequested, deserializeCollectionTask)

	RegisterSerializeFunc(repository.EventTypeScanTaskCreated, serializeScanTask)
	RegisterDeserializeFunc(repository.EventTypeScanTaskCreated, deserializeScanTask)
}

// serializeCollectionTask converts a repository.CollectionTask to JSON bytes.
func serializeCollectionTask(payload any) ([]byte, error) {
	task, ok := payload.(repository.CollectionTask)
	if !ok {
		return nil, fmt.Errorf("serializeCollectionTask: payload is not repository.CollectionTask")
	}
	return json.Marshal(task)
}

// deserializeCollectionTask converts JSON bytes back into a
// repository.CollectionTask.
func deserializeCollectionTask(data []byte) (any, error) {
	var task repository.CollectionTask
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("unmarshal CollectionTask: %w", err)
	}
	return task, nil
}

// serializeScanTask converts a repository.Repository to JSON bytes.
func serializeScanTask(payload any) ([]byte, error) {
	repo, ok := payload.(repository.Repository)
	if !ok {
		return nil, fmt.Errorf("serializeScanTask: payload is not repository.Repository")
	}
	return json.Marshal(repo)
}

// deserializeScanTask converts JSON bytes back into a repository.Repository.
func deserializeScanTask(data []byte) (any, error) {
	var repo repository.Repository
	if err := json.Unmarshal(data, &repo); err != nil {
		return nil, fmt.Errorf("unmarshal Repository: %w", err)
	}
	return repo, nil
}
