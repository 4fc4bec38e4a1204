package repository

import "github.com/scanhound/scanhound/internal/domain/events"

// Event types for the repository collection pipeline.
const (
	// EventTypeCollectionRequested is produced by the upstream project
	// discovery stage. Payload: CollectionTask.
	EventTypeCollectionRequested events.EventType = "CollectionRequested"

	// EventTypeScanTaskCreated is produced once per repository with commits.
	// Payload: Repository. Consumed by the secret scanner workers.
	EventTypeScanTaskCreated events.EventType = "ScanTaskCreated"
)
