package serialization

import (
	"encoding/json"
	"fmt"

	"github.com/scanhound/scanhound/internal/domain/events"
)

// universalEnvelope is the outer wire structure wrapping every published
// event. Carrying the event type alongside the payload lets consumers route
// messages without out-of-band topic knowledge.
type universalEnvelope struct {
	Type    events.EventType `json:"type"`
	Payload json.RawMessage  `json:"payload"`
}

// SerializeEventEnvelope serializes a payload with the registered serializer
// for its event type and wraps it in the universal envelope.
func SerializeEventEnvelope(eventType events.EventType, payload any) ([]byte, error) {
	payloadBytes, err := SerializePayload(eventType, payload)
	if err != nil {
		return nil, err
	}

	env := universalEnvelope{Type: eventType, Payload: payloadBytes}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope for event %s: %w", eventType, err)
	}
	return data, nil
}

// UnmarshalUniversalEnvelope splits a wire message into its event type and the
// raw payload bytes for type-specific deserialization.
func UnmarshalUniversalEnvelope(data []byte) (events.EventType, []byte, error) {
	var env universalEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Type == "" {
		return "", nil, fmt.Errorf("envelope missing event type")
	}
	return env.Type, env.Payload, nil
}
