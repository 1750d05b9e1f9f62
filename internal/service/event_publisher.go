package service

import (
	"context"
	"encoding/json"

	pktEvents "voicepilot-be/pkg/events"
	pktNats "voicepilot-be/pkg/nats"
)

// SessionEventPublisher forwards session lifecycle events to the NATS stream
// so other deployments (analytics, billing) can react to them.
type SessionEventPublisher struct {
	publisher *pktNats.Publisher
}

func NewSessionEventPublisher(pub *pktNats.Publisher) *SessionEventPublisher {
	return &SessionEventPublisher{publisher: pub}
}

func (p *SessionEventPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	if p.publisher == nil {
		return nil
	}
	return p.publisher.Publish(ctx, pktEvents.New(eventType, toMap(payload)))
}

// toMap flattens an arbitrary payload into the map shape the event envelope
// carries. Non-object payloads are wrapped under a "payload" key.
func toMap(payload interface{}) map[string]interface{} {
	if m, ok := payload.(map[string]interface{}); ok {
		return m
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return map[string]interface{}{"payload": payload}
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return map[string]interface{}{"payload": payload}
	}
	return m
}
