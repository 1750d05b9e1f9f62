// FILE: internal/service/dispatcher_service.go
package service

import (
	"context"
	"encoding/json"
	"log"

	"voicepilot-be/internal/websocket"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// UIEventsTopic carries server-originated UI channel pushes through the
// in-process bus so producers never block on slow websocket writers.
const UIEventsTopic = "UI_EVENTS"

type uiEventMessage struct {
	SessionId string      `json:"session_id"`
	EventType string      `json:"event_type"`
	Payload   interface{} `json:"payload"`
}

// UIEventNotifier is the producing side: the orchestrator hands it UI events
// and it drops them on the bus. Implements orchestrator.Notifier.
type UIEventNotifier struct {
	pubSub *gochannel.GoChannel
}

func NewUIEventNotifier(pubSub *gochannel.GoChannel) *UIEventNotifier {
	return &UIEventNotifier{pubSub: pubSub}
}

func (n *UIEventNotifier) Notify(sessionID string, eventType string, payload interface{}) {
	data, err := json.Marshal(uiEventMessage{
		SessionId: sessionID,
		EventType: eventType,
		Payload:   payload,
	})
	if err != nil {
		log.Printf("[ERROR] Failed to marshal ui event: %v", err)
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := n.pubSub.Publish(UIEventsTopic, msg); err != nil {
		log.Printf("[ERROR] Failed to publish ui event: %v", err)
	}
}

type IDispatcherService interface {
	Consume(ctx context.Context) error
}

// dispatcherService is the consuming side: it pulls UI events off the bus
// and fans them out to the session's websocket connections.
type dispatcherService struct {
	pubSub *gochannel.GoChannel
	hub    *websocket.Hub
}

func NewDispatcherService(pubSub *gochannel.GoChannel, hub *websocket.Hub) IDispatcherService {
	return &dispatcherService{
		pubSub: pubSub,
		hub:    hub,
	}
}

func (ds *dispatcherService) Consume(ctx context.Context) error {
	messages, err := ds.pubSub.Subscribe(ctx, UIEventsTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			ds.processMessage(msg)
		}
	}()

	return nil
}

func (ds *dispatcherService) processMessage(msg *message.Message) {
	var event uiEventMessage
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		log.Printf("[ERROR] Failed to unmarshal ui event: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	ds.hub.SendEvent(event.SessionId, event.EventType, event.Payload)
	msg.Ack()
}
