package dto

import "encoding/json"

// Message types on the UI websocket channel.
const (
	// client -> server
	WsTypeVoiceInput    = "voice_input"
	WsTypeUIStateUpdate = "ui_state_update"

	// server -> client
	WsTypeUICommand     = "ui_command"
	WsTypeVoiceFeedback = "voice_feedback"
	WsTypeSessionEvent  = "session_event"
)

// WsEnvelope frames every message in both directions.
type WsEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type VoiceInputMessage struct {
	Transcript string `json:"transcript"`
	SpeakerId  string `json:"speaker_id,omitempty"`
}

type UIStateUpdateMessage struct {
	UIContext map[string]interface{} `json:"ui_context"`
}
