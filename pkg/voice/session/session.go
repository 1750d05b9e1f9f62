package session

import (
	"time"

	"github.com/google/uuid"
)

// State of a session. ACTIVE and PAUSED toggle; ENDED is terminal.
type State string

const (
	StateActive State = "ACTIVE"
	StatePaused State = "PAUSED"
	StateEnded  State = "ENDED"
)

// Mode enumerates how many speakers a session expects.
type Mode string

const (
	ModeSingleSpeaker Mode = "SINGLE_SPEAKER"
	ModeMultiSpeaker  Mode = "MULTI_SPEAKER"
)

// Config is fixed at session start.
type Config struct {
	VoiceModel                  string        `json:"voice_model"`
	Language                    string        `json:"language"`
	EnableSpeakerIdentification bool          `json:"enable_speaker_identification"`
	EnableTurnManagement        bool          `json:"enable_turn_management"`
	ConversationMode            Mode          `json:"conversation_mode"`
	IdleTimeout                 time.Duration `json:"idle_timeout"`
}

// Turn is one exchange in the conversation history. Immutable once appended.
type Turn struct {
	Id           uuid.UUID `json:"id"`
	SpeakerId    string    `json:"speaker_id"`
	Transcript   string    `json:"transcript"`
	ResponseText string    `json:"response_text"`
	Timestamp    time.Time `json:"timestamp"`
}

// Session is the conversational state for one session id. All mutation goes
// through the owning Handle; readers get snapshots.
type Session struct {
	SessionId        string                 `json:"session_id"`
	ClientId         string                 `json:"client_id"`
	Config           Config                 `json:"config"`
	State            State                  `json:"state"`
	CurrentSpeakerId string                 `json:"current_speaker_id,omitempty"`
	History          []Turn                 `json:"history"`
	UIContext        map[string]interface{} `json:"ui_context,omitempty"`
	StartedAt        time.Time              `json:"started_at"`
	LastActivity     time.Time              `json:"last_activity"`
}

// Stats summarizes one session for the stats endpoint.
type Stats struct {
	SessionId        string         `json:"session_id"`
	ClientId         string         `json:"client_id"`
	State            State          `json:"state"`
	Duration         time.Duration  `json:"duration"`
	InteractionCount int            `json:"interaction_count"`
	PerSpeakerCounts map[string]int `json:"per_speaker_counts"`
	ErrorCounts      map[string]int `json:"error_counts"`
}
