package dto

import (
	"encoding/base64"
	"time"

	"voicepilot-be/pkg/voice/orchestrator"
	"voicepilot-be/pkg/voice/uiaction"
)

type StartSessionRequest struct {
	SessionId                   string `json:"session_id" validate:"required,max=128"`
	VoiceModel                  string `json:"voice_model,omitempty"`
	Language                    string `json:"language,omitempty"`
	EnableSpeakerIdentification bool   `json:"enable_speaker_identification,omitempty"`
	EnableTurnManagement        bool   `json:"enable_turn_management,omitempty"`
	ConversationMode            string `json:"conversation_mode,omitempty" validate:"omitempty,oneof=SINGLE_SPEAKER MULTI_SPEAKER"`
	IdleTimeoutSeconds          int    `json:"idle_timeout_seconds,omitempty" validate:"omitempty,min=5"`
}

type StartSessionResponse struct {
	SessionId string    `json:"session_id"`
	ClientId  string    `json:"client_id"`
	State     string    `json:"state"`
	StartedAt time.Time `json:"started_at"`
}

type ProcessInputRequest struct {
	Transcript string `json:"transcript" validate:"required"`
	SpeakerId  string `json:"speaker_id,omitempty"`
}

type ProcessInputResponse struct {
	Success          bool              `json:"success"`
	ResponseText     string            `json:"response_text,omitempty"`
	ResponseType     string            `json:"response_type"`
	AudioBase64      string            `json:"audio_base64,omitempty"`
	Actions          []uiaction.Action `json:"actions,omitempty"`
	ErrorCode        string            `json:"error_code,omitempty"`
	Recoverable      bool              `json:"recoverable,omitempty"`
	RecoveryAction   string            `json:"recovery_action,omitempty"`
	RetryRecommended bool              `json:"retry_recommended,omitempty"`
	BackoffSeconds   int               `json:"backoff_seconds,omitempty"`
	QueuePosition    *int              `json:"queue_position,omitempty"`
}

type SessionStatsResponse struct {
	SessionId        string         `json:"session_id"`
	ClientId         string         `json:"client_id"`
	State            string         `json:"state"`
	DurationSeconds  float64        `json:"duration_seconds"`
	InteractionCount int            `json:"interaction_count"`
	PerSpeakerCounts map[string]int `json:"per_speaker_counts,omitempty"`
	ErrorCounts      map[string]int `json:"error_counts,omitempty"`
	Archived         bool           `json:"archived,omitempty"`
}

// FromResult maps an orchestrator outcome onto the wire shape.
func FromResult(r orchestrator.Result) *ProcessInputResponse {
	res := &ProcessInputResponse{
		Success:          r.Success,
		ResponseText:     r.ResponseText,
		ResponseType:     r.ResponseType,
		Actions:          r.Actions,
		ErrorCode:        r.ErrorCode,
		Recoverable:      r.Recoverable,
		RecoveryAction:   r.RecoveryAction,
		RetryRecommended: r.RetryRecommended,
		BackoffSeconds:   r.BackoffSeconds,
		QueuePosition:    r.QueuePosition,
	}
	if len(r.Audio) > 0 {
		res.AudioBase64 = base64.StdEncoding.EncodeToString(r.Audio)
	}
	return res
}
