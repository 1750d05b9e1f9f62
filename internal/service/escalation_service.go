// FILE: internal/service/escalation_service.go
package service

import (
	"context"

	"voicepilot-be/internal/pkg/logger"
	"voicepilot-be/internal/pkg/mailer"
	"voicepilot-be/pkg/voice/recovery"
	"voicepilot-be/pkg/voice/session"
)

// IEscalationService alerts operators when the recovery policy gives up on
// an error. Implements orchestrator.Escalator.
type IEscalationService interface {
	Escalate(ctx context.Context, snap session.Session, decision recovery.Decision)
}

type escalationService struct {
	mail    mailer.IEmailService // nil when SMTP is not configured
	alertTo string
	tracker *recovery.Tracker
	logger  logger.ILogger
}

func NewEscalationService(mail mailer.IEmailService, alertTo string, tracker *recovery.Tracker, log logger.ILogger) IEscalationService {
	return &escalationService{
		mail:    mail,
		alertTo: alertTo,
		tracker: tracker,
		logger:  log,
	}
}

func (s *escalationService) Escalate(ctx context.Context, snap session.Session, decision recovery.Decision) {
	occurrences := s.tracker.Count(snap.SessionId, decision.Kind)

	s.logger.Warn("EscalationService", "Error escalated", map[string]interface{}{
		"session_id":  snap.SessionId,
		"client_id":   snap.ClientId,
		"kind":        decision.Kind.String(),
		"occurrences": occurrences,
	})

	if s.mail == nil || s.alertTo == "" {
		return
	}

	// Mail delivery must never block a voice turn.
	go func() {
		_ = s.mail.SendEscalationAlert(s.alertTo, snap.SessionId, snap.ClientId, decision.Kind.String(), occurrences)
	}()
}
