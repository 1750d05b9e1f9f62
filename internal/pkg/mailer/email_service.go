// FILE: internal/pkg/mailer/email_service.go
package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendEscalationAlert(toEmail, sessionId, clientId, errorKind string, occurrences int) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
}

func NewEmailService(host string, port int, username, password, senderEmail string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
	}
}

func (s *emailService) SendEscalationAlert(toEmail, sessionId, clientId, errorKind string, occurrences int) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("[VoicePilot] Escalated error in session %s", sessionId))

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Voice session needs attention</h2>
			<p>An error kept recurring and was escalated by the recovery policy.</p>
			<ul>
				<li><b>Session:</b> %s</li>
				<li><b>Client:</b> %s</li>
				<li><b>Error kind:</b> %s</li>
				<li><b>Consecutive occurrences:</b> %d</li>
			</ul>
			<p>Check the server logs for the full trail.</p>
		</div>
	`, sessionId, clientId, errorKind, occurrences)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send escalation alert to %s: %v\n", toEmail, err)
		return err
	}

	fmt.Printf("[MAILER] Escalation alert sent to %s\n", toEmail)
	return nil
}
