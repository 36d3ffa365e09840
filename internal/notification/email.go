package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"github.com/smukkama/crowdsafe-server/internal/protocol"
	"github.com/smukkama/crowdsafe-server/pkg/config"
)

// EmailNotifier sends email notifications to the operations team
type EmailNotifier struct {
	config *config.SMTPConfig
}

// NewEmailNotifier creates a new email notifier
func NewEmailNotifier(cfg *config.SMTPConfig) *EmailNotifier {
	return &EmailNotifier{config: cfg}
}

// SendAlertNotification sends an email for a proximity alert event
func (e *EmailNotifier) SendAlertNotification(ev *protocol.AlertEvent) error {
	var subject string
	var body string
	var err error

	switch ev.Type {
	case protocol.AlertTypeTriggered:
		subject = fmt.Sprintf("🚨 Zone Alert TRIGGERED - user %s near %s", ev.UserID, ev.ZoneID)
		body, err = e.renderTriggeredTemplate(ev)
	case protocol.AlertTypeCleared:
		subject = fmt.Sprintf("✅ Zone Alert CLEARED - user %s / %s", ev.UserID, ev.ZoneID)
		body, err = e.renderClearedTemplate(ev)
	default:
		return fmt.Errorf("unknown alert type: %s", ev.Type)
	}

	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return e.sendEmail(subject, body)
}

// SendDensityNotification sends an email for a crowd-density breach
func (e *EmailNotifier) SendDensityNotification(ev *protocol.DensityEvent) error {
	subject := fmt.Sprintf("🚨 Crowd Density %s - %.0f%%", ev.Level, ev.Value)
	body, err := e.renderDensityTemplate(ev)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}
	return e.sendEmail(subject, body)
}

func (e *EmailNotifier) renderTriggeredTemplate(ev *protocol.AlertEvent) (string, error) {
	tmpl := `
Zone Alert Triggered
====================

User: {{.UserID}} ({{.UserIP}})
Zone: {{.ZoneID}} ({{.ZoneKind}})
Distance: {{printf "%.1f" .DistanceMeters}}m
Severity: {{.Severity}}
First Seen: {{.FirstSeenAt}}

Description:
{{.Message}} User {{.UserID}} is within the monitored radius of zone
{{.ZoneID}}. Repeat notifications for this condition are rate limited;
the condition stays active until the user leaves the zone.

---
CrowdSafe Notification System
`

	t, err := template.New("triggered").Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, ev); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (e *EmailNotifier) renderClearedTemplate(ev *protocol.AlertEvent) (string, error) {
	tmpl := `
Zone Alert Cleared
==================

User: {{.UserID}}
Zone: {{.ZoneID}}

Description:
User {{.UserID}} has left the monitored radius of zone {{.ZoneID}}.
The alert condition has been retired.

---
CrowdSafe Notification System
`

	t, err := template.New("cleared").Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, ev); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (e *EmailNotifier) renderDensityTemplate(ev *protocol.DensityEvent) (string, error) {
	tmpl := `
Crowd Density Breach
====================

Level: {{.Level}}
Value: {{printf "%.0f" .Value}}%
Sampled At: {{.SampledAt}}

Description:
The crowd-density signal has crossed the {{.Level}} threshold. The
physical actuator has been signalled; repeat notifications are rate
limited while the breach persists.

---
CrowdSafe Notification System
`

	t, err := template.New("density").Parse(tmpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, ev); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (e *EmailNotifier) sendEmail(subject, body string) error {
	// Skip sending if SMTP is not configured
	if e.config.Username == "" || e.config.Password == "" {
		fmt.Printf("SMTP not configured, skipping email:\nSubject: %s\n%s\n", subject, body)
		return nil
	}

	message := fmt.Sprintf("From: %s\r\n", e.config.From)
	message += fmt.Sprintf("To: %s\r\n", e.config.To)
	message += fmt.Sprintf("Subject: %s\r\n", subject)
	message += fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	message += "\r\n"
	message += body

	auth := smtp.PlainAuth("", e.config.Username, e.config.Password, e.config.Host)

	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	if err := smtp.SendMail(addr, auth, e.config.From, []string{e.config.To}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	fmt.Printf("Email sent successfully: %s\n", subject)
	return nil
}

// TestConnection tests the SMTP connection
func (e *EmailNotifier) TestConnection() error {
	if e.config.Username == "" {
		return fmt.Errorf("SMTP not configured")
	}

	addr := fmt.Sprintf("%s:%d", e.config.Host, e.config.Port)
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	fmt.Println("SMTP connection test successful")
	return nil
}
