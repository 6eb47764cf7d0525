package services

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/gomail.v2"

	"taskhive/logger"
	"taskhive/models"
)

// Mailer sends invitation lifecycle mail. Delivery failures are logged by
// the implementation and never propagate into the state transition that
// triggered the send.
type Mailer interface {
	SendInvitation(invitation *models.TeamInvitation, teamName, inviterName string, reminder bool) error
	SendInvitationCancelled(email, teamName string) error
}

// SMTPMailer delivers mail through an SMTP relay.
type SMTPMailer struct {
	host     string
	port     int
	user     string
	password string
	from     string
	appURL   string
	log      *logger.Logger
}

// NewMailerFromEnv returns an SMTP mailer when SMTP_HOST is configured and
// a log-only mailer otherwise, so development setups work without a relay.
func NewMailerFromEnv() Mailer {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return NewNoMailer()
	}

	port := 587
	if p, err := strconv.Atoi(os.Getenv("SMTP_PORT")); err == nil && p > 0 {
		port = p
	}

	from := os.Getenv("MAIL_FROM")
	if from == "" {
		from = os.Getenv("SMTP_USER")
	}

	return &SMTPMailer{
		host:     host,
		port:     port,
		user:     os.Getenv("SMTP_USER"),
		password: os.Getenv("SMTP_PASSWORD"),
		from:     from,
		appURL:   appURL(),
		log:      logger.NewLogger("mailer"),
	}
}

func appURL() string {
	if url := os.Getenv("APP_URL"); url != "" {
		return url
	}
	return "http://localhost:3000"
}

func (m *SMTPMailer) SendInvitation(invitation *models.TeamInvitation, teamName, inviterName string, reminder bool) error {
	subject := fmt.Sprintf("You've been invited to join %s", teamName)
	if reminder {
		subject = fmt.Sprintf("Reminder: you have a pending invitation to %s", teamName)
	}

	acceptURL := fmt.Sprintf("%s/invitations/%s/accept", m.appURL, invitation.Token)
	declineURL := fmt.Sprintf("%s/invitations/%s/decline", m.appURL, invitation.Token)

	body := fmt.Sprintf(
		`<p>%s has invited you to join <strong>%s</strong> as a %s.</p>
<p><a href="%s">Accept invitation</a> &middot; <a href="%s">Decline</a></p>
<p>This invitation expires on %s.</p>`,
		inviterName, teamName, invitation.Role,
		acceptURL, declineURL,
		invitation.ExpiresAt.Format("January 2, 2006"),
	)

	return m.send(invitation.Email, subject, body)
}

func (m *SMTPMailer) SendInvitationCancelled(email, teamName string) error {
	body := fmt.Sprintf(
		`<p>Your invitation to join <strong>%s</strong> has been cancelled.</p>
<p>If you believe this was a mistake, please contact the team administrator.</p>`,
		teamName,
	)
	return m.send(email, "Team invitation cancelled", body)
}

func (m *SMTPMailer) send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	d := gomail.NewDialer(m.host, m.port, m.user, m.password)
	if err := d.DialAndSend(msg); err != nil {
		m.log.Error("failed to send mail", "to", to, "subject", subject, "error", err)
		return err
	}
	return nil
}

// NoMailer logs sends instead of delivering them. Tokens are never logged.
type NoMailer struct {
	log *logger.Logger
}

func NewNoMailer() *NoMailer {
	return &NoMailer{log: logger.NewLogger("mailer")}
}

func (m *NoMailer) SendInvitation(invitation *models.TeamInvitation, teamName, inviterName string, reminder bool) error {
	m.log.Info("smtp not configured, skipping invitation mail",
		"to", invitation.Email, "team", teamName, "reminder", reminder)
	return nil
}

func (m *NoMailer) SendInvitationCancelled(email, teamName string) error {
	m.log.Info("smtp not configured, skipping cancellation mail",
		"to", email, "team", teamName)
	return nil
}
