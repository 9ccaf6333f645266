package refresher

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
)

type SmtpConfig struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	Recipients   []string `json:"recipients"`
}

// Alerter escalates problems that need an operator.
type Alerter interface {
	Alert(ctx context.Context, subject, body string) error
}

// EmailAlerter sends alerts over SMTP.
type EmailAlerter struct {
	config SmtpConfig
	send   func(mail *email.Email, addr string, auth smtp.Auth) error
}

func NewEmailAlerter(config SmtpConfig) EmailAlerter {
	return EmailAlerter{
		config: config,
		send: func(mail *email.Email, addr string, auth smtp.Auth) error {
			return mail.Send(addr, auth)
		},
	}
}

func (a EmailAlerter) Alert(ctx context.Context, subject, body string) error {
	if len(a.config.Recipients) == 0 {
		return fmt.Errorf("no alert recipients configured")
	}

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Spa Availability <%s>", a.config.EmailAddress)
	mail.To = a.config.Recipients
	mail.Subject = subject
	mail.Text = []byte(body)

	addr := fmt.Sprintf("%s:%d", a.config.Server, a.config.Port)
	err := a.send(mail, addr, smtp.PlainAuth("", a.config.EmailAddress, a.config.Password, a.config.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = a.send(mail, addr, nil)
	}
	if err != nil {
		return fmt.Errorf("send alert email: %w", err)
	}
	return nil
}

// NoopAlerter drops every alert, for deployments without smtp.
type NoopAlerter struct{}

func (NoopAlerter) Alert(context.Context, string, string) error {
	return nil
}
