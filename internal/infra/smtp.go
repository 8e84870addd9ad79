package infra

import (
	"fmt"
	"net/smtp"

	"github.com/jordan-wright/email"

	"pharmapos/internal/config"
)

// Mailer sends plain-text alert emails through the configured SMTP relay.
// Every send goes through a circuit breaker so a dead relay does not stall
// the worker pool.
type Mailer struct {
	host     string
	user     string
	password string
	from     string
	addr     string
	breaker  *CircuitBreaker
	send     func(e *email.Email, addr string, auth smtp.Auth) error
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.AlertFrom,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		breaker:  NewCircuitBreaker(DefaultCBConfig("smtp")),
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// Enabled is false when no SMTP host is configured; alerts are then only logged.
func (m *Mailer) Enabled() bool { return m.host != "" }

// BreakerState exposes the relay breaker for the health endpoint.
func (m *Mailer) BreakerState() string { return m.breaker.State() }

// SendAlert sends a plain-text message to a single recipient.
func (m *Mailer) SendAlert(to, subject, body string) error {
	e := email.NewEmail()
	e.From = m.from
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	return m.breaker.Execute(func() error {
		if err := m.send(e, m.addr, auth); err != nil {
			return fmt.Errorf("mailer: send to %s: %w", to, err)
		}
		return nil
	})
}
