// Package notify delivers invitation emails to users who were added to an
// organization or website. Delivery happens off the request path: a failed send
// is logged and counted, never surfaced to the caller that created the membership.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"

	"github.com/blokid/blokid-backend/internal/auth"
	"github.com/blokid/blokid-backend/internal/config"
	"github.com/blokid/blokid-backend/internal/safego"
	"github.com/blokid/blokid-backend/internal/telemetry"
)

// Invitation describes a membership that was just granted.
type Invitation struct {
	Email        string
	InviterEmail string
	ResourceKind auth.ResourceScope
	ResourceID   string
	ResourceName string
	Role         auth.Role
}

// Notifier is implemented by anything that can announce a new membership.
type Notifier interface {
	NotifyInvitation(ctx context.Context, inv Invitation)
}

// Nop discards every notification.
type Nop struct{}

// NotifyInvitation does nothing.
func (Nop) NotifyInvitation(context.Context, Invitation) {}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier sends invitation emails through the configured mail server.
type SMTPNotifier struct {
	cfg     *config.NotificationsConfig
	baseURL string
	send    sendFunc
	tasks   safego.Group
}

// NewSMTPNotifier creates a notifier. When cfg.Enabled is false or no SMTP host
// is configured the notifier accepts invitations and drops them.
func NewSMTPNotifier(cfg *config.NotificationsConfig, baseURL string) *SMTPNotifier {
	n := &SMTPNotifier{
		cfg:     cfg,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	if cfg.SMTP.UseTLS {
		n.send = sendMailTLS
	} else {
		n.send = smtp.SendMail
	}
	return n
}

// Enabled reports whether invitations will actually be mailed.
func (n *SMTPNotifier) Enabled() bool {
	return n.cfg.Enabled && n.cfg.SMTP.Host != ""
}

// NotifyInvitation queues the invitation email and returns immediately.
func (n *SMTPNotifier) NotifyInvitation(_ context.Context, inv Invitation) {
	if !n.Enabled() {
		return
	}
	n.tasks.Go("invitation-email", func() {
		if err := n.SendInvitation(inv); err != nil {
			slog.Warn("failed to send invitation email",
				"email", inv.Email,
				"resource", inv.ResourceKind,
				"resource_id", inv.ResourceID,
				"error", err)
		}
	})
}

// Wait blocks until queued emails have been handed to the mail server.
func (n *SMTPNotifier) Wait() {
	n.tasks.Wait()
}

// SendInvitation composes and delivers the email synchronously.
func (n *SMTPNotifier) SendInvitation(inv Invitation) error {
	smtpCfg := &n.cfg.SMTP
	msg := composeInvitation(smtpCfg.From, n.baseURL, inv)

	addr := net.JoinHostPort(smtpCfg.Host, fmt.Sprint(smtpCfg.Port))
	var a smtp.Auth
	if smtpCfg.Username != "" {
		a = smtp.PlainAuth("", smtpCfg.Username, smtpCfg.Password, smtpCfg.Host)
	}

	if err := n.send(addr, a, smtpCfg.From, []string{inv.Email}, msg); err != nil {
		telemetry.InviteEmailsTotal.WithLabelValues("failed").Inc()
		return err
	}
	telemetry.InviteEmailsTotal.WithLabelValues("sent").Inc()
	slog.Info("invitation email sent", "email", inv.Email, "resource", inv.ResourceKind, "resource_id", inv.ResourceID)
	return nil
}

func composeInvitation(from, baseURL string, inv Invitation) []byte {
	subject := fmt.Sprintf("You have been added to the %s %q", inv.ResourceKind, inv.ResourceName)

	inviter := inv.InviterEmail
	if inviter == "" {
		inviter = "A team member"
	}
	lines := []string{
		"Hello,",
		"",
		fmt.Sprintf("%s added you to the %s %q with the role %s.", inviter, inv.ResourceKind, inv.ResourceName, inv.Role),
		"",
	}
	if baseURL != "" {
		lines = append(lines,
			"Sign in to get started:",
			fmt.Sprintf("  %s/%ss/%s", baseURL, inv.ResourceKind, inv.ResourceID),
			"",
		)
	}
	lines = append(lines, "If you were not expecting this, you can ignore this message.")

	headers := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n",
		from, inv.Email, subject,
	)
	return []byte(headers + strings.Join(lines, "\r\n") + "\r\n")
}

// sendMailTLS delivers over implicit TLS (port 465). When the TLS dial fails it
// falls back to smtp.SendMail, which negotiates STARTTLS where offered.
func sendMailTLS(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("smtp address: %w", err)
	}

	conn, err := tls.Dial("tcp", addr, &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	})
	if err != nil {
		return smtp.SendMail(addr, a, from, to, msg)
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("smtp new client: %w", err)
	}
	defer c.Quit() //nolint:errcheck

	if a != nil {
		if err := c.Auth(a); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	return w.Close()
}
