package notification

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"
)

// SMTPConfig describes the outgoing mail server.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type sendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier delivers messages as e-mail, one message per recipient.
// Invitations carry a text/calendar REQUEST part.
type SMTPNotifier struct {
	config SMTPConfig
	auth   smtp.Auth
	send   sendFunc
	now    func() time.Time
}

// NewSMTPNotifier returns a notifier for the given server. PLAIN auth is used
// when a username is configured.
func NewSMTPNotifier(config SMTPConfig) *SMTPNotifier {
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	return &SMTPNotifier{config: config, auth: auth, send: smtp.SendMail, now: time.Now}
}

// NotifyInvitation mails the invitation with an .ics attachment.
func (n *SMTPNotifier) NotifyInvitation(ctx context.Context, invitation Invitation) error {
	if invitation.SentAt.IsZero() {
		invitation.SentAt = n.now()
	}
	calendar := BuildInvitationCalendar(invitation)
	return n.deliver(ctx, invitation.Recipients, func(to string) ([]byte, error) {
		return n.compose(to, invitationSubject(invitation), invitationText(invitation), calendar)
	})
}

// NotifyReminder mails the reminder.
func (n *SMTPNotifier) NotifyReminder(ctx context.Context, reminder Reminder) error {
	return n.deliver(ctx, reminder.Recipients, func(to string) ([]byte, error) {
		return n.compose(to, reminderSubject(reminder), reminderText(reminder), "")
	})
}

// deliver sends one message per recipient and joins the failures.
func (n *SMTPNotifier) deliver(ctx context.Context, recipients []string, build func(to string) ([]byte, error)) error {
	addr := net.JoinHostPort(n.config.Host, strconv.Itoa(n.config.Port))
	var errs []error
	for _, to := range recipients {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		msg, err := build(to)
		if err != nil {
			errs = append(errs, fmt.Errorf("compose message for %s: %w", to, err))
			continue
		}
		if err := n.send(addr, n.auth, n.config.From, []string{to}, msg); err != nil {
			errs = append(errs, fmt.Errorf("send to %s: %w", to, err))
		}
	}
	return errors.Join(errs...)
}

func (n *SMTPNotifier) compose(to, subject, text, calendar string) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fmt.Fprintf(&buf, "From: %s\r\n", n.config.From)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", n.now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", writer.Boundary())

	textPart, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=utf-8"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := textPart.Write([]byte(text)); err != nil {
		return nil, err
	}

	if calendar != "" {
		calPart, err := writer.CreatePart(textproto.MIMEHeader{
			"Content-Type":        {`text/calendar; charset=utf-8; method=REQUEST`},
			"Content-Disposition": {`attachment; filename="invite.ics"`},
		})
		if err != nil {
			return nil, err
		}
		if _, err := calPart.Write([]byte(calendar)); err != nil {
			return nil, err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
