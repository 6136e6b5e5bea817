// Package notify sends customer emails.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/luxspa/giftspa/internal/config"
	log "github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"
)

// Attachment is a file sent along with a message.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Message is one outbound email.
type Message struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Notifier delivers messages.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP notifier when a host is configured, otherwise a LogNotifier.
func New(cfg config.SMTPConfig) Notifier {
	if strings.TrimSpace(cfg.Host) == "" {
		return LogNotifier{}
	}
	return NewSMTPNotifier(cfg)
}

// SMTPNotifier sends mail through an SMTP relay.
type SMTPNotifier struct {
	cfg config.SMTPConfig
}

// NewSMTPNotifier constructs an SMTPNotifier.
func NewSMTPNotifier(cfg config.SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg}
}

// Send dials the relay and delivers msg.
func (n *SMTPNotifier) Send(ctx context.Context, msg Message) error {
	m, errBuild := n.build(msg)
	if errBuild != nil {
		return errBuild
	}

	opts := []mail.Option{mail.WithTLSPolicy(mail.TLSOpportunistic)}
	if n.cfg.Port > 0 {
		opts = append(opts, mail.WithPort(n.cfg.Port))
	}
	if n.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.cfg.Username),
			mail.WithPassword(n.cfg.Password),
		)
	}
	client, errClient := mail.NewClient(n.cfg.Host, opts...)
	if errClient != nil {
		return fmt.Errorf("notify: smtp client: %w", errClient)
	}
	if errSend := client.DialAndSendWithContext(ctx, m); errSend != nil {
		return fmt.Errorf("notify: send to %s: %w", msg.To, errSend)
	}
	return nil
}

func (n *SMTPNotifier) build(msg Message) (*mail.Msg, error) {
	if strings.TrimSpace(msg.To) == "" {
		return nil, errors.New("notify: empty recipient")
	}
	m := mail.NewMsg()
	if errFrom := m.From(n.cfg.From); errFrom != nil {
		return nil, fmt.Errorf("notify: from address: %w", errFrom)
	}
	if errTo := m.To(msg.To); errTo != nil {
		return nil, fmt.Errorf("notify: to address: %w", errTo)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	for _, a := range msg.Attachments {
		var fileOpts []mail.FileOption
		if a.ContentType != "" {
			fileOpts = append(fileOpts, mail.WithFileContentType(mail.ContentType(a.ContentType)))
		}
		m.AttachReadSeeker(a.Name, bytes.NewReader(a.Data), fileOpts...)
	}
	return m, nil
}

// LogNotifier writes messages to the log instead of sending them.
type LogNotifier struct{}

// Send logs msg.
func (LogNotifier) Send(_ context.Context, msg Message) error {
	names := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		names = append(names, a.Name)
	}
	log.WithFields(log.Fields{
		"to":          msg.To,
		"subject":     msg.Subject,
		"attachments": strings.Join(names, ","),
	}).Info("notify: email (log only)")
	log.Debug(msg.Body)
	return nil
}
