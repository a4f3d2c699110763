// Package notify delivers published meeting reports to participants.
package notify

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/hylla/syncnotes/internal/app"
	"github.com/hylla/syncnotes/internal/domain"
	"github.com/hylla/syncnotes/internal/report"
)

// SMTPConfig holds mail transport settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type sendFunc func(ctx context.Context, msg *mail.Msg) error

// SMTPDeliverer mails the report as an attachment.
type SMTPDeliverer struct {
	cfg    SMTPConfig
	logger app.Logger
	send   sendFunc
}

// NewSMTPDeliverer constructs a deliverer.
func NewSMTPDeliverer(cfg SMTPConfig, logger app.Logger) *SMTPDeliverer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if strings.TrimSpace(cfg.From) == "" {
		cfg.From = cfg.Username
	}
	d := &SMTPDeliverer{cfg: cfg, logger: logger}
	d.send = d.dialAndSend
	return d
}

// DeliverReport sends one message to all recipients. Without credentials it logs a warning and sends nothing.
func (d *SMTPDeliverer) DeliverReport(ctx context.Context, meeting domain.Meeting, recipients []string, shareLink string) error {
	if strings.TrimSpace(d.cfg.Username) == "" || strings.TrimSpace(d.cfg.Password) == "" {
		d.logger.Warn("smtp credentials not set, report not sent", "meeting_id", meeting.ID)
		return nil
	}
	if len(recipients) == 0 {
		return app.ErrNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := buildMessage(d.cfg.From, recipients, meeting, shareLink)
	if err != nil {
		return err
	}
	addr := net.JoinHostPort(d.cfg.Host, strconv.Itoa(d.cfg.Port))
	if err := d.send(ctx, msg); err != nil {
		return fmt.Errorf("send mail via %s: %w", addr, err)
	}
	return nil
}

func (d *SMTPDeliverer) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	client, err := mail.NewClient(d.cfg.Host,
		mail.WithPort(d.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(d.cfg.Username),
		mail.WithPassword(d.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// buildMessage assembles the report mail. Header values are encoded by go-mail.
func buildMessage(from string, recipients []string, meeting domain.Meeting, shareLink string) (*mail.Msg, error) {
	msg := mail.NewMsg(mail.WithEncoding(mail.NoEncoding))
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("mail sender %q: %w", from, err)
	}
	if err := msg.To(recipients...); err != nil {
		return nil, fmt.Errorf("mail recipients: %w", err)
	}
	msg.Subject(report.Subject(meeting))
	msg.SetBodyString(mail.TypeTextPlain, report.Body(shareLink))
	attachment := strings.NewReader(report.Document(meeting))
	name := fmt.Sprintf("report-%s.txt", meeting.ID)
	if err := msg.AttachReader(name, attachment, mail.WithFileContentType(mail.TypeTextPlain)); err != nil {
		return nil, fmt.Errorf("attach report: %w", err)
	}
	return msg, nil
}
