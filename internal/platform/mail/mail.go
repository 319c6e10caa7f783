package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/trendhome-fenster/api/internal/platform/config"
)

const defaultSendTimeout = 10 * time.Second

// Attachment is a file attached to a message.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Message is a single outbound mail with a plain text and an optional HTML body.
type Message struct {
	To          []string
	ReplyTo     string
	Subject     string
	TextBody    string
	HTMLBody    string
	Attachments []Attachment
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var ErrNoRecipients = errors.New("mail: message has no recipients")

// NewSender returns an SMTP sender when cfg is enabled and a no-op sender otherwise.
func NewSender(cfg config.MailConfig, logger *zap.Logger) Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled() {
		logger.Info("smtp not configured; outbound mail disabled")
		return NoopSender{logger: logger}
	}
	return &SMTPSender{cfg: cfg, now: time.Now}
}

// NoopSender drops every message, logging the subject.
type NoopSender struct {
	logger *zap.Logger
}

func (s NoopSender) Send(_ context.Context, msg Message) error {
	if s.logger != nil {
		s.logger.Debug("mail dropped", zap.String("subject", msg.Subject), zap.Int("recipients", len(msg.To)))
	}
	return nil
}

// SMTPSender delivers through an SMTP relay, upgrading to TLS when the relay
// offers STARTTLS.
type SMTPSender struct {
	cfg config.MailConfig
	now func() time.Time
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	m, err := s.build(msg)
	if err != nil {
		return err
	}
	client, err := s.client()
	if err != nil {
		return err
	}

	timeout := s.cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("mail: deliver via %s: %w", s.cfg.SMTPHost, err)
	}
	return nil
}

func (s *SMTPSender) client() (*gomail.Client, error) {
	opts := []gomail.Option{
		gomail.WithPort(s.cfg.SMTPPort),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if s.cfg.Timeout > 0 {
		opts = append(opts, gomail.WithTimeout(s.cfg.Timeout))
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.cfg.Username),
			gomail.WithPassword(s.cfg.Password),
		)
	}
	client, err := gomail.NewClient(s.cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("mail: configure client: %w", err)
	}
	return client, nil
}

func (s *SMTPSender) build(msg Message) (*gomail.Msg, error) {
	return newMsg(s.cfg.ShopName, s.cfg.From, msg, s.now())
}

// Compose renders msg as the MIME document the relay receives: a
// multipart/alternative text and HTML body wrapped in multipart/mixed when
// there are attachments.
func Compose(from string, msg Message, now time.Time) ([]byte, error) {
	m, err := newMsg("", from, msg, now)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("mail: render: %w", err)
	}
	return buf.Bytes(), nil
}

func newMsg(displayName, from string, msg Message, now time.Time) (*gomail.Msg, error) {
	m := gomail.NewMsg(gomail.WithCharset(gomail.CharsetUTF8), gomail.WithEncoding(gomail.EncodingQP))

	var err error
	if displayName = strings.TrimSpace(displayName); displayName != "" {
		err = m.FromFormat(displayName, from)
	} else {
		err = m.From(from)
	}
	if err != nil {
		return nil, fmt.Errorf("mail: invalid sender %q: %w", from, err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("mail: invalid recipient: %w", err)
	}
	if msg.ReplyTo != "" {
		if err := m.ReplyTo(msg.ReplyTo); err != nil {
			return nil, fmt.Errorf("mail: invalid reply-to %q: %w", msg.ReplyTo, err)
		}
	}
	m.Subject(msg.Subject)
	m.SetDateWithValue(now)
	m.SetMessageIDWithValue(ulid.Make().String() + "@trendhome-fenster")

	m.SetBodyString(gomail.TypeTextPlain, msg.TextBody)
	if msg.HTMLBody != "" {
		m.AddAlternativeString(gomail.TypeTextHTML, msg.HTMLBody)
	}
	for _, a := range msg.Attachments {
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		if err := m.AttachReader(a.Name, bytes.NewReader(a.Data), gomail.WithFileContentType(gomail.ContentType(contentType))); err != nil {
			return nil, fmt.Errorf("mail: attach %s: %w", a.Name, err)
		}
	}
	return m, nil
}
