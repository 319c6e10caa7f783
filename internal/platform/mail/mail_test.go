package mail

import (
	"bytes"
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trendhome-fenster/api/internal/platform/config"
)

func TestNewSenderWithoutHostIsNoop(t *testing.T) {
	sender := NewSender(config.MailConfig{}, zap.NewNop())
	_, ok := sender.(NoopSender)
	require.True(t, ok, "expected NoopSender, got %T", sender)
	assert.NoError(t, sender.Send(context.Background(), Message{To: []string{"a@b.de"}, Subject: "x"}))
}

func TestNewSenderWithHostIsSMTP(t *testing.T) {
	sender := NewSender(config.MailConfig{SMTPHost: "smtp.example.com", SMTPPort: 587, From: "shop@example.com"}, nil)
	_, ok := sender.(*SMTPSender)
	assert.True(t, ok)
}

func TestSMTPSenderRequiresRecipients(t *testing.T) {
	sender := &SMTPSender{cfg: config.MailConfig{SMTPHost: "smtp.example.com", From: "shop@example.com"}, now: time.Now}
	assert.ErrorIs(t, sender.Send(context.Background(), Message{Subject: "x"}), ErrNoRecipients)
}

func TestComposeBuildsMultipartWithAttachment(t *testing.T) {
	msg := Message{
		To:       []string{"kunde@example.de"},
		Subject:  "Order Confirmation - TrendHome Fenster",
		TextBody: "Vielen Dank für Ihre Bestellung",
		HTMLBody: "<p>Vielen Dank</p>",
		Attachments: []Attachment{{
			Name:        "Order-WIN-20250303-1.txt",
			ContentType: "text/plain; charset=utf-8",
			Data:        []byte("ORDER CONFIRMATION"),
		}},
	}
	raw, err := Compose("shop@example.com", msg, time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	parsed, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	subject, err := new(mime.WordDecoder).DecodeHeader(parsed.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, msg.Subject, subject)

	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	require.Equal(t, "multipart/mixed", mediaType)

	reader := multipart.NewReader(parsed.Body, params["boundary"])
	first, err := reader.NextPart()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.Header.Get("Content-Type"), "multipart/alternative"))

	attachment, err := reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "Order-WIN-20250303-1.txt", attachment.FileName())
	data, err := io.ReadAll(attachment)
	require.NoError(t, err)
	assert.Contains(t, string(data), "T1JERVIgQ09ORklSTUFUSU9O")
}

func TestBuildSetsDisplayNameAndReplyTo(t *testing.T) {
	sender := &SMTPSender{
		cfg: config.MailConfig{SMTPHost: "smtp.example.com", From: "shop@example.com", ShopName: "TrendHome Fenster"},
		now: func() time.Time { return time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC) },
	}
	m, err := sender.build(Message{
		To:       []string{"office@example.com"},
		ReplyTo:  "kunde@example.de",
		Subject:  "New Contact Form Submission",
		TextBody: "Hallo",
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = m.WriteTo(&buf)
	require.NoError(t, err)
	parsed, err := mail.ReadMessage(&buf)
	require.NoError(t, err)

	from, err := mail.ParseAddress(parsed.Header.Get("From"))
	require.NoError(t, err)
	assert.Equal(t, "TrendHome Fenster", from.Name)
	assert.Equal(t, "shop@example.com", from.Address)
	assert.Contains(t, parsed.Header.Get("Reply-To"), "kunde@example.de")
	assert.Contains(t, parsed.Header.Get("Message-ID"), "@trendhome-fenster>")
}

func TestComposeRejectsInvalidAddresses(t *testing.T) {
	now := time.Now()
	_, err := Compose("not an address", Message{To: []string{"a@b.de"}}, now)
	assert.Error(t, err)
	_, err = Compose("shop@example.com", Message{To: []string{"@@"}}, now)
	assert.Error(t, err)
}
