package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	domain "github.com/trendhome-fenster/api/internal/domain"
	"github.com/trendhome-fenster/api/internal/platform/mail"
)

const defaultShopName = "TrendHome Fenster"

// NotificationServiceDeps bundles collaborators required to construct the notifier.
type NotificationServiceDeps struct {
	Sender         mail.Sender
	AdminRecipient string
	ShopName       string
	ShopPhone      string
	Logger         func(ctx context.Context, event string, fields map[string]any)
}

// NotificationService renders and sends order and contact mails.
type NotificationService struct {
	sender    mail.Sender
	admin     string
	shopName  string
	shopPhone string
	markdown  goldmark.Markdown
	policy    *bluemonday.Policy
	logger    func(context.Context, string, map[string]any)
}

var (
	_ OrderNotifier   = (*NotificationService)(nil)
	_ ContactNotifier = (*NotificationService)(nil)
)

// NewNotificationService builds the notifier. Without an admin recipient only
// customer confirmations are sent.
func NewNotificationService(deps NotificationServiceDeps) (*NotificationService, error) {
	if deps.Sender == nil {
		return nil, errors.New("notification service: mail sender is required")
	}
	shop := strings.TrimSpace(deps.ShopName)
	if shop == "" {
		shop = defaultShopName
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &NotificationService{
		sender:    deps.Sender,
		admin:     strings.TrimSpace(deps.AdminRecipient),
		shopName:  shop,
		shopPhone: strings.TrimSpace(deps.ShopPhone),
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.Table),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		policy: bluemonday.UGCPolicy(),
		logger: logger,
	}, nil
}

// NotifyOrderSubmitted mails staff and the customer, attaching the order
// document to both. Each mail is attempted once.
func (n *NotificationService) NotifyOrderSubmitted(ctx context.Context, order domain.Order, document []byte) error {
	attachment := mail.Attachment{
		Name:        OrderDocumentName(order.OrderNumber),
		ContentType: "text/plain; charset=utf-8",
		Data:        document,
	}

	var errs []error
	if n.admin != "" {
		msg, err := n.message([]string{n.admin}, "New Window Order Request - "+order.CustomerInfo.Name, n.adminOrderMarkdown(order))
		if err == nil {
			msg.ReplyTo = order.CustomerInfo.Email
			msg.Attachments = []mail.Attachment{attachment}
			err = n.sender.Send(ctx, msg)
		}
		if err != nil {
			errs = append(errs, &UpstreamError{Service: "mail.admin", Err: err})
		}
	}

	if order.CustomerInfo.Email != "" {
		msg, err := n.message([]string{order.CustomerInfo.Email}, "Order Confirmation - "+n.shopName, n.customerOrderMarkdown(order))
		if err == nil {
			msg.Attachments = []mail.Attachment{attachment}
			err = n.sender.Send(ctx, msg)
		}
		if err != nil {
			errs = append(errs, &UpstreamError{Service: "mail.customer", Err: err})
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	n.logger(ctx, "notify.order_sent", map[string]any{"orderNumber": order.OrderNumber})
	return nil
}

// NotifyContactSubmitted forwards a contact request to staff.
func (n *NotificationService) NotifyContactSubmitted(ctx context.Context, contact domain.Contact) error {
	if n.admin == "" {
		return nil
	}
	msg, err := n.message([]string{n.admin}, "New Contact Form Submission - "+contact.Name, n.contactMarkdown(contact))
	if err != nil {
		return &UpstreamError{Service: "mail.admin", Err: err}
	}
	msg.ReplyTo = contact.Email
	if err := n.sender.Send(ctx, msg); err != nil {
		return &UpstreamError{Service: "mail.admin", Err: err}
	}
	return nil
}

func (n *NotificationService) message(to []string, subject, markdown string) (mail.Message, error) {
	var rendered bytes.Buffer
	if err := n.markdown.Convert([]byte(markdown), &rendered); err != nil {
		return mail.Message{}, fmt.Errorf("render mail body: %w", err)
	}
	return mail.Message{
		To:       to,
		Subject:  subject,
		TextBody: markdown,
		HTMLBody: string(n.policy.SanitizeBytes(rendered.Bytes())),
	}, nil
}

func (n *NotificationService) adminOrderMarkdown(order domain.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## New Window Order Received\n\n")
	fmt.Fprintf(&b, "**Order Number:** %s\n", order.OrderNumber)
	fmt.Fprintf(&b, "**Date:** %s\n\n", order.CreatedAt.Format("02.01.2006"))
	writeCustomerSection(&b, order.CustomerInfo)
	writeConfigurationSection(&b, order.Configuration)
	fmt.Fprintf(&b, "### Total Price: %s\n", FormatEuro(order.Pricing.TotalPrice))
	return b.String()
}

func (n *NotificationService) customerOrderMarkdown(order domain.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Thank you for your order, %s!\n\n", escapeMarkdown(order.CustomerInfo.Name))
	fmt.Fprintf(&b, "We have received your window configuration request. Our team will review it and contact you within 24 hours with a detailed quote.\n\n")
	fmt.Fprintf(&b, "**Order Number:** %s\n", order.OrderNumber)
	fmt.Fprintf(&b, "**Estimated Price:** %s (excluding VAT)\n\n", FormatEuro(order.Pricing.TotalPrice))
	fmt.Fprintf(&b, "Your order confirmation is attached to this email.\n\n")
	if n.shopPhone != "" {
		fmt.Fprintf(&b, "Questions? Call us at %s.\n\n", n.shopPhone)
	}
	fmt.Fprintf(&b, "Best regards,\n%s\n", n.shopName)
	return b.String()
}

func (n *NotificationService) contactMarkdown(contact domain.Contact) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## New Contact Form Submission\n\n")
	fmt.Fprintf(&b, "- **Name:** %s\n", escapeMarkdown(contact.Name))
	fmt.Fprintf(&b, "- **Email:** %s\n", escapeMarkdown(contact.Email))
	fmt.Fprintf(&b, "- **Phone:** %s\n", escapeMarkdown(contact.Phone))
	fmt.Fprintf(&b, "- **Subject:** %s\n\n", escapeMarkdown(contact.Subject))
	fmt.Fprintf(&b, "### Message\n\n%s\n", escapeMarkdown(contact.Message))
	return b.String()
}

func writeCustomerSection(b *strings.Builder, info domain.CustomerInfo) {
	fmt.Fprintf(b, "### Customer Information\n\n")
	fmt.Fprintf(b, "- **Name:** %s\n", escapeMarkdown(info.Name))
	fmt.Fprintf(b, "- **Email:** %s\n", escapeMarkdown(info.Email))
	fmt.Fprintf(b, "- **Phone:** %s\n", escapeMarkdown(info.Phone))
	fmt.Fprintf(b, "- **Address:** %s\n\n", escapeMarkdown(info.Address))
}

func writeConfigurationSection(b *strings.Builder, cfg domain.Configuration) {
	fmt.Fprintf(b, "### Configuration\n\n")
	fmt.Fprintf(b, "| Option | Selection |\n|---|---|\n")
	rows := [][2]string{
		{"Manufacturer", cfg.Manufacturer},
		{"Material", cfg.Material},
		{"Window Type", cfg.WindowType},
		{"Dimensions", fmt.Sprintf("%.0f x %.0f mm", cfg.Dimensions.Width, cfg.Dimensions.Height)},
		{"Glass Type", cfg.GlassType},
		{"Colors", cfg.InteriorColor + " / " + cfg.ExteriorColor},
		{"Locking Option", cfg.LockingOption},
	}
	if cfg.RollerShutter {
		rows = append(rows, [2]string{"Roller Shutter", cfg.RollerShutterType + " (" + fallback(cfg.RollerShutterControl, "manual") + ")"})
	} else {
		rows = append(rows, [2]string{"Roller Shutter", "No"})
	}
	for _, row := range rows {
		fmt.Fprintf(b, "| %s | %s |\n", row[0], escapeMarkdown(row[1]))
	}
	b.WriteString("\n")
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`,
	"<", "&lt;", ">", "&gt;", "|", `\|`, "#", `\#`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
