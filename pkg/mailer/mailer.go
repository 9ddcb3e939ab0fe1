package mailer

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// ConfirmationLine is one purchased line shown in the confirmation mail.
type ConfirmationLine struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// OrderConfirmation is the content of an order confirmation message.
type OrderConfirmation struct {
	To            string
	CustomerName  string
	OrderRef      string
	Amount        decimal.Decimal
	Currency      string
	PaymentMethod string
	Status        string
	Lines         []ConfirmationLine
}

// Mailer delivers customer-facing order mail.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, msg OrderConfirmation) error
}

type sendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends plain-text mail through an SMTP relay.
type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
	send sendFunc
}

// New returns an SMTP mailer when a host is configured, otherwise a mailer
// that only logs the message.
func New(cfg config.MailConfig, logg *logger.Logger) Mailer {
	if !cfg.Enabled() {
		return &LogMailer{logg: logg}
	}
	var auth smtp.Auth
	if cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}
	return &SMTPMailer{
		addr: net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort)),
		auth: auth,
		from: cfg.From,
		send: smtp.SendMail,
	}
}

func (m *SMTPMailer) SendOrderConfirmation(ctx context.Context, msg OrderConfirmation) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("recipient required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	body := renderConfirmation(m.from, msg)
	if err := m.send(m.addr, m.auth, m.from, []string{msg.To}, []byte(body)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogMailer records confirmations in the log instead of sending them.
type LogMailer struct {
	logg *logger.Logger
}

func (m *LogMailer) SendOrderConfirmation(ctx context.Context, msg OrderConfirmation) error {
	if m.logg == nil {
		return nil
	}
	logCtx := m.logg.WithOrderRef(ctx, msg.OrderRef)
	logCtx = m.logg.WithFields(logCtx, map[string]any{
		"lines":  len(msg.Lines),
		"amount": msg.Amount.StringFixed(2),
	})
	m.logg.Info(logCtx, "order confirmation not sent: smtp disabled")
	return nil
}

func renderConfirmation(from string, msg OrderConfirmation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: Order %s confirmed\r\n", msg.OrderRef)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")

	name := strings.TrimSpace(msg.CustomerName)
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hi %s,\r\n\r\n", name)
	fmt.Fprintf(&b, "Thanks for your order %s.\r\n\r\n", msg.OrderRef)
	for _, line := range msg.Lines {
		fmt.Fprintf(&b, "  %d x %s @ %s\r\n", line.Quantity, line.Name, line.UnitPrice.StringFixed(2))
	}
	fmt.Fprintf(&b, "\r\nTotal: %s %s\r\n", msg.Amount.StringFixed(2), msg.Currency)
	fmt.Fprintf(&b, "Payment: %s (%s)\r\n", msg.PaymentMethod, msg.Status)
	return b.String()
}
