package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func sampleConfirmation() OrderConfirmation {
	return OrderConfirmation{
		To:            "saman@example.com",
		CustomerName:  "Saman",
		OrderRef:      "ORD-1",
		Amount:        decimal.RequireFromString("1500"),
		Currency:      "LKR",
		PaymentMethod: "payhere",
		Status:        "paid",
		Lines:         []ConfirmationLine{{Name: "Door bell wireless", Quantity: 1, UnitPrice: decimal.RequireFromString("1500")}},
	}
}

func TestNewFallsBackToLogMailer(t *testing.T) {
	m := New(config.MailConfig{}, nil)
	_, ok := m.(*LogMailer)
	require.True(t, ok)
	assert.NoError(t, m.SendOrderConfirmation(context.Background(), sampleConfirmation()))
}

func TestSMTPMailerSendsRenderedMessage(t *testing.T) {
	m := New(config.MailConfig{SMTPHost: "smtp.example.com", SMTPPort: 2525, From: "orders@shop.example.com"}, nil).(*SMTPMailer)
	var gotAddr string
	var gotTo []string
	var gotBody string
	m.send = func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotBody = addr, to, string(msg)
		return nil
	}

	require.NoError(t, m.SendOrderConfirmation(context.Background(), sampleConfirmation()))
	assert.Equal(t, "smtp.example.com:2525", gotAddr)
	assert.Equal(t, []string{"saman@example.com"}, gotTo)
	assert.Contains(t, gotBody, "Subject: Order ORD-1 confirmed")
	assert.Contains(t, gotBody, "1 x Door bell wireless @ 1500.00")
	assert.Contains(t, gotBody, "Total: 1500.00 LKR")
}

func TestSMTPMailerErrors(t *testing.T) {
	m := New(config.MailConfig{SMTPHost: "smtp.example.com", SMTPPort: 25}, nil).(*SMTPMailer)
	m.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("421 busy") }

	err := m.SendOrderConfirmation(context.Background(), sampleConfirmation())
	assert.ErrorContains(t, err, "421 busy")

	msg := sampleConfirmation()
	msg.To = ""
	assert.Error(t, m.SendOrderConfirmation(context.Background(), msg))
}
