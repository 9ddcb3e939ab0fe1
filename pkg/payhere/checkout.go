package payhere

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// CheckoutItem is the display data the hosted form needs per line.
type CheckoutItem struct {
	Name     string
	Quantity int
}

type CheckoutCustomer struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

type CheckoutAddress struct {
	Street1 string
	Street2 string
	City    string
	Country string
}

// CheckoutRequest describes one hosted checkout.
type CheckoutRequest struct {
	OrderRef string
	Items    []CheckoutItem
	Amount   decimal.Decimal
	Currency string
	Customer CheckoutCustomer
	Address  CheckoutAddress
}

// RedirectPayload carries the fields the client posts to the hosted checkout form.
type RedirectPayload struct {
	CheckoutURL string `json:"checkout_url"`
	MerchantID  string `json:"merchant_id"`
	ReturnURL   string `json:"return_url"`
	CancelURL   string `json:"cancel_url"`
	NotifyURL   string `json:"notify_url"`
	OrderID     string `json:"order_id"`
	Items       string `json:"items"`
	Currency    string `json:"currency"`
	Amount      string `json:"amount"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	City        string `json:"city"`
	Country     string `json:"country"`
	Hash        string `json:"hash"`
}

// BuildRedirectPayload signs req for the configured merchant.
func (c *Codec) BuildRedirectPayload(req CheckoutRequest) RedirectPayload {
	currency := strings.TrimSpace(req.Currency)
	if currency == "" {
		currency = c.cfg.Currency
	}
	return RedirectPayload{
		CheckoutURL: c.cfg.CheckoutURL(),
		MerchantID:  c.cfg.MerchantID,
		ReturnURL:   c.cfg.ReturnURL,
		CancelURL:   c.cfg.CancelURL,
		NotifyURL:   c.cfg.NotifyURL,
		OrderID:     req.OrderRef,
		Items:       ItemNames(req.Items),
		Currency:    currency,
		Amount:      FormatAmount(req.Amount),
		FirstName:   req.Customer.FirstName,
		LastName:    req.Customer.LastName,
		Email:       req.Customer.Email,
		Phone:       req.Customer.Phone,
		Address:     joinAddress(req.Address.Street1, req.Address.Street2),
		City:        req.Address.City,
		Country:     req.Address.Country,
		Hash:        c.OutboundHash(req.OrderRef, req.Amount, currency),
	}
}

// FormValues renders the payload as the hosted form expects it.
func (p RedirectPayload) FormValues() url.Values {
	values := url.Values{}
	values.Set("merchant_id", p.MerchantID)
	values.Set("return_url", p.ReturnURL)
	values.Set("cancel_url", p.CancelURL)
	values.Set("notify_url", p.NotifyURL)
	values.Set("order_id", p.OrderID)
	values.Set("items", p.Items)
	values.Set("currency", p.Currency)
	values.Set("amount", p.Amount)
	values.Set("first_name", p.FirstName)
	values.Set("last_name", p.LastName)
	values.Set("email", p.Email)
	values.Set("phone", p.Phone)
	values.Set("address", p.Address)
	values.Set("city", p.City)
	values.Set("country", p.Country)
	values.Set("hash", p.Hash)
	return values
}

// ItemNames concatenates the display names of the items.
func ItemNames(items []CheckoutItem) string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

func joinAddress(lines ...string) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, ", ")
}
