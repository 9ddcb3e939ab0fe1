package payhere

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

// Codec binds the signing functions to one merchant account.
type Codec struct {
	cfg config.PayHereConfig
}

func NewCodec(cfg config.PayHereConfig) (*Codec, error) {
	if strings.TrimSpace(cfg.MerchantID) == "" {
		return nil, errors.New("payhere merchant id required")
	}
	if cfg.MerchantSecret == "" {
		return nil, errors.New("payhere merchant secret required")
	}
	if strings.TrimSpace(cfg.Currency) == "" {
		cfg.Currency = "LKR"
	}
	return &Codec{cfg: cfg}, nil
}

func (c *Codec) MerchantID() string {
	return c.cfg.MerchantID
}

func (c *Codec) Currency() string {
	return c.cfg.Currency
}

// OutboundHash signs a checkout for the configured merchant.
func (c *Codec) OutboundHash(orderRef string, amount decimal.Decimal, currency string) string {
	return BuildOutboundHash(c.cfg.MerchantID, orderRef, amount, currency, c.cfg.MerchantSecret)
}

// Verify checks a notification signature. Notifications addressed to another
// merchant never verify.
func (c *Codec) Verify(n Notification) bool {
	if strings.TrimSpace(n.MerchantID) != c.cfg.MerchantID {
		return false
	}
	return VerifyInboundSignature(n.MerchantID, n.OrderID, n.Amount, n.Currency, n.StatusCode, n.MD5Sig, c.cfg.MerchantSecret)
}

// Sign fills MD5Sig with the digest the gateway would send for n. Used to
// replay gateway notifications in tooling and tests.
func (c *Codec) Sign(n Notification) Notification {
	n.MD5Sig = inboundHash(n.MerchantID, n.OrderID, n.Amount, n.Currency, n.StatusCode, c.cfg.MerchantSecret)
	if n.Fields != nil {
		n.Fields[FieldMD5Sig] = n.MD5Sig
	}
	return n
}
