// Package payhere implements the PayHere hosted-checkout protocol: request
// signing, notification verification and status-code mapping. Everything here
// is pure; merchant credentials are passed in explicitly.
package payhere

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatAmount renders an amount exactly as the gateway hashes it: two decimals,
// no grouping.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// BuildOutboundHash signs a checkout request.
func BuildOutboundHash(merchantID, orderRef string, amount decimal.Decimal, currency, merchantSecret string) string {
	return md5Upper(merchantID + orderRef + FormatAmount(amount) + currency + secretDigest(merchantSecret))
}

// VerifyInboundSignature recomputes the notification digest, which carries the
// status code ahead of the secret digest, and compares it to the supplied token.
// gatewayAmount is hashed as received.
func VerifyInboundSignature(merchantID, orderRef, gatewayAmount, gatewayCurrency, statusCode, suppliedToken, merchantSecret string) bool {
	supplied := strings.ToUpper(strings.TrimSpace(suppliedToken))
	if supplied == "" {
		return false
	}
	expected := inboundHash(merchantID, orderRef, gatewayAmount, gatewayCurrency, statusCode, merchantSecret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(supplied)) == 1
}

func inboundHash(merchantID, orderRef, gatewayAmount, gatewayCurrency, statusCode, merchantSecret string) string {
	return md5Upper(merchantID + orderRef + gatewayAmount + gatewayCurrency + statusCode + secretDigest(merchantSecret))
}

func secretDigest(secret string) string {
	return md5Upper(secret)
}

func md5Upper(value string) string {
	sum := md5.Sum([]byte(value))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
