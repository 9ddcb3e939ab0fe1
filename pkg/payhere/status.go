package payhere

import (
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Gateway status codes reported in status_code.
const (
	StatusCodeSuccess     = "2"
	StatusCodePending     = "0"
	StatusCodeCanceled    = "-1"
	StatusCodeFailed      = "-2"
	StatusCodeChargedBack = "-3"
)

var statusByCode = map[string]enums.OrderStatus{
	StatusCodeSuccess:     enums.OrderStatusPaid,
	StatusCodePending:     enums.OrderStatusPending,
	StatusCodeCanceled:    enums.OrderStatusCanceled,
	StatusCodeFailed:      enums.OrderStatusCanceled,
	StatusCodeChargedBack: enums.OrderStatusChargedBack,
}

// MapStatusCode maps a gateway status code to the target order status. The
// second return is false for codes the gateway protocol does not define.
func MapStatusCode(code string) (enums.OrderStatus, bool) {
	status, ok := statusByCode[strings.TrimSpace(code)]
	if !ok {
		return enums.OrderStatusPending, false
	}
	return status, true
}
