package enums

import "slices"

// PaymentMethod is how the buyer settles: through the hosted gateway, or
// offline by cash on delivery or bank transfer.
type PaymentMethod string

const (
	PaymentMethodPayHere        PaymentMethod = "payhere"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentMethodBankTransfer   PaymentMethod = "bank_transfer"
)

var (
	offlineMethods = []PaymentMethod{PaymentMethodCashOnDelivery, PaymentMethodBankTransfer}
	paymentMethods = append([]PaymentMethod{PaymentMethodPayHere}, offlineMethods...)
)

func (p PaymentMethod) String() string { return string(p) }

func (p PaymentMethod) IsValid() bool {
	return slices.Contains(paymentMethods, p)
}

func (p PaymentMethod) IsOffline() bool {
	return slices.Contains(offlineMethods, p)
}

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return parse(paymentMethods, "payment method", value)
}
