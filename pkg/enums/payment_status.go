package enums

// PaymentStatus shares its values with OrderStatus; the two columns move
// together.
type PaymentStatus string

const (
	PaymentStatusPending     = PaymentStatus(OrderStatusPending)
	PaymentStatusPaid        = PaymentStatus(OrderStatusPaid)
	PaymentStatusCanceled    = PaymentStatus(OrderStatusCanceled)
	PaymentStatusChargedBack = PaymentStatus(OrderStatusChargedBack)
)

func (p PaymentStatus) String() string { return string(p) }

func (p PaymentStatus) IsValid() bool {
	return OrderStatus(p).IsValid()
}

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	s, err := parse(orderStatuses, "payment status", value)
	return PaymentStatus(s), err
}
