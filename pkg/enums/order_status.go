package enums

import "slices"

// OrderStatus is the order lifecycle state. pending is the only non-terminal state.
type OrderStatus string

const (
	OrderStatusPending     OrderStatus = "pending"
	OrderStatusPaid        OrderStatus = "paid"
	OrderStatusCanceled    OrderStatus = "canceled"
	OrderStatusChargedBack OrderStatus = "charged_back"
)

var orderStatuses = []OrderStatus{OrderStatusPending, OrderStatusPaid, OrderStatusCanceled, OrderStatusChargedBack}

func (s OrderStatus) String() string { return string(s) }

func (s OrderStatus) IsValid() bool {
	return slices.Contains(orderStatuses, s)
}

// IsTerminal reports whether no transition may leave s.
func (s OrderStatus) IsTerminal() bool {
	return s.IsValid() && s != OrderStatusPending
}

// CanTransitionTo allows pending to any terminal state and nothing else.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	return s == OrderStatusPending && target.IsTerminal()
}

// PaymentStatus is the payment_status column value kept beside s.
func (s OrderStatus) PaymentStatus() PaymentStatus {
	return PaymentStatus(s)
}

func ParseOrderStatus(value string) (OrderStatus, error) {
	return parse(orderStatuses, "order status", value)
}
