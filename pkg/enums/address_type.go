package enums

// AddressType discriminates the two addresses owned by an order.
type AddressType string

const (
	AddressTypeShipping AddressType = "shipping"
	AddressTypeBilling  AddressType = "billing"
)

func (a AddressType) IsValid() bool {
	return a == AddressTypeShipping || a == AddressTypeBilling
}
