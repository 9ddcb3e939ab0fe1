package enums

import "slices"

// CustomerRole is the role claim of an access token.
type CustomerRole string

const (
	CustomerRoleCustomer CustomerRole = "customer"
	CustomerRoleAdmin    CustomerRole = "admin"
)

var customerRoles = []CustomerRole{CustomerRoleCustomer, CustomerRoleAdmin}

func (r CustomerRole) String() string { return string(r) }

func (r CustomerRole) IsValid() bool {
	return slices.Contains(customerRoles, r)
}

func ParseCustomerRole(value string) (CustomerRole, error) {
	return parse(customerRoles, "customer role", value)
}
