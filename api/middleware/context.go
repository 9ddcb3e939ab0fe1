package middleware

import "context"

type contextKey uint8

const (
	ctxCustomerID contextKey = iota + 1
	ctxRole
	ctxEmail
)

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

func withValue(ctx context.Context, key contextKey, value string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, value)
}

// CustomerIDFromContext returns the authenticated customer, or "" for guests.
func CustomerIDFromContext(ctx context.Context) string { return stringValue(ctx, ctxCustomerID) }

func RoleFromContext(ctx context.Context) string { return stringValue(ctx, ctxRole) }

// EmailFromContext returns the email claim of the bearer token, when present.
func EmailFromContext(ctx context.Context) string { return stringValue(ctx, ctxEmail) }

// WithCustomerID injects the authenticated customer into the context.
func WithCustomerID(ctx context.Context, customerID string) context.Context {
	return withValue(ctx, ctxCustomerID, customerID)
}

func WithRole(ctx context.Context, role string) context.Context {
	return withValue(ctx, ctxRole, role)
}

func withEmail(ctx context.Context, email string) context.Context {
	return withValue(ctx, ctxEmail, email)
}
