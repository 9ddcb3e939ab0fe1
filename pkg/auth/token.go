// Package auth verifies the HS256 access tokens the storefront's account
// service issues. MintAccessToken produces the same tokens for local tooling
// and tests.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// clockSkew tolerates small clock differences with the issuer.
const clockSkew = 30 * time.Second

var (
	signingMethod = jwt.SigningMethodHS256

	errNoSecret = errors.New("jwt secret is required")
)

// AccessTokenClaims is the token body: identity, role, expiry.
type AccessTokenClaims struct {
	CustomerID uuid.UUID          `json:"customer_id"`
	Email      string             `json:"email,omitempty"`
	Role       enums.CustomerRole `json:"role"`
	jwt.RegisteredClaims
}

func (c AccessTokenClaims) IsAdmin() bool {
	return c.Role == enums.CustomerRoleAdmin
}

// AccessTokenPayload is the input to MintAccessToken. A blank JTI gets a
// random one.
type AccessTokenPayload struct {
	CustomerID uuid.UUID
	Email      string
	Role       enums.CustomerRole
	JTI        string
}

// Verifier checks signature, issuer, expiry and identity claims.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(cfg config.JWTConfig) *Verifier {
	return &Verifier{
		secret: []byte(cfg.Secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{signingMethod.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockSkew),
		),
	}
}

func (v *Verifier) Verify(raw string) (*AccessTokenClaims, error) {
	if len(v.secret) == 0 {
		return nil, errNoSecret
	}
	claims := &AccessTokenClaims{}
	if _, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return v.secret, nil }); err != nil {
		return nil, err
	}
	switch {
	case claims.CustomerID == uuid.Nil:
		return nil, errors.New("token missing customer id")
	case !claims.Role.IsValid():
		return nil, fmt.Errorf("token carries invalid role %q", claims.Role)
	}
	return claims, nil
}

// ParseAccessToken is a one-off Verify.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	return NewVerifier(cfg).Verify(raw)
}

// MintAccessToken signs a token valid from now for cfg.ExpirationMinutes.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	switch {
	case cfg.Secret == "":
		return "", errNoSecret
	case cfg.Issuer == "":
		return "", errors.New("jwt issuer is required")
	case cfg.ExpirationMinutes <= 0:
		return "", errors.New("jwt expiration minutes must be positive")
	case payload.CustomerID == uuid.Nil:
		return "", errors.New("customer id is required")
	case !payload.Role.IsValid():
		return "", fmt.Errorf("invalid customer role %q", payload.Role)
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	claims := AccessTokenClaims{
		CustomerID: payload.CustomerID,
		Email:      strings.TrimSpace(payload.Email),
		Role:       payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute)),
			ID:        jti,
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}
