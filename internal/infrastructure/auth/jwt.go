// Package auth verifies the bearer tokens presented to the API.
package auth

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/propledger/backend/internal/infrastructure/config"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingSubject   = errors.New("missing subject in claims")
)

// Claims are the custom JWT claims of a dashboard session.
// PropertyIDs scopes the caller to properties; empty means all properties.
type Claims struct {
	jwt.RegisteredClaims
	Name        string   `json:"name,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	PropertyIDs []string `json:"property_ids,omitempty"`
}

// HasRole reports whether the token carries the role
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// CanAccessProperty reports whether the token is scoped to include the property
func (c *Claims) CanAccessProperty(propertyID string) bool {
	return len(c.PropertyIDs) == 0 || slices.Contains(c.PropertyIDs, propertyID)
}

// TokenVerifier checks HS256 tokens signed with the shared secret
type TokenVerifier struct {
	secret []byte
	issuer string
	leeway time.Duration
}

// NewTokenVerifier creates a new TokenVerifier
func NewTokenVerifier(cfg config.JWTConfig) *TokenVerifier {
	return &TokenVerifier{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		leeway: 30 * time.Second,
	}
}

// Verify parses the token and returns its claims
func (v *TokenVerifier) Verify(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		default:
			return nil, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	return claims, nil
}

// Sign creates a token for the claims. Used by tooling and tests; the dashboard's
// identity provider issues production tokens.
func (v *TokenVerifier) Sign(claims *Claims) (string, error) {
	if claims.Issuer == "" {
		claims.Issuer = v.issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
