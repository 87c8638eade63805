package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/frahmantamala/procurement/internal"
)

// Claims are issued by the external identity provider. Subject carries the
// user id; OrganizationID is optional and only used when the user record
// has none.
type Claims struct {
	UserID         string `json:"user_id"`
	Email          string `json:"email"`
	OrganizationID string `json:"organization_id,omitempty"`
	jwt.RegisteredClaims
}

// Principal returns the user id, preferring the explicit claim over the subject.
func (c *Claims) Principal() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// RS256Validator checks tokens signed with the provider's private key.
type RS256Validator struct {
	publicKey *rsa.PublicKey
	issuer    string
	leeway    time.Duration
}

func NewRS256Validator(publicKey *rsa.PublicKey, issuer string) *RS256Validator {
	return &RS256Validator{publicKey: publicKey, issuer: issuer, leeway: 30 * time.Second}
}

func (v *RS256Validator) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.publicKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Principal() == "" {
		return nil, internal.ErrInvalidToken
	}
	return claims, nil
}
