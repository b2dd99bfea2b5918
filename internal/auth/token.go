// Package auth resolves bearer tokens into rbac principals.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/odyssey-erp/pressroom/internal/platform/httpx"
	"github.com/odyssey-erp/pressroom/internal/rbac"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = fmt.Errorf("%w: invalid bearer token", httpx.ErrUnauthorized)

// Claims is the JWT payload issued to pressroom clients.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 bearer tokens.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewVerifier builds a Verifier. An empty issuer disables the iss check.
func NewVerifier(secret, issuer string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("auth: jwt secret required")
	}
	return &Verifier{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// Verify parses raw and returns the principal it names.
func (v *Verifier) Verify(raw string) (rbac.Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !tok.Valid {
		return rbac.Principal{}, ErrInvalidToken
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return rbac.Principal{}, ErrInvalidToken
	}
	role, ok := rbac.ParseRole(claims.Role)
	if !ok {
		return rbac.Principal{}, ErrInvalidToken
	}
	return rbac.Principal{UserID: userID, Role: role}, nil
}

// Issuer signs tokens. Production tokens come from the identity service;
// this exists for local tooling and tests.
type Issuer struct {
	secret []byte
	issuer string
}

// NewIssuer builds an Issuer sharing the verifier's secret.
func NewIssuer(secret, issuer string) *Issuer {
	return &Issuer{secret: []byte(secret), issuer: issuer}
}

// Issue signs a token for p valid for ttl.
func (i *Issuer) Issue(p rbac.Principal, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		Role: string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.UserID, 10),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}
