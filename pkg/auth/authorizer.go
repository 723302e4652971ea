// Package auth verifies bearer tokens for the staff-facing routes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin        = "admin"
	RoleReceptionist = "receptionist"
	RoleDoctor       = "doctor"
	RolePharmacist   = "pharmacist"
)

var (
	ErrUnauthenticated = errors.New("missing or invalid bearer token")
	ErrForbidden       = errors.New("caller lacks the required role")
)

// Principal is the verified caller behind a bearer token.
type Principal struct {
	Subject string
	Roles   []string
}

func (p Principal) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if slices.Contains(p.Roles, role) {
			return true
		}
	}
	return false
}

// Authorizer checks a bearer token against a set of acceptable roles.
type Authorizer interface {
	Authorize(ctx context.Context, bearerToken string, anyOf ...string) (Principal, error)
}

type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles"`
}

// JWTAuthorizer accepts HS256 tokens signed with a shared secret.
// An empty secret rejects every token.
type JWTAuthorizer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewJWTAuthorizer(secret, issuer string) *JWTAuthorizer {
	return &JWTAuthorizer{secret: []byte(secret), issuer: issuer, now: time.Now}
}

func (a *JWTAuthorizer) Authorize(_ context.Context, bearerToken string, anyOf ...string) (Principal, error) {
	if len(a.secret) == 0 || bearerToken == "" {
		return Principal{}, ErrUnauthenticated
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(bearerToken, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return Principal{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	p := Principal{Subject: claims.Subject, Roles: claims.Roles}
	if len(anyOf) > 0 && !p.HasAnyRole(anyOf...) {
		return p, ErrForbidden
	}
	return p, nil
}

// IssueToken signs a token for subject with roles. Used by clinicctl and tests.
func (a *JWTAuthorizer) IssueToken(subject string, roles []string, ttl time.Duration) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("no signing secret configured")
	}
	now := a.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Roles: roles,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}
