package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestJWTAuthorizer(t *testing.T) {
	a := NewJWTAuthorizer(testSecret, "clinicq")

	admin, err := a.IssueToken("u-1", []string{RoleAdmin}, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	reception, _ := a.IssueToken("u-2", []string{RoleReceptionist}, time.Hour)
	expired, _ := a.IssueToken("u-3", []string{RoleAdmin}, -time.Minute)

	other := NewJWTAuthorizer(testSecret, "someone-else")
	foreign, _ := other.IssueToken("u-4", []string{RoleAdmin}, time.Hour)

	tests := []struct {
		name    string
		token   string
		roles   []string
		wantErr error
	}{
		{"admin on admin route", admin, []string{RoleAdmin}, nil},
		{"admin on reception route", admin, []string{RoleReceptionist, RoleAdmin}, nil},
		{"receptionist on admin route", reception, []string{RoleAdmin}, ErrForbidden},
		{"expired token", expired, []string{RoleAdmin}, ErrUnauthenticated},
		{"wrong issuer", foreign, []string{RoleAdmin}, ErrUnauthenticated},
		{"empty token", "", []string{RoleAdmin}, ErrUnauthenticated},
		{"garbage", "not.a.jwt", []string{RoleAdmin}, ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Authorize(context.Background(), tt.token, tt.roles...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Authorize() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestJWTAuthorizerRejectsOtherAlgorithms(t *testing.T) {
	a := NewJWTAuthorizer(testSecret, "")
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		Roles:            []string{RoleAdmin},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := a.Authorize(context.Background(), token, RoleAdmin); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("HS512 token accepted, error = %v", err)
	}
}

func TestJWTAuthorizerWithoutSecret(t *testing.T) {
	a := NewJWTAuthorizer("", "")
	if _, err := a.IssueToken("u", nil, time.Hour); err == nil {
		t.Error("IssueToken() should fail without a secret")
	}
	if _, err := a.Authorize(context.Background(), "anything", RoleAdmin); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("Authorize() error = %v", err)
	}
}
