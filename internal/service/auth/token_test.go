package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/NgTrQuang/booking-vehicle/internal/domain/types"
	"github.com/NgTrQuang/booking-vehicle/pkg/uuid"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func validClaims(accountID uuid.UUID, role string) Claims {
	return Claims{
		UserID: accountID.String(),
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestVerify_ValidToken(t *testing.T) {
	v := NewTokenVerifier(testSecret)
	accountID := uuid.MustNew()

	identity, err := v.Verify(signToken(t, testSecret, validClaims(accountID, "DRIVER")))
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if identity.AccountID != accountID {
		t.Fatalf("account id mismatch")
	}
	if identity.Role != types.RoleDriver {
		t.Fatalf("expected DRIVER role, got %s", identity.Role)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	v := NewTokenVerifier(testSecret)

	_, err := v.Verify(signToken(t, "other-secret", validClaims(uuid.MustNew(), "PASSENGER")))
	if !errors.Is(err, types.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_ExpiredToken(t *testing.T) {
	v := NewTokenVerifier(testSecret)
	claims := validClaims(uuid.MustNew(), "PASSENGER")
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	_, err := v.Verify(signToken(t, testSecret, claims))
	if !errors.Is(err, types.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerify_UnknownRole(t *testing.T) {
	v := NewTokenVerifier(testSecret)

	_, err := v.Verify(signToken(t, testSecret, validClaims(uuid.MustNew(), "ADMIN")))
	if !errors.Is(err, types.ErrInvalidToken) {
		t.Fatalf("roles outside the pair must be refused, got %v", err)
	}
}

func TestVerify_Garbage(t *testing.T) {
	v := NewTokenVerifier(testSecret)

	if _, err := v.Verify("not-a-token"); !errors.Is(err, types.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
