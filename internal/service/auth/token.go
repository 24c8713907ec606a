package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/NgTrQuang/booking-vehicle/internal/domain/models"
	"github.com/NgTrQuang/booking-vehicle/internal/domain/types"
	"github.com/NgTrQuang/booking-vehicle/pkg/uuid"
)

// Claims is the access token payload issued by the account service.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier validates HS256 access tokens presented at the websocket
// handshake and maps them to an Identity.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify parses and validates the token. Expired, malformed or wrongly
// signed tokens all come back as ErrInvalidToken, as does any role outside
// the PASSENGER/DRIVER pair.
func (v *TokenVerifier) Verify(tokenString string) (*models.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, types.ErrInvalidToken
	}

	accountID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, types.ErrInvalidToken
	}

	role := types.Role(claims.Role)
	if role != types.RolePassenger && role != types.RoleDriver {
		return nil, types.ErrInvalidToken
	}

	return &models.Identity{AccountID: accountID, Role: role}, nil
}
