package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/postertrack/backend/internal/rbac"
)

type Claims struct {
	UserID    uuid.UUID  `json:"user_id"`
	Role      rbac.Role  `json:"role"`
	CompanyID *uuid.UUID `json:"company_id,omitempty"`
	SessionID uuid.UUID  `json:"sid"`
	jwt.RegisteredClaims
}

// GenerateJWT signs claims with HS256. expiration <= 0 falls back to 24h.
// The token id (jti) is random so two logins in the same second never share a hash.
func GenerateJWT(secret, issuer string, claims Claims, expiration time.Duration) (string, time.Time, error) {
	if expiration <= 0 {
		expiration = 24 * time.Hour
	}

	now := time.Now()
	expiresAt := now.Add(expiration)
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   claims.UserID.String(),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func ParseJWT(secret, issuer, tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.UserID == uuid.Nil || claims.SessionID == uuid.Nil {
		return nil, fmt.Errorf("token is missing user or session")
	}
	return claims, nil
}
