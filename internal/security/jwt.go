package security

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWT validation errors.
var (
	// ErrInvalidToken indicates a token is malformed or fails validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken indicates a token has expired.
	ErrExpiredToken = errors.New("token expired")
)

// artifactAudience scopes tokens to document downloads.
const artifactAudience = "giftspa-document"

// ArtifactClaims grant read access to one gift card document.
type ArtifactClaims struct {
	GiftCardID string `json:"gift_card_id"`
	jwt.RegisteredClaims
}

// GenerateArtifactToken signs a document download token for a gift card.
func GenerateArtifactToken(secret string, giftCardID string, expiry time.Duration) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("artifact secret is empty")
	}
	now := time.Now().UTC()
	claims := ArtifactClaims{
		GiftCardID: giftCardID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   giftCardID,
			Audience:  jwt.ClaimStrings{artifactAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseArtifactToken validates a document token and returns its claims.
func ParseArtifactToken(secret string, tokenString string) (*ArtifactClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ArtifactClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}, jwt.WithAudience(artifactAudience))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*ArtifactClaims)
	if !ok || !token.Valid || claims.GiftCardID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
