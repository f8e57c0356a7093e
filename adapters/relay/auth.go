package relay

import (
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AudienceRelay is the audience claim of relay auth tokens.
const AudienceRelay = "wss-relay"

// authTokenTTL bounds how long a handshake token stays valid.
const authTokenTTL = time.Hour

// AuthClaims are the claims of the token presented during the relay
// websocket handshake. The relay identifies the client by the subject and
// project pair.
type AuthClaims struct {
	jwt.RegisteredClaims
	ProjectID string `json:"prj"`
}

// NewAuthToken signs a relay auth token with the client's identity key.
func NewAuthToken(key *ecdsa.PrivateKey, relayURL, projectID string) (string, error) {
	now := time.Now()
	claims := AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			Issuer:    relayURL,
			Audience:  jwt.ClaimStrings{AudienceRelay},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(authTokenTTL)),
		},
		ProjectID: projectID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign relay auth token: %w", err)
	}
	return signed, nil
}

// ParseAuthToken verifies a relay auth token against the client public key.
func ParseAuthToken(tokenStr string, pub *ecdsa.PublicKey) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return pub, nil
	}, jwt.WithAudience(AudienceRelay))
	if err != nil {
		return nil, fmt.Errorf("failed to parse relay auth token: %w", err)
	}

	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid relay auth token")
	}
	return claims, nil
}
