package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/propspace/marketplace/internal/core/domain"
	"github.com/propspace/marketplace/internal/core/ports"
)

const issuer = "propspace"

// accessClaims carries the principal, including its signup attributes, so
// a verified token is enough to rebuild the Principal.
type accessClaims struct {
	Email     string                  `json:"email"`
	Metadata  domain.SignupAttributes `json:"user_metadata"`
	SessionID string                  `json:"session_id"`
	jwt.RegisteredClaims
}

// JWTIssuer signs HS256 access tokens.
type JWTIssuer struct {
	secret []byte
}

func NewJWTIssuer(secret string) *JWTIssuer {
	return &JWTIssuer{secret: []byte(secret)}
}

func (i *JWTIssuer) Issue(p domain.Principal, sessionID string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := accessClaims{
		Email:     p.Email,
		Metadata:  p.SignupAttributes,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies signature, algorithm, issuer and expiry. Every failure is
// reported as domain.ErrInvalidToken.
func (i *JWTIssuer) Parse(token string) (*ports.AccessClaims, error) {
	var claims accessClaims
	tkn, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tkn.Valid {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.SessionID == "" {
		return nil, fmt.Errorf("%w: missing subject or session", domain.ErrInvalidToken)
	}
	return &ports.AccessClaims{
		Principal: domain.Principal{
			ID:               claims.Subject,
			Email:            claims.Email,
			SignupAttributes: claims.Metadata,
		},
		SessionID: claims.SessionID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
