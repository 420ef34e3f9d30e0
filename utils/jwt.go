package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails verification:
// bad signature, malformed payload, unexpected algorithm or expiry.
var ErrInvalidToken = errors.New("invalid token")

// Claims defines JWT claims used in the application.
type Claims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// SessionIssuer signs and verifies session tokens with a process-wide secret and a fixed TTL.
type SessionIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionIssuer creates an issuer; secret and ttl are read-only afterwards.
func NewSessionIssuer(secret string, ttl time.Duration) *SessionIssuer {
	return &SessionIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock returns a copy of the issuer that reads time from now.
func (s *SessionIssuer) WithClock(now func() time.Time) *SessionIssuer {
	cp := *s
	cp.now = now
	return &cp
}

// Issue mints a token for subjectID.
func (s *SessionIssuer) Issue(subjectID string) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: subjectID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify validates a token and returns its subject. Any failure yields ErrInvalidToken.
func (s *SessionIssuer) Verify(tokenStr string) (string, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	},
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid || claims.UserID == "" {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}
