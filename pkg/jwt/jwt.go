package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrMissingKey   = errors.New("signing key is required")
	ErrNoSubject    = errors.New("token has no subject")
)

// Claims represents platform user token claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID string   `json:"user_id,omitempty"`
	Roles  []string `json:"roles,omitempty"`
}

// SubjectID returns the user id carried by the claims, preferring the
// explicit user_id claim over the registered subject.
func (c *Claims) SubjectID() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

// Manager signs and validates HS256 platform tokens.
type Manager struct {
	key      []byte
	issuer   string
	duration time.Duration
}

// NewManager creates a new JWT manager.
func NewManager(secret, issuer string, duration time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, ErrMissingKey
	}
	if duration <= 0 {
		duration = time.Hour
	}
	return &Manager{
		key:      []byte(secret),
		issuer:   issuer,
		duration: duration,
	}, nil
}

// Issue creates a signed token for userID.
func (m *Manager) Issue(userID string, roles []string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.duration)),
		},
		UserID: userID,
		Roles:  roles,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
}

// ValidateToken validates a token and returns claims.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.key, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.SubjectID() == "" {
		return nil, ErrNoSubject
	}

	return claims, nil
}

// ParseUnverified decodes the payload segment without checking the
// signature or expiry. Only for local development tooling.
func ParseUnverified(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.SubjectID() == "" {
		return nil, ErrNoSubject
	}
	return claims, nil
}
