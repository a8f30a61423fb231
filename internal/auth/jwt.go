// Package auth issues and checks the admin credentials guarding write routes.
//
// There are no user accounts: one operator password (stored as a bcrypt
// hash) is exchanged for a short-lived HS256 JWT, which is then sent as
// "Authorization: Bearer <token>".
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "plantkeeper"

	// AdminSubject is the subject of every token this service issues.
	AdminSubject = "admin"

	DefaultTokenTTL = time.Hour
)

var (
	ErrTokenExpired = errors.New("auth: token expired")
	ErrTokenInvalid = errors.New("auth: invalid token")
)

type TokenService struct {
	secret []byte
	now    func() time.Time
}

// NewTokenService rejects secrets shorter than 16 characters: HS256 is only
// as strong as its key.
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret), now: time.Now}, nil
}

// Generate signs a token for subject valid for ttl.
func (s *TokenService) Generate(subject string, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(ttl)

	c := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
		Issuer:    issuer,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, expires, nil
}

// Validate checks signature, algorithm, issuer and expiry and returns the subject.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenStr, &c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		// Pinning the method blocks "alg: none" and RS/HS confusion.
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !token.Valid || c.Subject == "" {
		return "", ErrTokenInvalid
	}
	return c.Subject, nil
}
