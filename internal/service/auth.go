package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/plantkeeper/internal/apperror"
	"github.com/sakif/plantkeeper/internal/auth"
)

// AuthService exchanges the operator password for an admin token.
//
//	AuthHandler (HTTP) → AuthService → PasswordService (bcrypt)
//	                                 ↘ TokenService (JWT)
type AuthService struct {
	tokens       *auth.TokenService
	passwords    *auth.PasswordService
	passwordHash string
	ttl          time.Duration
	logger       *slog.Logger
}

func NewAuthService(
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	passwordHash string,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		tokens:       tokens,
		passwords:    passwords,
		passwordHash: passwordHash,
		ttl:          auth.DefaultTokenTTL,
		logger:       logger,
	}
}

// Token is an issued admin credential.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Login checks password against the configured hash and issues a token.
// Every failure, including "no password configured", looks the same to the caller.
func (s *AuthService) Login(password string) (*Token, error) {
	if s.passwordHash == "" {
		s.logger.Warn("admin login attempted but ADMIN_PASSWORD_HASH is not set")
		return nil, apperror.Unauthorized("invalid credentials")
	}
	if err := s.passwords.Verify(s.passwordHash, password); err != nil {
		if !errors.Is(err, auth.ErrInvalidPassword) {
			s.logger.Error("admin password check failed", slog.String("error", err.Error()))
		} else {
			s.logger.Warn("admin login rejected")
		}
		return nil, apperror.Unauthorized("invalid credentials")
	}

	signed, expires, err := s.tokens.Generate(auth.AdminSubject, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token: %w", err)
	}
	s.logger.Info("admin token issued", slog.Time("expires_at", expires))
	return &Token{AccessToken: signed, TokenType: "Bearer", ExpiresAt: expires}, nil
}
