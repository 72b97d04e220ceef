package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gsmwallet/server/internal/clock"
)

// DefaultTokenTTL is the lifetime of a bearer token.
const DefaultTokenTTL = time.Hour

// TokenService mints and validates HS256 bearer tokens whose subject is the phone number.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

// NewTokenService creates a new token service
func NewTokenService(secret string, ttl time.Duration, c clock.Clock) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if c == nil {
		c = clock.System
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		clock:  c,
	}
}

// Mint creates a token for phone expiring after the configured TTL.
func (s *TokenService) Mint(phone string) (string, error) {
	now := s.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:   phone,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

func (s *TokenService) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return s.secret, nil
}

// Validate returns ErrInvalidToken when the token is expired, unparseable or not signed with our secret.
func (s *TokenService) Validate(tokenString string) error {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc,
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

// Subject returns the token's subject, or "" when the token cannot be read.
func (s *TokenService) Subject(tokenString string) string {
	claims := &jwt.RegisteredClaims{}
	if _, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc, jwt.WithoutClaimsValidation()); err != nil {
		return ""
	}
	return claims.Subject
}
