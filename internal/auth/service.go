package auth

import (
	"context"
	"fmt"
	"log"
)

// AuthService orchestrates authentication operations
type AuthService struct {
	otpProvider  OtpProvider
	tokenService *TokenService
}

// NewAuthService creates a new auth service
func NewAuthService(otpProvider OtpProvider, tokenService *TokenService) *AuthService {
	return &AuthService{
		otpProvider:  otpProvider,
		tokenService: tokenService,
	}
}

// RequestOTP issues a new code for phone.
func (s *AuthService) RequestOTP(ctx context.Context, phone string) (int, error) {
	code, err := s.otpProvider.Issue(ctx, phone)
	if err != nil {
		return 0, fmt.Errorf("issue otp: %w", err)
	}
	return code, nil
}

// VerifyOTP verifies code for phone and returns a bearer token.
// Lockout and expiry errors pass through unchanged; a wrong code yields ErrInvalidOtpCode.
func (s *AuthService) VerifyOTP(ctx context.Context, phone string, code int) (string, error) {
	ok, err := s.otpProvider.Verify(ctx, phone, code)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrInvalidOtpCode
	}

	token, err := s.tokenService.Mint(phone)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	log.Printf("level=info component=auth msg=\"token issued\" phone=%s", MaskPhone(phone))
	return token, nil
}
