package auth

import "context"

// OtpProvider defines the interface for OTP operations
type OtpProvider interface {
	Issue(ctx context.Context, phone string) (code int, err error)
	Verify(ctx context.Context, phone string, code int) (bool, error)
}
