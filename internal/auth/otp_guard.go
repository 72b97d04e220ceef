package auth

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gsmwallet/server/internal/clock"
	"github.com/gsmwallet/server/internal/model"
	"github.com/gsmwallet/server/internal/repo"
)

const (
	DefaultChallengeTTL = 5 * time.Minute
	DefaultMaxAttempts  = 3
)

// OtpGuard issues and verifies one-time codes. Each phone number moves through
// no challenge, active, then verified, expired or blocked. Only the latest challenge counts.
type OtpGuard struct {
	otpRepo     repo.OtpRepo
	clock       clock.Clock
	codes       clock.CodeSource
	ttl         time.Duration
	maxAttempts int
}

// GuardOption customises an OtpGuard.
type GuardOption func(*OtpGuard)

// WithClock overrides the time source.
func WithClock(c clock.Clock) GuardOption {
	return func(g *OtpGuard) { g.clock = c }
}

// WithCodeSource overrides code generation.
func WithCodeSource(src clock.CodeSource) GuardOption {
	return func(g *OtpGuard) { g.codes = src }
}

// WithChallengeTTL sets how long an issued code stays valid.
func WithChallengeTTL(ttl time.Duration) GuardOption {
	return func(g *OtpGuard) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// WithMaxAttempts sets the wrong-code count that blocks a challenge.
func WithMaxAttempts(n int) GuardOption {
	return func(g *OtpGuard) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// NewOtpGuard creates a new OTP guard
func NewOtpGuard(otpRepo repo.OtpRepo, opts ...GuardOption) *OtpGuard {
	g := &OtpGuard{
		otpRepo:     otpRepo,
		clock:       clock.System,
		codes:       clock.RandomCode,
		ttl:         DefaultChallengeTTL,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Issue creates a fresh challenge for phone, superseding any earlier one, and returns its code.
func (g *OtpGuard) Issue(ctx context.Context, phone string) (int, error) {
	challenge := &model.OtpChallenge{
		PhoneNumber: phone,
		Code:        g.codes(),
		ExpiresAt:   g.clock.Now().Add(g.ttl),
	}
	if err := g.otpRepo.Create(ctx, challenge); err != nil {
		return 0, fmt.Errorf("create challenge: %w", err)
	}
	log.Printf("level=info component=otp_guard msg=\"challenge issued\" phone=%s expires_at=%s", MaskPhone(phone), challenge.ExpiresAt.Format(time.RFC3339))
	return challenge.Code, nil
}

// Verify checks code against the latest challenge for phone. Checks run in a fixed order:
// missing or blocked, then expired, then code. A wrong code counts as an attempt and
// returns (false, nil); reaching the attempt cap blocks the challenge.
func (g *OtpGuard) Verify(ctx context.Context, phone string, code int) (bool, error) {
	verified := false
	err := g.otpRepo.WithLatest(ctx, phone, func(c *model.OtpChallenge) (bool, error) {
		if c == nil || c.Blocked {
			return false, ErrVerificationLimitExceeded
		}
		if c.ExpiresAt.Before(g.clock.Now()) {
			return false, ErrVerificationTimedOut
		}
		if c.Code == code {
			verified = true
			return false, nil
		}

		c.AttemptCount++
		if c.AttemptCount >= g.maxAttempts {
			c.AttemptCount = g.maxAttempts
			c.Blocked = true
			log.Printf("level=warn component=otp_guard msg=\"challenge blocked\" phone=%s attempts=%d", MaskPhone(phone), c.AttemptCount)
		}
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return verified, nil
}
