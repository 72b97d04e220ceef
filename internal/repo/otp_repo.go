package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gsmwallet/server/internal/model"
)

// ChallengeFunc inspects the latest challenge for a phone (nil when none exists)
// and reports whether its mutated state must be written back.
type ChallengeFunc func(c *model.OtpChallenge) (persist bool, err error)

// OtpRepo defines the interface for OTP challenge repository operations
type OtpRepo interface {
	Create(ctx context.Context, c *model.OtpChallenge) error
	WithLatest(ctx context.Context, phone string, fn ChallengeFunc) error
}

type otpRepo struct {
	db *sql.DB
}

// NewOtpRepo creates a new OtpRepo instance
func NewOtpRepo(db *sql.DB) OtpRepo {
	return &otpRepo{db: db}
}

// lockPhone serialises all challenge work for one phone until the transaction ends.
func lockPhone(ctx context.Context, tx *sql.Tx, phone string) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(1, hashtext($1))`, phone); err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	return nil
}

// Create appends a new challenge. Older challenges stay in place and are superseded by creation order.
func (r *otpRepo) Create(ctx context.Context, c *model.OtpChallenge) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := lockPhone(ctx, tx, c.PhoneNumber); err != nil {
		return err
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO otp_challenges (phone_number, code, expires_at, attempt_count, blocked)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, c.PhoneNumber, c.Code, c.ExpiresAt, c.AttemptCount, c.Blocked).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert challenge: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// WithLatest runs fn against the latest challenge for phone while holding the phone's
// advisory lock and a row lock. fn's error is returned after any requested write is committed.
func (r *otpRepo) WithLatest(ctx context.Context, phone string, fn ChallengeFunc) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := lockPhone(ctx, tx, phone); err != nil {
		return err
	}

	var c model.OtpChallenge
	err = tx.QueryRowContext(ctx, `
		SELECT id, phone_number, code, expires_at, attempt_count, blocked, created_at, updated_at
		FROM otp_challenges
		WHERE phone_number = $1
		ORDER BY seq DESC
		LIMIT 1
		FOR UPDATE
	`, phone).Scan(
		&c.ID,
		&c.PhoneNumber,
		&c.Code,
		&c.ExpiresAt,
		&c.AttemptCount,
		&c.Blocked,
		&c.CreatedAt,
		&c.UpdatedAt,
	)

	var latest *model.OtpChallenge
	switch {
	case err == nil:
		latest = &c
	case errors.Is(err, sql.ErrNoRows):
	default:
		return fmt.Errorf("query latest challenge: %w", err)
	}

	persist, fnErr := fn(latest)
	if persist && latest != nil {
		_, err = tx.ExecContext(ctx, `
			UPDATE otp_challenges
			SET attempt_count = $2, blocked = $3, updated_at = now()
			WHERE id = $1
		`, latest.ID, latest.AttemptCount, latest.Blocked)
		if err != nil {
			return fmt.Errorf("update challenge: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
	}
	return fnErr
}
