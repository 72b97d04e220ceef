// Package tests holds database-backed tests that run both services over httptest.
package tests

import (
	"context"
	"database/sql"
	"fmt"
)

// InternalAPIKey is the shared service key used by the test servers.
const InternalAPIKey = "test-internal-key"

// TruncateTables clears customers, OTP challenges and ledger entries for a clean test state.
func TruncateTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, "TRUNCATE TABLE ledger_entries, otp_challenges, customers RESTART IDENTITY CASCADE")
	if err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}
