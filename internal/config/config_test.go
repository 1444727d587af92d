package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadFallsBackOnInvalidValues(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("PORT", "8080")
	t.Setenv("INVITATION_TTL", "not-a-duration")
	t.Setenv("DEFAULT_LOAN_PERIOD_DAYS", "abc")

	cfg := Load()
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 7*24*time.Hour, cfg.InvitationTTL)
	assert.Equal(t, 14, cfg.DefaultLoanPeriodDays)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite3")
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("INVITATION_TTL", "48h")
	t.Setenv("DEFAULT_LOAN_PERIOD_DAYS", "21")
	t.Setenv("DEFAULT_MAX_RENEWALS", "5")
	t.Setenv("DEFAULT_LATE_FEE_RATE", "0.5")

	cfg := Load()
	assert.Equal(t, "sqlite3", cfg.DatabaseDriver)
	assert.Equal(t, "file:test.db", cfg.DatabaseURL)
	assert.Equal(t, 48*time.Hour, cfg.InvitationTTL)
	assert.Equal(t, 21, cfg.DefaultLoanPeriodDays)
	assert.Equal(t, 5, cfg.DefaultMaxRenewals)
	assert.InDelta(t, 0.5, cfg.DefaultLateFeeRate, 1e-9)
}
