package library

import "time"

// Status is a library's tenant lifecycle state
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusPending  Status = "pending"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusPending:
		return true
	}
	return false
}

// Settings are the per-library circulation parameters
type Settings struct {
	LoanPeriodDays int     `json:"loan_period_days"`
	MaxRenewals    int     `json:"max_renewals"`
	LateFeeRate    float64 `json:"late_fee_rate"`
}

// Validate checks settings bounds
func (s Settings) Validate() bool {
	return s.LoanPeriodDays > 0 && s.MaxRenewals >= 0 && s.LateFeeRate >= 0
}

// Library is the tenant boundary
type Library struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	Settings  Settings  `json:"settings"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
