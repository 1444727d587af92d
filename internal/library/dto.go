package library

import "github.com/fkhayef/librarycore/internal/staff"

// CreateLibraryRequest represents the request to register a library
type CreateLibraryRequest struct {
	Name     string    `json:"name" validate:"required"`
	Settings *Settings `json:"settings,omitempty"`
}

// UpdateSettingsRequest replaces a library's circulation settings
type UpdateSettingsRequest struct {
	LoanPeriodDays int     `json:"loan_period_days"`
	MaxRenewals    int     `json:"max_renewals"`
	LateFeeRate    float64 `json:"late_fee_rate"`
}

// SetStatusRequest changes a library's status
type SetStatusRequest struct {
	Status Status `json:"status" validate:"required"`
}

// LibraryResponse represents a library in responses
type LibraryResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Status    Status   `json:"status"`
	Settings  Settings `json:"settings"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

// CreateLibraryResponse carries the new library and its founding owner
type CreateLibraryResponse struct {
	Library *LibraryResponse     `json:"library"`
	Owner   *staff.StaffResponse `json:"owner"`
}

// ToResponse converts a Library model to a LibraryResponse DTO
func (l *Library) ToResponse() *LibraryResponse {
	return &LibraryResponse{
		ID:        l.ID,
		Name:      l.Name,
		Status:    l.Status,
		Settings:  l.Settings,
		CreatedAt: l.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: l.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
