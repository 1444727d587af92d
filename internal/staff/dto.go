package staff

import "github.com/fkhayef/librarycore/internal/authz"

// ChangeRoleRequest represents the request to change a staff member's role
type ChangeRoleRequest struct {
	Role authz.Role `json:"role" validate:"required"`
}

// SetActiveRequest suspends or reactivates a membership
type SetActiveRequest struct {
	IsActive bool `json:"is_active"`
}

// StaffResponse represents a staff membership in responses
type StaffResponse struct {
	ID        string     `json:"id"`
	LibraryID string     `json:"library_id"`
	ActorID   string     `json:"actor_id"`
	Role      authz.Role `json:"role"`
	IsActive  bool       `json:"is_active"`
	CreatedAt string     `json:"created_at"`
}

// ToResponse converts a StaffMembership model to a StaffResponse DTO
func (m *StaffMembership) ToResponse() *StaffResponse {
	return &StaffResponse{
		ID:        m.ID,
		LibraryID: m.LibraryID,
		ActorID:   m.ActorID,
		Role:      m.Role,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
