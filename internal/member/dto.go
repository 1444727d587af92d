package member

// CreateMemberRequest represents the request to register a patron
type CreateMemberRequest struct {
	MemberCode string  `json:"member_code" validate:"required"`
	FullName   string  `json:"full_name" validate:"required"`
	Email      *string `json:"email,omitempty"`
	ActorID    *string `json:"actor_id,omitempty"`
}

// MemberResponse represents a member record in responses
type MemberResponse struct {
	ID         string  `json:"id"`
	LibraryID  string  `json:"library_id"`
	ActorID    *string `json:"actor_id,omitempty"`
	MemberCode string  `json:"member_code"`
	FullName   string  `json:"full_name"`
	Email      *string `json:"email,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

// ToResponse converts a MemberRecord model to a MemberResponse DTO
func (m *MemberRecord) ToResponse() *MemberResponse {
	return &MemberResponse{
		ID:         m.ID,
		LibraryID:  m.LibraryID,
		ActorID:    m.ActorID,
		MemberCode: m.MemberCode,
		FullName:   m.FullName,
		Email:      m.Email,
		CreatedAt:  m.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
