package inventory

// CreateCopyRequest represents the request to add a copy
type CreateCopyRequest struct {
	EditionID string `json:"edition_id" validate:"required"`
	Barcode   string `json:"barcode" validate:"required"`
}

// SetStatusRequest changes a copy's administrative status
type SetStatusRequest struct {
	Status Status `json:"status" validate:"required"`
}

// CopyResponse represents a copy in responses
type CopyResponse struct {
	ID           string            `json:"id"`
	LibraryID    string            `json:"library_id"`
	EditionID    string            `json:"edition_id"`
	Barcode      string            `json:"barcode"`
	Status       Status            `json:"status"`
	Availability AvailabilityState `json:"availability"`
	CreatedAt    string            `json:"created_at"`
	UpdatedAt    string            `json:"updated_at"`
}

// ToResponse converts a Copy model to a CopyResponse DTO
func (c *Copy) ToResponse() *CopyResponse {
	return &CopyResponse{
		ID:           c.ID,
		LibraryID:    c.LibraryID,
		EditionID:    c.EditionID,
		Barcode:      c.Barcode,
		Status:       c.Status,
		Availability: c.Availability,
		CreatedAt:    c.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:    c.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
