package catalog

// EditionRequest creates or replaces edition metadata
type EditionRequest struct {
	ISBN          *string  `json:"isbn,omitempty"`
	Title         string   `json:"title" validate:"required"`
	Authors       []string `json:"authors"`
	Publisher     *string  `json:"publisher,omitempty"`
	PublishedYear *int     `json:"published_year,omitempty"`
}

// EditionResponse represents an edition in responses
type EditionResponse struct {
	ID            string   `json:"id"`
	ISBN          *string  `json:"isbn,omitempty"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Publisher     *string  `json:"publisher,omitempty"`
	PublishedYear *int     `json:"published_year,omitempty"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
}

// UpsertResponse reports whether an ISBN upsert created the edition
type UpsertResponse struct {
	Edition *EditionResponse `json:"edition"`
	Created bool             `json:"created"`
}

// ToResponse converts a BookEdition model to an EditionResponse DTO
func (e *BookEdition) ToResponse() *EditionResponse {
	authors := e.Authors
	if authors == nil {
		authors = []string{}
	}
	return &EditionResponse{
		ID:            e.ID,
		ISBN:          e.ISBN,
		Title:         e.Title,
		Authors:       authors,
		Publisher:     e.Publisher,
		PublishedYear: e.PublishedYear,
		CreatedAt:     e.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:     e.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
