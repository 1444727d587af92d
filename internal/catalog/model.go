// Package catalog holds the global, tenant-shared book editions. Reads are
// public; writes need catalog access from any library.
package catalog

import "time"

// BookEdition is one published edition of a work
type BookEdition struct {
	ID            string    `json:"id"`
	ISBN          *string   `json:"isbn,omitempty"`
	Title         string    `json:"title"`
	Authors       []string  `json:"authors"`
	Publisher     *string   `json:"publisher,omitempty"`
	PublishedYear *int      `json:"published_year,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
