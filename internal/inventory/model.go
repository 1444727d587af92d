package inventory

import (
	"time"

	"github.com/fkhayef/librarycore/internal/softdelete"
)

// Status is a copy's administrative condition
type Status string

const (
	StatusActive      Status = "active"
	StatusInactive    Status = "inactive"
	StatusDamaged     Status = "damaged"
	StatusLost        Status = "lost"
	StatusMaintenance Status = "maintenance"
)

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusDamaged, StatusLost, StatusMaintenance:
		return true
	}
	return false
}

// Availability is driven by borrowing transactions only
type Availability string

const (
	Available Availability = "available"
	Borrowed  Availability = "borrowed"
)

// AvailabilityState is the nested availability block of a copy
type AvailabilityState struct {
	Status          Availability `json:"status"`
	CurrentBorrower *string      `json:"current_borrower,omitempty"`
	DueDate         *time.Time   `json:"due_date,omitempty"`
}

// Copy is one holdable unit of an edition owned by a library
type Copy struct {
	ID           string            `json:"id"`
	LibraryID    string            `json:"library_id"`
	EditionID    string            `json:"edition_id"`
	Barcode      string            `json:"barcode"`
	Status       Status            `json:"status"`
	Availability AvailabilityState `json:"availability"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	softdelete.Tombstone
}

// Borrowable reports whether a checkout may start on the copy
func (c *Copy) Borrowable() bool {
	return !c.IsDeleted && c.Status == StatusActive && c.Availability.Status == Available
}
