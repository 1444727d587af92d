// Package circulation is the state machine for borrowing transactions. Each
// transition updates the transaction and its copy's availability in one
// database transaction, then appends an audit event.
package circulation

import (
	"encoding/json"
	"time"
)

// Status is a borrowing transaction's lifecycle state
type Status string

const (
	StatusActive    Status = "active"
	StatusReturned  Status = "returned"
	StatusOverdue   Status = "overdue"
	StatusLost      Status = "lost"
	StatusCancelled Status = "cancelled"
)

// Open reports whether the transaction still holds its copy
func (s Status) Open() bool {
	return s == StatusActive || s == StatusOverdue
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusReturned, StatusOverdue, StatusLost, StatusCancelled:
		return true
	}
	return false
}

// Transaction records one checkout lifecycle of one copy for one member
type Transaction struct {
	ID           string     `json:"id"`
	LibraryID    string     `json:"library_id"`
	CopyID       string     `json:"copy_id"`
	MemberID     string     `json:"member_id"`
	StaffID      string     `json:"staff_id"`
	RequestID    *string    `json:"request_id,omitempty"`
	Status       Status     `json:"status"`
	CheckoutDate time.Time  `json:"checkout_date"`
	DueDate      time.Time  `json:"due_date"`
	ReturnDate   *time.Time `json:"return_date,omitempty"`
	RenewalCount int        `json:"renewal_count"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// EventType names an audit entry
type EventType string

const (
	EventCheckout    EventType = "checkout"
	EventReturn      EventType = "return"
	EventOverdue     EventType = "overdue"
	EventLost        EventType = "lost"
	EventCancelled   EventType = "cancelled"
	EventRenewal     EventType = "renewal"
	EventFeeAssessed EventType = "fee_assessed"
	EventFeePaid     EventType = "fee_paid"
)

// Event is an append-only audit entry. Exactly one of the acting ids is set.
type Event struct {
	ID             string          `json:"id"`
	TransactionID  string          `json:"transaction_id"`
	Type           EventType       `json:"event_type"`
	ActingStaffID  *string         `json:"acting_staff_id,omitempty"`
	ActingMemberID *string         `json:"acting_member_id,omitempty"`
	Payload        json.RawMessage `json:"payload"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Party is who performed a transition: a staff membership or the borrowing
// member themself
type Party struct {
	StaffID  string
	MemberID string
}

// FeePayload is the payload of fee events
type FeePayload struct {
	Amount   float64 `json:"amount"`
	DaysLate int     `json:"days_late,omitempty"`
	Rate     float64 `json:"rate,omitempty"`
}

// FeeBalance sums assessed minus paid fees over a transaction's events
func FeeBalance(events []*Event) (assessed, paid float64) {
	for _, e := range events {
		if e.Type != EventFeeAssessed && e.Type != EventFeePaid {
			continue
		}
		var p FeePayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			continue
		}
		if e.Type == EventFeeAssessed {
			assessed += p.Amount
		} else {
			paid += p.Amount
		}
	}
	return assessed, paid
}
