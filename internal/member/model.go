package member

import (
	"time"

	"github.com/fkhayef/librarycore/internal/softdelete"
)

// MemberRecord is a library's patron. ActorID is nil for walk-in patrons
// with no platform identity.
type MemberRecord struct {
	ID         string    `json:"id"`
	LibraryID  string    `json:"library_id"`
	ActorID    *string   `json:"actor_id,omitempty"`
	MemberCode string    `json:"member_code"`
	FullName   string    `json:"full_name"`
	Email      *string   `json:"email,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	softdelete.Tombstone
}
