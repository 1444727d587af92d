package staff

import (
	"time"

	"github.com/fkhayef/librarycore/internal/authz"
	"github.com/fkhayef/librarycore/internal/softdelete"
)

// StaffMembership ties an actor to a library with a role
type StaffMembership struct {
	ID        string     `json:"id"`
	LibraryID string     `json:"library_id"`
	ActorID   string     `json:"actor_id"`
	Role      authz.Role `json:"role"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	softdelete.Tombstone
}
