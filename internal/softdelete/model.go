package softdelete

import "time"

// Tombstone carries the soft-delete fields shared by staff memberships,
// member records and copies. DeletedBy references the acting staff
// membership.
type Tombstone struct {
	IsDeleted bool       `json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	DeletedBy *string    `json:"deleted_by,omitempty"`
}

// Collection names a soft-deletable table
type Collection string

const (
	CollectionStaff   Collection = "staff"
	CollectionMembers Collection = "members"
	CollectionCopies  Collection = "copies"
)

// Record is a tombstoned row as shown in the restore listing
type Record struct {
	ID         string     `json:"id"`
	Collection Collection `json:"collection"`
	LibraryID  string     `json:"library_id"`
	Label      string     `json:"label"`
	Tombstone
}
