package authz

import "strings"

// Role is a staff member's standing in one library. Roles are totally
// ordered: owner > manager > librarian > volunteer.
type Role string

const (
	RoleNone      Role = ""
	RoleOwner     Role = "owner"
	RoleManager   Role = "manager"
	RoleLibrarian Role = "librarian"
	RoleVolunteer Role = "volunteer"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// Valid reports whether r is one of the four staff roles.
func (r Role) Valid() bool {
	return r.Rank() > 0
}

// Rank orders roles; RoleNone ranks 0.
func (r Role) Rank() int {
	switch r {
	case RoleOwner:
		return 4
	case RoleManager:
		return 3
	case RoleLibrarian:
		return 2
	case RoleVolunteer:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether r ranks at or above other.
func (r Role) AtLeast(other Role) bool {
	return r.Rank() >= other.Rank() && r != RoleNone
}

// Permission is a capability checked against a library-scoped role.
type Permission string

const (
	PermManageStaffRoles Permission = "manage_staff_roles"
	PermDeleteLibrary    Permission = "delete_library"
	PermManageStaff      Permission = "manage_staff"
	PermRestore          Permission = "restore"
	PermManageSettings   Permission = "manage_settings"
	PermManageInventory  Permission = "manage_inventory"
	PermManageMembers    Permission = "manage_members"
	PermManageFees       Permission = "manage_fees"
	PermCirculation      Permission = "circulation"
)

// minimumRole is the floor for each permission. Owner holds everything,
// manager everything except staff-role management and tenant deletion,
// librarian the catalog/inventory/member/circulation set, volunteer
// circulation only.
var minimumRole = map[Permission]Role{
	PermManageStaffRoles: RoleOwner,
	PermDeleteLibrary:    RoleOwner,
	PermManageStaff:      RoleManager,
	PermRestore:          RoleManager,
	PermManageSettings:   RoleManager,
	PermManageInventory:  RoleLibrarian,
	PermManageMembers:    RoleLibrarian,
	PermManageFees:       RoleLibrarian,
	PermCirculation:      RoleVolunteer,
}

// Can reports whether r carries permission p.
func (r Role) Can(p Permission) bool {
	floor, ok := minimumRole[p]
	if !ok {
		return false
	}
	return r.AtLeast(floor)
}

// catalogRoles may write the shared catalog from a membership in any library.
var catalogRoles = []Role{RoleOwner, RoleManager, RoleLibrarian}

// Actor is the authenticated platform identity making a request.
type Actor struct {
	ID            string `json:"id"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

// Anonymous reports whether no identity was supplied.
func (a Actor) Anonymous() bool {
	return strings.TrimSpace(a.ID) == ""
}

// Membership is a live staff membership joined with its library's status.
type Membership struct {
	ID            string `json:"id"`
	LibraryID     string `json:"library_id"`
	ActorID       string `json:"actor_id"`
	Role          Role   `json:"role"`
	IsActive      bool   `json:"is_active"`
	LibraryStatus string `json:"library_status"`
}

// EffectiveRole applies the activity rules: an inactive membership grants
// nothing, and a library that is not active is closed to everyone but its
// owners.
func (m *Membership) EffectiveRole() Role {
	if m == nil || !m.IsActive {
		return RoleNone
	}
	if m.LibraryStatus != "active" && m.Role != RoleOwner {
		return RoleNone
	}
	return m.Role
}
