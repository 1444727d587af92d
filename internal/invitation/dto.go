package invitation

import (
	"github.com/fkhayef/librarycore/internal/member"
	"github.com/fkhayef/librarycore/internal/staff"
)

// IssueRequest represents the request to invite someone into a library
type IssueRequest struct {
	Email string `json:"email" validate:"required,email"`
	Type  Type   `json:"type" validate:"required"`
	Role  string `json:"role,omitempty"`
}

// IssueResult carries the raw token. It is only ever returned here.
type IssueResult struct {
	Invitation *Invitation `json:"invitation"`
	Token      string      `json:"token"`
}

// AcceptResult is the settled invitation and the record it created
type AcceptResult struct {
	Invitation *Invitation            `json:"invitation"`
	Staff      *staff.StaffMembership `json:"staff_membership,omitempty"`
	Member     *member.MemberRecord   `json:"member_record,omitempty"`
}
