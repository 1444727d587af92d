// Package invitation issues single-use tokens that bring an actor into a
// library as staff or as a member. Invitations move one way from pending
// to accepted, declined or expired, and every move leaves a response row.
package invitation

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/fkhayef/librarycore/internal/authz"
)

// Type is what accepting the invitation creates
type Type string

const (
	TypeStaff  Type = "staff"
	TypeMember Type = "member"
)

// Status is an invitation's lifecycle state
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
	StatusExpired  Status = "expired"
)

// Invitation is an outstanding or settled offer to join a library
type Invitation struct {
	ID             string      `json:"id"`
	LibraryID      string      `json:"library_id"`
	Email          string      `json:"email"`
	Role           *authz.Role `json:"role,omitempty"`
	Type           Type        `json:"type"`
	TokenHash      string      `json:"-"`
	Status         Status      `json:"status"`
	InvitedBy      string      `json:"invited_by"`
	InviterStaffID string      `json:"inviter_staff_id"`
	ExpiresAt      time.Time   `json:"expires_at"`
	CreatedAt      time.Time   `json:"created_at"`
	RespondedAt    *time.Time  `json:"responded_at,omitempty"`
}

// Stale reports whether a pending invitation has passed its expiry
func (i *Invitation) Stale(now time.Time) bool {
	return i.Status == StatusPending && !now.Before(i.ExpiresAt)
}

// Response is the audit row of a settled invitation. The created record
// ids are set only on acceptance.
type Response struct {
	ID                string    `json:"id"`
	InvitationID      string    `json:"invitation_id"`
	Response          Status    `json:"response"`
	ActorID           *string   `json:"actor_id,omitempty"`
	StaffMembershipID *string   `json:"staff_membership_id,omitempty"`
	MemberRecordID    *string   `json:"member_record_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

const tokenBytes = 32

// NewToken returns a random URL-safe token
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashToken is the form a token is stored and looked up by
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
