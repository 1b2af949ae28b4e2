package models

import (
	"fmt"
	"strings"
	"time"
)

// Role is a user's privilege level.
type Role string

const (
	RoleUser       Role = "user"
	RoleModerator  Role = "moderator"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Rank orders roles; higher means more privileged. Unknown roles rank below user.
func (r Role) Rank() int {
	switch r {
	case RoleUser:
		return 1
	case RoleModerator:
		return 2
	case RoleAdmin:
		return 3
	case RoleSuperAdmin:
		return 4
	}
	return 0
}

// AtLeast reports whether r is as privileged as other.
func (r Role) AtLeast(other Role) bool { return r.Rank() >= other.Rank() }

// IsAdmin reports whether r is admin or super admin.
func (r Role) IsAdmin() bool { return r.AtLeast(RoleAdmin) }

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if r.Rank() == 0 {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// User is an account that owns posts and holds a role.
type User struct {
	ID              string    `json:"id" bson:"_id"`
	Email           string    `json:"email" bson:"email"`
	DisplayName     string    `json:"display_name" bson:"display_name"`
	Role            Role      `json:"role" bson:"role"`
	NotifyOnPublish bool      `json:"notify_on_publish" bson:"notify_on_publish"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
}

// Actor is the already-authenticated caller of an operation.
type Actor struct {
	ID    string
	Email string
	Role  Role
}

// ActorFor builds an Actor from a stored user.
func ActorFor(u *User) Actor {
	return Actor{ID: u.ID, Email: u.Email, Role: u.Role}
}

// RequestStatus is the state of an AdminRoleRequest.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// AdminRoleRequest stands in for a role change that needs a super admin's approval.
type AdminRoleRequest struct {
	ID                string        `json:"id" bson:"_id"`
	TargetUserID      string        `json:"target_user_id" bson:"target_user_id"`
	TargetEmail       string        `json:"target_email" bson:"target_email"`
	TargetDisplayName string        `json:"target_display_name" bson:"target_display_name"`
	RequestedRole     Role          `json:"requested_role" bson:"requested_role"`
	CurrentRole       Role          `json:"current_role" bson:"current_role"`
	RequesterID       string        `json:"requester_id" bson:"requester_id"`
	RequesterEmail    string        `json:"requester_email" bson:"requester_email"`
	Reason            string        `json:"reason,omitempty" bson:"reason"`
	Status            RequestStatus `json:"status" bson:"status"`
	CreatedAt         time.Time     `json:"created_at" bson:"created_at"`
	ProcessedAt       *time.Time    `json:"processed_at,omitempty" bson:"processed_at"`
	ProcessedBy       string        `json:"processed_by,omitempty" bson:"processed_by"`
}
