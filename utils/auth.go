package utils

import (
	"fmt"

	"social-publisher/models"

	"github.com/bwmarrin/discordgo"
)

// Auth maps Discord users onto moderation permission levels.
type Auth struct {
	config models.CommandsConfig
}

// NewAuth creates a new Auth instance from the commands configuration.
func NewAuth(cfg models.CommandsConfig) *Auth {
	return &Auth{config: cfg}
}

// IsDeveloper checks if a user is a developer.
func (a *Auth) IsDeveloper(userID string) bool {
	return contains(a.config.Auth.Developers, userID)
}

// IsModerator checks if a user is listed as a moderator.
func (a *Auth) IsModerator(userID string) bool {
	return contains(a.config.Auth.Moderators, userID)
}

// IsAdmin checks if a member has an admin role.
func (a *Auth) IsAdmin(member *discordgo.Member) bool {
	if member == nil {
		return false
	}
	for _, adminRoleID := range a.config.Auth.AdminsRoles {
		if contains(member.Roles, adminRoleID) {
			return true
		}
	}
	return false
}

// RoleOf resolves the application role of a Discord member.
func (a *Auth) RoleOf(member *discordgo.Member) models.Role {
	if member == nil || member.User == nil {
		return models.RoleUser
	}
	switch {
	case a.IsDeveloper(member.User.ID):
		return models.RoleSuperAdmin
	case a.IsAdmin(member):
		return models.RoleAdmin
	case a.IsModerator(member.User.ID):
		return models.RoleModerator
	}
	return models.RoleUser
}

// ActorFor builds the moderation actor for an interaction. Discord users act
// under a "discord:" prefixed identity.
func (a *Auth) ActorFor(i *discordgo.InteractionCreate) models.Actor {
	member := i.Member
	if member == nil || member.User == nil {
		return models.Actor{Role: models.RoleUser}
	}
	return models.Actor{
		ID:    "discord:" + member.User.ID,
		Email: member.User.Username,
		Role:  a.RoleOf(member),
	}
}

// CheckPermission checks if the interaction's member has the required permission level.
func (a *Auth) CheckPermission(i *discordgo.InteractionCreate, requiredLevel string) bool {
	role := a.ActorFor(i).Role
	switch requiredLevel {
	case "developer":
		return role == models.RoleSuperAdmin
	case "admin":
		return role.AtLeast(models.RoleAdmin)
	case "moderator":
		return role.AtLeast(models.RoleModerator)
	case "guest":
		return true
	default:
		return false
	}
}

// RoleDecision is the outcome of checking a role change against the authorization matrix.
type RoleDecision int

const (
	DecisionDeny RoleDecision = iota
	// DecisionApply: the actor may change the role directly.
	DecisionApply
	// DecisionRequest: the change must go through an AdminRoleRequest.
	DecisionRequest
)

// DecideRoleChange applies the authorization matrix to actor setting target's role to requested.
//
//   - super admin accounts are never modified, and nobody may grant super admin
//   - a super admin may set any other account to any other role
//   - an admin may move non-admin accounts between non-admin roles; granting
//     admin becomes a request
//   - nobody else may change roles
func DecideRoleChange(actor, target, requested models.Role) (RoleDecision, error) {
	if requested.Rank() == 0 {
		return DecisionDeny, models.Invalid("role", "unknown role %q", requested)
	}
	if target == models.RoleSuperAdmin {
		return DecisionDeny, fmt.Errorf("super administrator accounts cannot be modified: %w", models.ErrForbidden)
	}
	if requested == models.RoleSuperAdmin {
		return DecisionDeny, fmt.Errorf("super administrator role cannot be granted: %w", models.ErrForbidden)
	}
	if target == requested {
		return DecisionDeny, models.Invalid("role", "user already has role %s", requested)
	}

	switch actor {
	case models.RoleSuperAdmin:
		return DecisionApply, nil
	case models.RoleAdmin:
		if target.IsAdmin() {
			return DecisionDeny, fmt.Errorf("administrators cannot modify other administrators: %w", models.ErrForbidden)
		}
		if requested.IsAdmin() {
			return DecisionRequest, nil
		}
		return DecisionApply, nil
	}
	return DecisionDeny, fmt.Errorf("role %s cannot change roles: %w", actor, models.ErrForbidden)
}

// CheckDelete applies the authorization matrix to actor deleting an account with role target.
func CheckDelete(actor, target models.Role) error {
	if target == models.RoleSuperAdmin {
		return fmt.Errorf("super administrator accounts cannot be deleted: %w", models.ErrForbidden)
	}
	switch actor {
	case models.RoleSuperAdmin:
		return nil
	case models.RoleAdmin:
		if target.IsAdmin() {
			return fmt.Errorf("administrators cannot delete other administrators: %w", models.ErrForbidden)
		}
		return nil
	}
	return fmt.Errorf("role %s cannot delete accounts: %w", actor, models.ErrForbidden)
}

// CanModerate reports whether role may approve or reject posts.
func CanModerate(role models.Role) bool {
	return role.AtLeast(models.RoleModerator)
}

// CanProcessRoleRequests reports whether role may approve or reject admin role requests.
func CanProcessRoleRequests(role models.Role) bool {
	return role == models.RoleSuperAdmin
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
