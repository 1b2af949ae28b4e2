package utils

import (
	"testing"

	"social-publisher/models"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecideRoleChange(t *testing.T) {
	cases := []struct {
		name      string
		actor     models.Role
		target    models.Role
		requested models.Role
		want      RoleDecision
		forbidden bool
		invalid   bool
	}{
		{"super grants admin", models.RoleSuperAdmin, models.RoleUser, models.RoleAdmin, DecisionApply, false, false},
		{"super revokes admin", models.RoleSuperAdmin, models.RoleAdmin, models.RoleUser, DecisionApply, false, false},
		{"super cannot touch super", models.RoleSuperAdmin, models.RoleSuperAdmin, models.RoleAdmin, DecisionDeny, true, false},
		{"nobody grants super", models.RoleSuperAdmin, models.RoleAdmin, models.RoleSuperAdmin, DecisionDeny, true, false},
		{"admin promotes user to moderator", models.RoleAdmin, models.RoleUser, models.RoleModerator, DecisionApply, false, false},
		{"admin demotes moderator", models.RoleAdmin, models.RoleModerator, models.RoleUser, DecisionApply, false, false},
		{"admin granting admin becomes request", models.RoleAdmin, models.RoleUser, models.RoleAdmin, DecisionRequest, false, false},
		{"admin cannot demote admin", models.RoleAdmin, models.RoleAdmin, models.RoleUser, DecisionDeny, true, false},
		{"admin cannot demote super", models.RoleAdmin, models.RoleSuperAdmin, models.RoleUser, DecisionDeny, true, false},
		{"moderator cannot change roles", models.RoleModerator, models.RoleUser, models.RoleModerator, DecisionDeny, true, false},
		{"unknown role", models.RoleSuperAdmin, models.RoleUser, models.Role("owner"), DecisionDeny, false, true},
		{"same role", models.RoleSuperAdmin, models.RoleUser, models.RoleUser, DecisionDeny, false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecideRoleChange(tc.actor, tc.target, tc.requested)
			assert.Equal(t, tc.want, got)
			switch {
			case tc.forbidden:
				assert.ErrorIs(t, err, models.ErrForbidden)
			case tc.invalid:
				assert.True(t, models.IsValidation(err), "expected validation error, got %v", err)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckDelete(t *testing.T) {
	assert.ErrorIs(t, CheckDelete(models.RoleSuperAdmin, models.RoleSuperAdmin), models.ErrForbidden)
	assert.ErrorIs(t, CheckDelete(models.RoleAdmin, models.RoleSuperAdmin), models.ErrForbidden)
	assert.ErrorIs(t, CheckDelete(models.RoleAdmin, models.RoleAdmin), models.ErrForbidden)
	assert.ErrorIs(t, CheckDelete(models.RoleModerator, models.RoleUser), models.ErrForbidden)
	assert.NoError(t, CheckDelete(models.RoleAdmin, models.RoleUser))
	assert.NoError(t, CheckDelete(models.RoleSuperAdmin, models.RoleAdmin))
}

func TestAuthRoleOf(t *testing.T) {
	auth := NewAuth(models.CommandsConfig{Auth: models.AuthConfig{
		Developers:  []string{"dev"},
		AdminsRoles: []string{"admin-role"},
		Moderators:  []string{"mod"},
	}})

	member := func(id string, roles ...string) *discordgo.Member {
		return &discordgo.Member{User: &discordgo.User{ID: id}, Roles: roles}
	}

	assert.Equal(t, models.RoleSuperAdmin, auth.RoleOf(member("dev")))
	assert.Equal(t, models.RoleAdmin, auth.RoleOf(member("someone", "admin-role")))
	assert.Equal(t, models.RoleModerator, auth.RoleOf(member("mod")))
	assert.Equal(t, models.RoleUser, auth.RoleOf(member("guest")))
	assert.Equal(t, models.RoleUser, auth.RoleOf(nil))

	i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{Member: member("mod")}}
	actor := auth.ActorFor(i)
	require.Equal(t, "discord:mod", actor.ID)
	assert.True(t, auth.CheckPermission(i, "moderator"))
	assert.False(t, auth.CheckPermission(i, "admin"))
	assert.True(t, auth.CheckPermission(i, "guest"))
}
