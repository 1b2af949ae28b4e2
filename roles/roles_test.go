package roles

import (
	"context"
	"testing"
	"time"

	"social-publisher/clock"
	"social-publisher/database"
	"social-publisher/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkflow(t *testing.T) (*Workflow, database.Store) {
	t.Helper()
	db, err := database.InitDB(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	store := database.NewSQLStore(db, database.DriverSQLite)
	t.Cleanup(func() { store.Close() })
	return New(store, clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))), store
}

func seed(t *testing.T, store database.Store, id string, role models.Role) models.Actor {
	t.Helper()
	u := &models.User{ID: id, Email: id + "@example.com", DisplayName: id, Role: role}
	require.NoError(t, store.CreateUser(context.Background(), u))
	return models.ActorFor(u)
}

func roleOf(t *testing.T, store database.Store, id string) models.Role {
	t.Helper()
	u, err := store.GetUser(context.Background(), id)
	require.NoError(t, err)
	return u.Role
}

func TestAdminGrantingAdminCreatesRequest(t *testing.T) {
	ctx := context.Background()
	w, store := newWorkflow(t)
	admin := seed(t, store, "admin", models.RoleAdmin)
	super := seed(t, store, "super", models.RoleSuperAdmin)
	seed(t, store, "alice", models.RoleUser)

	out, err := w.ChangeRole(ctx, admin, "alice", models.RoleAdmin, "runs the team")
	require.NoError(t, err)
	assert.False(t, out.Applied)
	assert.True(t, out.Created)
	require.NotNil(t, out.Request)
	assert.Equal(t, models.RequestPending, out.Request.Status)
	assert.Equal(t, models.RoleUser, out.Request.CurrentRole)
	assert.Equal(t, "admin@example.com", out.Request.RequesterEmail)
	assert.Equal(t, models.RoleUser, roleOf(t, store, "alice"))

	again, err := w.ChangeRole(ctx, admin, "alice", models.RoleAdmin, "")
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, out.Request.ID, again.Request.ID)

	pending, err := w.ListRequests(ctx, super, models.RequestPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = w.ApproveRequest(ctx, admin, out.Request.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	approved, err := w.ApproveRequest(ctx, super, out.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, approved.Status)
	assert.Equal(t, "super", approved.ProcessedBy)
	require.NotNil(t, approved.ProcessedAt)
	assert.Equal(t, models.RoleAdmin, roleOf(t, store, "alice"))

	// Terminal.
	_, err = w.RejectRequest(ctx, super, out.Request.ID)
	assert.True(t, models.IsStale(err))
}

func TestRejectedRequestLeavesRole(t *testing.T) {
	ctx := context.Background()
	w, store := newWorkflow(t)
	admin := seed(t, store, "admin", models.RoleAdmin)
	super := seed(t, store, "super", models.RoleSuperAdmin)
	seed(t, store, "bob", models.RoleModerator)

	out, err := w.ChangeRole(ctx, admin, "bob", models.RoleAdmin, "")
	require.NoError(t, err)

	rejected, err := w.RejectRequest(ctx, super, out.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestRejected, rejected.Status)
	assert.Equal(t, "super", rejected.ProcessedBy)
	assert.Equal(t, models.RoleModerator, roleOf(t, store, "bob"))

	stored, err := store.GetAdminRequest(ctx, out.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestRejected, stored.Status)
}

func TestDirectRoleChanges(t *testing.T) {
	ctx := context.Background()
	w, store := newWorkflow(t)
	admin := seed(t, store, "admin", models.RoleAdmin)
	super := seed(t, store, "super", models.RoleSuperAdmin)
	user := seed(t, store, "carol", models.RoleUser)
	seed(t, store, "dave", models.RoleAdmin)

	out, err := w.ChangeRole(ctx, admin, "carol", models.RoleModerator, "")
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.Equal(t, models.RoleModerator, roleOf(t, store, "carol"))

	out, err = w.ChangeRole(ctx, super, "dave", models.RoleUser, "")
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.Equal(t, models.RoleUser, roleOf(t, store, "dave"))

	_, err = w.ChangeRole(ctx, user, "dave", models.RoleModerator, "")
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = w.ChangeRole(ctx, super, "carol", models.RoleSuperAdmin, "")
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = w.ChangeRole(ctx, super, "carol", "overlord", "")
	assert.True(t, models.IsValidation(err))
}

func TestSuperAdminIsImmutable(t *testing.T) {
	ctx := context.Background()
	w, store := newWorkflow(t)
	admin := seed(t, store, "admin", models.RoleAdmin)
	super := seed(t, store, "super", models.RoleSuperAdmin)
	seed(t, store, "root", models.RoleSuperAdmin)
	seed(t, store, "eve", models.RoleAdmin)

	for _, actor := range []models.Actor{admin, super} {
		_, err := w.ChangeRole(ctx, actor, "root", models.RoleUser, "")
		assert.ErrorIs(t, err, models.ErrForbidden)
		assert.ErrorIs(t, w.DeleteUser(ctx, actor, "root"), models.ErrForbidden)
	}
	assert.Equal(t, models.RoleSuperAdmin, roleOf(t, store, "root"))

	// A plain admin can neither demote nor delete another admin.
	_, err := w.ChangeRole(ctx, admin, "eve", models.RoleUser, "")
	assert.ErrorIs(t, err, models.ErrForbidden)
	assert.ErrorIs(t, w.DeleteUser(ctx, admin, "eve"), models.ErrForbidden)

	require.NoError(t, w.DeleteUser(ctx, super, "eve"))
	_, err = store.GetUser(ctx, "eve")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRegisterAndBootstrap(t *testing.T) {
	ctx := context.Background()
	w, store := newWorkflow(t)

	u, err := w.RegisterUser(ctx, Registration{Email: " Frank@Example.com ", DisplayName: "Frank", NotifyOnPublish: true})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.Equal(t, "frank@example.com", u.Email)
	assert.NotEmpty(t, u.ID)

	_, err = w.RegisterUser(ctx, Registration{Email: "not-an-email"})
	assert.True(t, models.IsValidation(err))

	require.NoError(t, w.EnsureSuperAdmin(ctx, "root"))
	assert.Equal(t, models.RoleSuperAdmin, roleOf(t, store, "root"))
	require.NoError(t, w.EnsureSuperAdmin(ctx, u.ID))
	assert.Equal(t, models.RoleSuperAdmin, roleOf(t, store, u.ID))
	require.NoError(t, w.EnsureSuperAdmin(ctx, "root"))

	_, err = w.ListRequests(ctx, models.ActorFor(u), models.RequestPending)
	require.NoError(t, err)
	_, err = w.ListRequests(ctx, models.Actor{ID: "x", Role: models.RoleModerator}, models.RequestPending)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

// interferingStore lets another writer act just before a store call.
type interferingStore struct {
	database.Store
	beforeUpdateRole func()
	beforeProcess    func()
}

func (s *interferingStore) UpdateUserRole(ctx context.Context, id string, from, to models.Role) error {
	if s.beforeUpdateRole != nil {
		s.beforeUpdateRole()
		s.beforeUpdateRole = nil
	}
	return s.Store.UpdateUserRole(ctx, id, from, to)
}

func (s *interferingStore) ProcessAdminRequest(ctx context.Context, req *models.AdminRoleRequest) error {
	if s.beforeProcess != nil {
		s.beforeProcess()
		s.beforeProcess = nil
	}
	return s.Store.ProcessAdminRequest(ctx, req)
}

func TestApproveRequestLeavesRequestPendingWhenRoleChanged(t *testing.T) {
	ctx := context.Background()
	_, store := newWorkflow(t)
	admin := seed(t, store, "admin", models.RoleAdmin)
	super := seed(t, store, "super", models.RoleSuperAdmin)
	seed(t, store, "alice", models.RoleUser)

	racing := &interferingStore{Store: store}
	w := New(racing, clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))
	out, err := w.ChangeRole(ctx, admin, "alice", models.RoleAdmin, "")
	require.NoError(t, err)

	racing.beforeUpdateRole = func() {
		require.NoError(t, store.UpdateUserRole(ctx, "alice", models.RoleUser, models.RoleModerator))
	}
	_, err = w.ApproveRequest(ctx, super, out.Request.ID)
	assert.True(t, models.IsStale(err))

	assert.Equal(t, models.RoleModerator, roleOf(t, store, "alice"))
	stored, err := store.GetAdminRequest(ctx, out.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, stored.Status)
	assert.Nil(t, stored.ProcessedAt)
}

func TestApproveRequestRestoresRoleWhenRequestClosedElsewhere(t *testing.T) {
	ctx := context.Background()
	_, store := newWorkflow(t)
	admin := seed(t, store, "admin", models.RoleAdmin)
	super := seed(t, store, "super", models.RoleSuperAdmin)
	seed(t, store, "alice", models.RoleUser)

	racing := &interferingStore{Store: store}
	w := New(racing, clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))
	out, err := w.ChangeRole(ctx, admin, "alice", models.RoleAdmin, "")
	require.NoError(t, err)

	racing.beforeProcess = func() {
		rejected := *out.Request
		rejected.Status = models.RequestRejected
		rejected.ProcessedBy = "other-super"
		require.NoError(t, store.ProcessAdminRequest(ctx, &rejected))
	}
	_, err = w.ApproveRequest(ctx, super, out.Request.ID)
	assert.True(t, models.IsStale(err))

	assert.Equal(t, models.RoleUser, roleOf(t, store, "alice"))
	stored, err := store.GetAdminRequest(ctx, out.Request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestRejected, stored.Status)
}
