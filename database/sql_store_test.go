package database

import (
	"context"
	"testing"
	"time"

	"social-publisher/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := InitDB(DriverSQLite, ":memory:")
	require.NoError(t, err)
	s := NewSQLStore(db, DriverSQLite)
	t.Cleanup(func() { s.Close() })
	return s
}

func samplePost(id, owner string, status models.PostStatus) *models.Post {
	return &models.Post{
		ID:        id,
		UserID:    owner,
		Title:     "Launch",
		Content:   "We are live",
		Status:    status,
		Platforms: []models.Platform{models.Facebook, models.Twitter},
		Images:    []string{"https://cdn.example.com/a.png"},
		URLs:      []string{"https://example.com"},
		Hashtags:  []string{"launch"},
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	}
}

func TestSQLStorePostRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	post := samplePost("p1", "u1", models.StatusDraft)
	due := baseTime.Add(time.Hour)
	post.ScheduledDate = &due
	require.NoError(t, s.CreatePost(ctx, post))

	got, err := s.GetPost(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, post.Content, got.Content)
	assert.Equal(t, post.Platforms, got.Platforms)
	assert.Equal(t, post.Images, got.Images)
	assert.Equal(t, post.Hashtags, got.Hashtags)
	require.NotNil(t, got.ScheduledDate)
	assert.True(t, due.Equal(*got.ScheduledDate))
	assert.Nil(t, got.PublishedAt)
	assert.True(t, baseTime.Equal(got.CreatedAt))

	_, err = s.GetPost(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSQLStoreUpdatePostIsConditional(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.CreatePost(ctx, samplePost("p1", "u1", models.StatusScheduled)))

	first, err := s.GetPost(ctx, "p1")
	require.NoError(t, err)
	second, err := s.GetPost(ctx, "p1")
	require.NoError(t, err)

	first.Status = models.StatusPublishing
	require.NoError(t, s.UpdatePost(ctx, first, models.StatusScheduled))
	assert.Equal(t, int64(1), first.Version)

	// A concurrent claimer working from the same snapshot loses.
	second.Status = models.StatusPublishing
	err = s.UpdatePost(ctx, second, models.StatusScheduled)
	var stale *models.StaleStateError
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, string(models.StatusPublishing), stale.Actual)

	first.Status = models.StatusPublished
	first.PlatformPostIDs = map[models.Platform]string{models.Facebook: "fb_1"}
	require.NoError(t, s.UpdatePost(ctx, first, models.StatusPublishing))

	got, err := s.GetPost(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, got.Status)
	assert.Equal(t, "fb_1", got.PlatformPostIDs[models.Facebook])
	assert.Equal(t, int64(2), got.Version)

	missing := samplePost("nope", "u1", models.StatusDraft)
	assert.ErrorIs(t, s.UpdatePost(ctx, missing, models.StatusDraft), models.ErrNotFound)
}

func TestSQLStoreListPosts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	early := baseTime.Add(-2 * time.Minute)
	late := baseTime.Add(-time.Minute)
	future := baseTime.Add(time.Hour)

	for _, p := range []struct {
		id, owner string
		status    models.PostStatus
		when      *time.Time
	}{
		{"a", "u1", models.StatusScheduled, &late},
		{"b", "u1", models.StatusScheduled, &early},
		{"c", "u1", models.StatusScheduled, &future},
		{"d", "u2", models.StatusScheduled, &early},
		{"e", "u1", models.StatusDraft, nil},
	} {
		post := samplePost(p.id, p.owner, p.status)
		post.ScheduledDate = p.when
		require.NoError(t, s.CreatePost(ctx, post))
	}

	due, err := s.ListPosts(ctx, WithOwner("u1"), WithStatus(models.StatusScheduled), DueBefore(baseTime))
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "b", due[0].ID)
	assert.Equal(t, "a", due[1].ID)

	all, err := s.ListPosts(ctx, WithStatus(models.StatusScheduled), DueBefore(baseTime))
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := s.ListPosts(ctx, WithOwner("u1"), WithLimit(2))
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSQLStoreAdminRequests(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	req := &models.AdminRoleRequest{
		ID:            "r1",
		TargetUserID:  "u1",
		RequestedRole: models.RoleAdmin,
		CurrentRole:   models.RoleUser,
		RequesterID:   "admin1",
		Status:        models.RequestPending,
		CreatedAt:     baseTime,
	}
	require.NoError(t, s.CreateAdminRequest(ctx, req))

	dup := *req
	dup.ID = "r2"
	assert.ErrorIs(t, s.CreateAdminRequest(ctx, &dup), models.ErrDuplicateRequest)

	found, err := s.FindPendingAdminRequest(ctx, "u1", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "r1", found.ID)

	processed := baseTime.Add(time.Minute)
	req.Status = models.RequestApproved
	req.ProcessedAt = &processed
	req.ProcessedBy = "super1"
	require.NoError(t, s.ProcessAdminRequest(ctx, req))

	// Terminal: processing again is stale.
	req.Status = models.RequestRejected
	assert.True(t, models.IsStale(s.ProcessAdminRequest(ctx, req)))

	got, err := s.GetAdminRequest(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, got.Status)
	assert.Equal(t, "super1", got.ProcessedBy)

	// Once processed, a new pending request for the same pair is allowed.
	require.NoError(t, s.CreateAdminRequest(ctx, &dup))

	pending, err := s.ListAdminRequests(ctx, models.RequestPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "r2", pending[0].ID)
}

func TestSQLStoreUsers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CreateUser(ctx, &models.User{ID: "u1", Email: "u1@example.com", Role: models.RoleUser, NotifyOnPublish: true, CreatedAt: baseTime}))

	require.NoError(t, s.UpdateUserRole(ctx, "u1", models.RoleUser, models.RoleModerator))
	assert.True(t, models.IsStale(s.UpdateUserRole(ctx, "u1", models.RoleUser, models.RoleAdmin)))

	u, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, u.Role)
	assert.True(t, u.NotifyOnPublish)

	require.NoError(t, s.DeleteUser(ctx, "u1", models.RoleModerator))
	_, err = s.GetUser(ctx, "u1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSQLStoreSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := newTestStore(t)

	events := s.Subscribe(ctx, "u1")
	require.NoError(t, s.CreatePost(ctx, samplePost("other", "u2", models.StatusScheduled)))
	require.NoError(t, s.CreatePost(ctx, samplePost("mine", "u1", models.StatusScheduled)))

	select {
	case ev := <-events:
		assert.Equal(t, "mine", ev.PostID)
		assert.Equal(t, models.StatusScheduled, ev.Status)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestRebindPostgres(t *testing.T) {
	s := &SQLStore{driver: DriverPostgres}
	assert.Equal(t, "SELECT * FROM posts WHERE id = $1 AND status = $2", s.rebind("SELECT * FROM posts WHERE id = ? AND status = ?"))
	s.driver = DriverSQLite
	assert.Equal(t, "id = ?", s.rebind("id = ?"))
}

func TestRecoverStaleClaims(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	claimedLongAgo := baseTime.Add(-time.Hour)
	claimedRecently := baseTime.Add(-time.Minute)
	due := baseTime.Add(-2 * time.Hour)

	stuck := samplePost("stuck", "u1", models.StatusPublishing)
	stuck.ClaimedAt = &claimedLongAgo
	stuck.ScheduledDate = &due
	require.NoError(t, s.CreatePost(ctx, stuck))

	manual := samplePost("manual", "u1", models.StatusPublishing)
	manual.ClaimedAt = &claimedLongAgo
	require.NoError(t, s.CreatePost(ctx, manual))

	busy := samplePost("busy", "u1", models.StatusPublishing)
	busy.ClaimedAt = &claimedRecently
	require.NoError(t, s.CreatePost(ctx, busy))

	n, err := RecoverStaleClaims(ctx, s, baseTime, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, _ := s.GetPost(ctx, "stuck")
	assert.Equal(t, models.StatusScheduled, got.Status)
	assert.Nil(t, got.ClaimedAt)
	got, _ = s.GetPost(ctx, "manual")
	assert.Equal(t, models.StatusDraft, got.Status)
	got, _ = s.GetPost(ctx, "busy")
	assert.Equal(t, models.StatusPublishing, got.Status)
}
