// Package lifecycle owns every state transition of a post. Each transition is a
// single conditional update against the store keyed on the post's current state.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"social-publisher/clock"
	"social-publisher/database"
	"social-publisher/models"
	"social-publisher/publisher"
	"social-publisher/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrNotDue is returned by PublishDue for a scheduled post whose time has not come.
var ErrNotDue = errors.New("post is not due yet")

// Machine applies post transitions.
type Machine struct {
	store database.Store
	pub   *publisher.Orchestrator
	clock clock.Clock
	log   *logrus.Entry
}

func New(store database.Store, pub *publisher.Orchestrator, clk clock.Clock) *Machine {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Machine{
		store: store,
		pub:   pub,
		clock: clk,
		log:   utils.Component("lifecycle"),
	}
}

// Create stores a new post owned by actor. A future scheduled date creates it
// directly in scheduled, anything else in draft.
func (m *Machine) Create(ctx context.Context, actor models.Actor, d Draft) (*models.Post, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	now := m.clock.Now()
	post := &models.Post{
		ID:        uuid.NewString(),
		UserID:    actor.ID,
		Status:    models.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	d.apply(post)

	if d.ScheduledDate != nil {
		if !d.ScheduledDate.After(now) {
			return nil, models.Invalid("scheduled_date", "must be in the future")
		}
		at := d.ScheduledDate.UTC()
		post.ScheduledDate = &at
		post.Status = models.StatusScheduled
	}
	if _, err := m.pub.Prepare(ctx, post, d.Media); err != nil {
		return nil, err
	}

	if err := m.store.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	m.log.WithFields(logrus.Fields{"post": post.ID, "status": post.Status}).Info("post created")
	return post, nil
}

// Get returns a post visible to actor: its owner or any moderator.
func (m *Machine) Get(ctx context.Context, actor models.Actor, id string) (*models.Post, error) {
	post, err := m.store.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.UserID != actor.ID && !utils.CanModerate(actor.Role) {
		return nil, models.ErrForbidden
	}
	return post, nil
}

// List returns actor's own posts, optionally restricted to statuses.
func (m *Machine) List(ctx context.Context, actor models.Actor, statuses ...models.PostStatus) ([]*models.Post, error) {
	opts := []database.QueryOption{database.WithOwner(actor.ID)}
	if len(statuses) > 0 {
		opts = append(opts, database.WithStatus(statuses...))
	}
	return m.store.ListPosts(ctx, opts...)
}

// Edit replaces the content of a post. Drafts, scheduled and rejected posts
// change in place, and a scheduled post must stay publishable. An approved
// post returns to draft since its approval no longer covers the content. A
// published post stays published, is stored first and then the edit is pushed
// to every platform it lives on; the returned results report each platform. The schedule is changed only through
// Schedule and Unschedule.
func (m *Machine) Edit(ctx context.Context, actor models.Actor, id string, d Draft) (*models.Post, []models.EditResult, error) {
	if err := d.check(); err != nil {
		return nil, nil, err
	}
	stored, err := m.owned(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	if err := expect(stored, models.StatusDraft, models.StatusScheduled, models.StatusRejected,
		models.StatusApproved, models.StatusPublished); err != nil {
		return nil, nil, err
	}

	next := stored.Clone()
	d.apply(next)
	next.UpdatedAt = m.clock.Now()
	if stored.Status == models.StatusPublished {
		for p := range stored.PlatformPostIDs {
			if !models.ContainsPlatform(next.Platforms, p) {
				return nil, nil, models.Invalid("platforms", "%s cannot be removed from a published post", p.DisplayName())
			}
		}
	}
	if stored.Status == models.StatusApproved {
		next.Status = models.StatusDraft
		next.ApprovedBy = ""
		next.ApprovedAt = nil
	}
	if stored.Status == models.StatusScheduled {
		if err := m.pub.Validate(next, next.Platforms, d.Media); err != nil {
			return nil, nil, err
		}
	}
	if _, err := m.pub.Prepare(ctx, next, d.Media); err != nil {
		return nil, nil, err
	}

	if err := m.store.UpdatePost(ctx, next, stored.Status); err != nil {
		return nil, nil, err
	}
	if stored.Status != models.StatusPublished {
		return next, nil, nil
	}
	return next, m.pub.PropagateEdit(ctx, next), nil
}

// owned loads a post and checks actor owns it.
func (m *Machine) owned(ctx context.Context, actor models.Actor, id string) (*models.Post, error) {
	post, err := m.store.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.UserID != actor.ID {
		return nil, models.ErrForbidden
	}
	return post, nil
}

// expect fails with a *models.StaleStateError unless post is in one of allowed.
func expect(post *models.Post, allowed ...models.PostStatus) error {
	for _, s := range allowed {
		if post.Status == s {
			return nil
		}
	}
	names := make([]string, len(allowed))
	for i, s := range allowed {
		names[i] = string(s)
	}
	return &models.StaleStateError{ID: post.ID, Expected: strings.Join(names, "|"), Actual: string(post.Status)}
}
