package lifecycle

import (
	"context"
	"strings"
	"time"

	"social-publisher/models"

	"github.com/sirupsen/logrus"
)

// Schedule sets a future publish time. Drafts and approved posts become
// scheduled; a scheduled post is rescheduled.
func (m *Machine) Schedule(ctx context.Context, actor models.Actor, id string, at time.Time) (*models.Post, error) {
	stored, err := m.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := expect(stored, models.StatusDraft, models.StatusApproved, models.StatusScheduled); err != nil {
		return nil, err
	}
	now := m.clock.Now()
	if !at.After(now) {
		return nil, models.Invalid("scheduled_date", "must be in the future")
	}
	if err := m.pub.Validate(stored, stored.Platforms, nil); err != nil {
		return nil, err
	}

	next := stored.Clone()
	at = at.UTC()
	next.ScheduledDate = &at
	next.Status = models.StatusScheduled
	next.UpdatedAt = now
	if err := m.store.UpdatePost(ctx, next, stored.Status); err != nil {
		return nil, err
	}
	m.log.WithFields(logrus.Fields{"post": id, "at": at}).Info("post scheduled")
	return next, nil
}

// Unschedule returns a scheduled post to draft.
func (m *Machine) Unschedule(ctx context.Context, actor models.Actor, id string) (*models.Post, error) {
	stored, err := m.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := expect(stored, models.StatusScheduled); err != nil {
		return nil, err
	}
	next := stored.Clone()
	next.Status = models.StatusDraft
	next.ScheduledDate = nil
	next.UpdatedAt = m.clock.Now()
	if err := m.store.UpdatePost(ctx, next, models.StatusScheduled); err != nil {
		return nil, err
	}
	return next, nil
}

// Submit puts a post in the moderation queue. The post must be publishable as
// it stands.
func (m *Machine) Submit(ctx context.Context, actor models.Actor, id string) (*models.Post, error) {
	stored, err := m.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := expect(stored, models.StatusDraft, models.StatusScheduled, models.StatusRejected); err != nil {
		return nil, err
	}
	if err := m.pub.Validate(stored, stored.Platforms, nil); err != nil {
		return nil, err
	}
	next := stored.Clone()
	next.Status = models.StatusPending
	next.RejectionReason = ""
	next.UpdatedAt = m.clock.Now()
	if err := m.store.UpdatePost(ctx, next, stored.Status); err != nil {
		return nil, err
	}
	return next, nil
}

// Approve moves a pending post to approved and stamps the moderator.
// Authorization is the caller's concern.
func (m *Machine) Approve(ctx context.Context, id, moderatorID string) (*models.Post, error) {
	stored, err := m.store.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := expect(stored, models.StatusPending); err != nil {
		return nil, err
	}
	now := m.clock.Now()
	next := stored.Clone()
	next.Status = models.StatusApproved
	next.ApprovedBy = moderatorID
	next.ApprovedAt = &now
	next.UpdatedAt = now
	if err := m.store.UpdatePost(ctx, next, models.StatusPending); err != nil {
		return nil, err
	}
	return next, nil
}

// Reject moves a pending post to rejected with a reason.
func (m *Machine) Reject(ctx context.Context, id, moderatorID, reason string) (*models.Post, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, models.Invalid("reason", "a rejection reason is required")
	}
	stored, err := m.store.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := expect(stored, models.StatusPending); err != nil {
		return nil, err
	}
	next := stored.Clone()
	next.Status = models.StatusRejected
	next.RejectionReason = reason
	next.ApprovedBy = ""
	next.ApprovedAt = nil
	next.UpdatedAt = m.clock.Now()
	if err := m.store.UpdatePost(ctx, next, models.StatusPending); err != nil {
		return nil, err
	}
	m.log.WithFields(logrus.Fields{"post": id, "moderator": moderatorID}).Info("post rejected")
	return next, nil
}

// AcknowledgeManualFallback records that the owner posted to p by hand after
// the platform offered a manual fallback. The post becomes published.
func (m *Machine) AcknowledgeManualFallback(ctx context.Context, actor models.Actor, id string, p models.Platform) (*models.Post, error) {
	if !p.Capabilities().ManualFallback {
		return nil, models.Invalid("platform", "%s has no manual posting path", p.DisplayName())
	}
	stored, err := m.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := expect(stored, models.StatusDraft, models.StatusPublished); err != nil {
		return nil, err
	}
	if !models.ContainsPlatform(stored.Platforms, p) {
		return nil, models.Invalid("platform", "%s is not selected on this post", p.DisplayName())
	}
	if _, ok := stored.PlatformPostIDs[p]; ok {
		return nil, models.Invalid("platform", "already published to %s", p.DisplayName())
	}

	now := m.clock.Now()
	next := stored.Clone()
	if !models.ContainsPlatform(next.ManualPlatforms, p) {
		next.ManualPlatforms = models.OrderPlatforms(append(next.ManualPlatforms, p))
	}
	next.Status = models.StatusPublished
	if next.PublishedAt == nil {
		next.PublishedAt = &now
	}
	next.UpdatedAt = now
	if err := m.store.UpdatePost(ctx, next, stored.Status); err != nil {
		return nil, err
	}
	return next, nil
}
