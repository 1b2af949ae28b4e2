package lifecycle

import (
	"context"
	"fmt"

	"social-publisher/media"
	"social-publisher/models"
	"social-publisher/publisher"

	"github.com/sirupsen/logrus"
)

// Outcome is the result of a publish request.
type Outcome struct {
	Post *models.Post
	// Scheduled is set when the post had a future date and was only scheduled.
	Scheduled bool
	// Report is nil when nothing was fanned out.
	Report *publisher.Report
}

// Results returns the per-platform results, empty when nothing was published.
func (o *Outcome) Results() []models.PublishResult {
	if o == nil || o.Report == nil {
		return nil
	}
	return o.Report.Results
}

// Failure classifies the fan-out, nil when every platform succeeded.
func (o *Outcome) Failure() error {
	if o == nil || o.Report == nil {
		return nil
	}
	return o.Report.Failure()
}

// Publish publishes a post now, to platforms or to every selected platform when
// platforms is empty. Pending media is uploaded first. A post whose scheduled
// date lies in the future is only scheduled. The post is claimed before any
// platform is contacted, so a concurrent publisher gets a *StaleStateError.
//
// Partial and total failures are reported through the Outcome, not the error.
func (m *Machine) Publish(ctx context.Context, actor models.Actor, id string, platforms []models.Platform, pending []media.Ref) (*Outcome, error) {
	stored, err := m.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := expect(stored, models.StatusDraft, models.StatusApproved, models.StatusScheduled, models.StatusPublished); err != nil {
		return nil, err
	}

	post := stored.Clone()
	targets, err := m.pub.Targets(post, platforms)
	if err != nil {
		return nil, err
	}
	if err := m.pub.Validate(post, targets, pending); err != nil {
		return nil, err
	}
	due, err := m.pub.Prepare(ctx, post, pending)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now()
	if !due {
		if stored.Status == models.StatusPublished {
			return nil, models.Invalid("scheduled_date", "a published post cannot be scheduled")
		}
		post.Status = models.StatusScheduled
		post.UpdatedAt = now
		if err := m.store.UpdatePost(ctx, post, stored.Status); err != nil {
			return nil, err
		}
		return &Outcome{Post: post, Scheduled: true}, nil
	}

	if err := m.claim(ctx, post, stored.Status); err != nil {
		return nil, err
	}
	return m.finish(ctx, post, targets)
}

// PublishDue is the scheduler path: it claims a due scheduled post and
// publishes it to every selected platform. A post that fails validation is
// left scheduled and untouched.
func (m *Machine) PublishDue(ctx context.Context, id string) (*Outcome, error) {
	stored, err := m.store.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := expect(stored, models.StatusScheduled); err != nil {
		return nil, err
	}
	if !stored.IsDue(m.clock.Now()) {
		return nil, ErrNotDue
	}

	post := stored.Clone()
	targets := models.OrderPlatforms(post.Platforms)
	if err := m.pub.Validate(post, targets, nil); err != nil {
		return nil, err
	}

	if err := m.claim(ctx, post, models.StatusScheduled); err != nil {
		return nil, err
	}
	return m.finish(ctx, post, targets)
}

// claim moves post from origin to publishing.
func (m *Machine) claim(ctx context.Context, post *models.Post, origin models.PostStatus) error {
	now := m.clock.Now()
	post.Status = models.StatusPublishing
	post.ClaimedAt = &now
	post.UpdatedAt = now
	return m.store.UpdatePost(ctx, post, origin)
}

// finish fans a claimed post out and stores the outcome. Platform ids from
// earlier fan-outs are kept, so the post is published as long as any platform
// ever accepted it or was posted to by hand.
func (m *Machine) finish(ctx context.Context, post *models.Post, targets []models.Platform) (*Outcome, error) {
	report := m.pub.FanOut(ctx, post, targets)

	now := m.clock.Now()
	next := post.Clone()
	if next.PlatformPostIDs == nil {
		next.PlatformPostIDs = map[models.Platform]string{}
	}
	for p, externalID := range report.PlatformPostIDs {
		next.PlatformPostIDs[p] = externalID
	}
	next.LastResults = report.Results
	next.ClaimedAt = nil
	next.UpdatedAt = now
	if len(next.PlatformPostIDs) > 0 || len(next.ManualPlatforms) > 0 {
		next.Status = models.StatusPublished
		if len(report.PlatformPostIDs) > 0 {
			next.PublishedAt = &now
		}
	} else {
		next.Status = models.StatusDraft
	}

	if err := m.store.UpdatePost(ctx, next, models.StatusPublishing); err != nil {
		// The platforms already have the post; leave the claim for recovery.
		m.log.WithFields(logrus.Fields{"post": post.ID}).WithError(err).Error("failed to record publish outcome")
		return &Outcome{Post: post, Report: report}, fmt.Errorf("failed to record publish outcome: %w", err)
	}

	m.log.WithFields(logrus.Fields{
		"post":      post.ID,
		"status":    next.Status,
		"succeeded": report.Succeeded(),
	}).Info("post fanned out")
	return &Outcome{Post: next, Report: report}, nil
}
