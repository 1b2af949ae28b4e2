// Package moderation is the approve/reject gate for posts awaiting review.
package moderation

import (
	"context"
	"fmt"

	"social-publisher/database"
	"social-publisher/lifecycle"
	"social-publisher/models"
	"social-publisher/utils"

	"github.com/sirupsen/logrus"
)

// Announcer is told about posts entering the review queue.
type Announcer interface {
	PostSubmitted(ctx context.Context, post *models.Post) error
}

// Workflow routes posts through review.
type Workflow struct {
	machine   *lifecycle.Machine
	store     database.Store
	announcer Announcer
	log       *logrus.Entry
}

// New builds a Workflow; announcer may be nil.
func New(machine *lifecycle.Machine, store database.Store, announcer Announcer) *Workflow {
	return &Workflow{
		machine:   machine,
		store:     store,
		announcer: announcer,
		log:       utils.Component("moderation"),
	}
}

// Submit sends the actor's post for review and announces it to moderators.
func (w *Workflow) Submit(ctx context.Context, actor models.Actor, postID string) (*models.Post, error) {
	post, err := w.machine.Submit(ctx, actor, postID)
	if err != nil {
		return nil, err
	}
	if w.announcer != nil {
		if err := w.announcer.PostSubmitted(ctx, post); err != nil {
			w.log.WithError(err).WithField("post", post.ID).Warn("failed to announce submitted post")
		}
	}
	return post, nil
}

// Pending lists the review queue, oldest first.
func (w *Workflow) Pending(ctx context.Context, actor models.Actor) ([]*models.Post, error) {
	if err := authorize(actor); err != nil {
		return nil, err
	}
	posts, err := w.store.ListPosts(ctx, database.WithStatus(models.StatusPending))
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(posts)-1; i < j; i, j = i+1, j-1 {
		posts[i], posts[j] = posts[j], posts[i]
	}
	return posts, nil
}

// Approve marks a pending post approved by actor.
func (w *Workflow) Approve(ctx context.Context, actor models.Actor, postID string) (*models.Post, error) {
	if err := authorize(actor); err != nil {
		return nil, err
	}
	post, err := w.machine.Approve(ctx, postID, actor.ID)
	if err != nil {
		return nil, err
	}
	utils.Info("Moderation", "Approve", fmt.Sprintf("post %s approved by %s", post.ID, actor.ID))
	return post, nil
}

// Reject marks a pending post rejected with reason.
func (w *Workflow) Reject(ctx context.Context, actor models.Actor, postID, reason string) (*models.Post, error) {
	if err := authorize(actor); err != nil {
		return nil, err
	}
	post, err := w.machine.Reject(ctx, postID, actor.ID, reason)
	if err != nil {
		return nil, err
	}
	utils.Info("Moderation", "Reject", fmt.Sprintf("post %s rejected by %s: %s", post.ID, actor.ID, reason))
	return post, nil
}

func authorize(actor models.Actor) error {
	if !utils.CanModerate(actor.Role) {
		return fmt.Errorf("role %s cannot moderate posts: %w", actor.Role, models.ErrForbidden)
	}
	return nil
}
