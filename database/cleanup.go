package database

import (
	"context"
	"fmt"
	"time"

	"social-publisher/models"
	"social-publisher/utils"
)

// RecoverStaleClaims releases posts that have been stuck in publishing since
// before now-timeout, e.g. because the process died mid fan-out. Posts with a
// scheduled date go back to scheduled, everything else back to draft.
func RecoverStaleClaims(ctx context.Context, store Store, now time.Time, timeout time.Duration) (int, error) {
	stale, err := store.ListPosts(ctx,
		WithStatus(models.StatusPublishing),
		ClaimedBefore(now.Add(-timeout)),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale claims: %w", err)
	}

	released := 0
	for _, post := range stale {
		next := post.Clone()
		next.ClaimedAt = nil
		next.UpdatedAt = now
		if next.ScheduledDate != nil {
			next.Status = models.StatusScheduled
		} else {
			next.Status = models.StatusDraft
		}

		if err := store.UpdatePost(ctx, next, models.StatusPublishing); err != nil {
			// Another worker finished or released it in the meantime.
			utils.Warn("RecoverStaleClaims", "Release", fmt.Sprintf("post %s: %v", post.ID, err))
			continue
		}
		released++
		utils.Info("RecoverStaleClaims", "Release", fmt.Sprintf("post %s returned to %s", post.ID, next.Status))
	}
	return released, nil
}
