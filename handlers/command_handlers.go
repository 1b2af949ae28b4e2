package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"social-publisher/models"

	"github.com/bwmarrin/discordgo"
)

const maxListed = 15

// HandlePending lists the review queue, oldest first.
func (h *Handler) HandlePending(s Responder, i *discordgo.InteractionCreate) {
	posts, err := h.moderation.Pending(context.Background(), h.auth.ActorFor(i))
	if err != nil {
		h.reply(s, i, h.describe(err), true)
		return
	}
	if len(posts) == 0 {
		h.reply(s, i, "The review queue is empty.", true)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%d post(s) waiting for review**\n", len(posts))
	for n, post := range posts {
		if n == maxListed {
			fmt.Fprintf(&b, "...and %d more", len(posts)-maxListed)
			break
		}
		names := make([]string, 0, len(post.Platforms))
		for _, p := range post.Platforms {
			names = append(names, p.DisplayName())
		}
		fmt.Fprintf(&b, "• `%s` %s by %s (%s)\n", post.ID, post.DisplayTitle(), post.UserID, strings.Join(names, ", "))
	}
	h.reply(s, i, b.String(), true)
}

// HandleApprove handles the logic for the /approve command.
func (h *Handler) HandleApprove(s Responder, i *discordgo.InteractionCreate) {
	postID := stringOption(i, "post_id")
	post, err := h.moderation.Approve(context.Background(), h.auth.ActorFor(i), postID)
	if err != nil {
		h.reply(s, i, h.describe(err), true)
		return
	}
	h.reply(s, i, fmt.Sprintf("✅ Approved **%s** (`%s`).", post.DisplayTitle(), post.ID), false)
}

// HandleReject handles the logic for the /reject command.
func (h *Handler) HandleReject(s Responder, i *discordgo.InteractionCreate) {
	postID := stringOption(i, "post_id")
	reason := stringOption(i, "reason")
	post, err := h.moderation.Reject(context.Background(), h.auth.ActorFor(i), postID, reason)
	if err != nil {
		h.reply(s, i, h.describe(err), true)
		return
	}
	h.reply(s, i, fmt.Sprintf("❌ Rejected **%s** (`%s`): %s", post.DisplayTitle(), post.ID, post.RejectionReason), false)
}

// HandlePing handles the logic for the /ping command.
func (h *Handler) HandlePing(s Responder, i *discordgo.InteractionCreate) {
	h.reply(s, i, "Pong!", false)
}

// describe turns a workflow error into a message for the moderator.
func (h *Handler) describe(err error) string {
	var (
		verr  *models.ValidationError
		stale *models.StaleStateError
	)
	switch {
	case errors.Is(err, models.ErrForbidden):
		return "🚫 You do not have permission to moderate posts."
	case errors.Is(err, models.ErrNotFound):
		return "Post not found."
	case errors.As(err, &stale):
		return fmt.Sprintf("Post `%s` is %s, not pending review.", stale.ID, stale.Actual)
	case errors.As(err, &verr):
		return "Invalid input: " + verr.Message
	}
	h.log.WithError(err).Error("moderation command failed")
	return "🚫 Internal error, see the logs."
}
