package handlers

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Discord accepts at most 25 choices with names of at most 100 characters.
const (
	maxChoices    = 25
	maxChoiceName = 100
)

// HandleAutocomplete handles all autocomplete interactions.
func (h *Handler) HandleAutocomplete(s Responder, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	switch data.Name {
	case "approve", "reject":
		for _, opt := range data.Options {
			if opt.Name == "post_id" && opt.Focused {
				h.handlePendingAutocomplete(s, i, opt)
			}
		}
	}
}

// handlePendingAutocomplete suggests pending posts whose id or title contains
// what the moderator typed so far.
func (h *Handler) handlePendingAutocomplete(s Responder, i *discordgo.InteractionCreate, opt *discordgo.ApplicationCommandInteractionDataOption) {
	typed := ""
	if opt.Type == discordgo.ApplicationCommandOptionString {
		typed = strings.ToLower(opt.StringValue())
	}

	choices := []*discordgo.ApplicationCommandOptionChoice{}
	posts, err := h.moderation.Pending(context.Background(), h.auth.ActorFor(i))
	if err != nil {
		h.log.WithError(err).Debug("no autocomplete for post_id")
	}
	for _, post := range posts {
		if len(choices) == maxChoices {
			break
		}
		title := post.DisplayTitle()
		if typed != "" && !strings.Contains(strings.ToLower(post.ID), typed) && !strings.Contains(strings.ToLower(title), typed) {
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  choiceName(title + " (" + post.ID + ")"),
			Value: post.ID,
		})
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: choices,
		},
	})
	if err != nil {
		h.log.WithError(err).Warn("error responding to autocomplete interaction")
	}
}

func choiceName(s string) string {
	runes := []rune(s)
	if len(runes) > maxChoiceName {
		return string(runes[:maxChoiceName-3]) + "..."
	}
	return s
}
