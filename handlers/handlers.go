// Package handlers answers the moderation bot's Discord interactions.
package handlers

import (
	"social-publisher/bot"
	"social-publisher/moderation"
	"social-publisher/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// Responder is the part of a Discord session the handlers answer through.
type Responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
}

// Handler routes interactions to the moderation workflow.
type Handler struct {
	moderation *moderation.Workflow
	auth       *utils.Auth
	log        *logrus.Entry
}

func New(workflow *moderation.Workflow, auth *utils.Auth) *Handler {
	return &Handler{moderation: workflow, auth: auth, log: utils.Component("bot")}
}

// Register all handlers to the bot.
func Register(b *bot.Bot, h *Handler) {
	b.Session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		h.InteractionCreate(s, i)
	})

	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		h.log.Infof("logged in as %s", r.User.Username)
	})
}
