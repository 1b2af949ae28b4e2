package handlers

import (
	"github.com/bwmarrin/discordgo"
)

var commandPermissions = map[string]string{
	"pending": "moderator",
	"approve": "moderator",
	"reject":  "moderator",
	"ping":    "guest",
}

// CommandDispatcher performs permission checks and then dispatches the
// interaction to the command's handler.
func (h *Handler) CommandDispatcher(s Responder, i *discordgo.InteractionCreate) {
	commandName := i.ApplicationCommandData().Name
	if requiredLevel, ok := commandPermissions[commandName]; ok {
		if !h.auth.CheckPermission(i, requiredLevel) {
			h.reply(s, i, "🚫 You do not have permission to use this command.", true)
			return
		}
	}

	switch commandName {
	case "pending":
		h.HandlePending(s, i)
	case "approve":
		h.HandleApprove(s, i)
	case "reject":
		h.HandleReject(s, i)
	case "ping":
		h.HandlePing(s, i)
	default:
		h.reply(s, i, "🚫 Internal error: unknown command.", true)
	}
}

func (h *Handler) reply(s Responder, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Content: content}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		h.log.WithError(err).Warn("failed to respond to interaction")
	}
}

func options(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := i.ApplicationCommandData().Options
	optionMap := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, opt := range opts {
		optionMap[opt.Name] = opt
	}
	return optionMap
}

func stringOption(i *discordgo.InteractionCreate, name string) string {
	if opt, ok := options(i)[name]; ok && opt.Type == discordgo.ApplicationCommandOptionString {
		return opt.StringValue()
	}
	return ""
}
