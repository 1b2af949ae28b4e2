package handlers

import "github.com/bwmarrin/discordgo"

// InteractionCreate handles slash command and autocomplete interactions.
func (h *Handler) InteractionCreate(s Responder, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		h.CommandDispatcher(s, i)
	case discordgo.InteractionApplicationCommandAutocomplete:
		h.HandleAutocomplete(s, i)
	}
}
