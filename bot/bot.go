// Package bot runs the optional Discord moderation bot.
package bot

import (
	"fmt"

	"social-publisher/utils"

	"github.com/bwmarrin/discordgo"
)

// Bot encapsulates the bot's state.
type Bot struct {
	Session  *discordgo.Session
	Commands []*discordgo.ApplicationCommand
}

// NewBot creates the Discord session; it is not connected until Start.
func NewBot(token string) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("no bot token provided")
	}

	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.IntentsGuilds

	return &Bot{Session: dg}, nil
}

// RegisterCommands sets the slash commands created on Start.
func (b *Bot) RegisterCommands(commands []*discordgo.ApplicationCommand) {
	b.Commands = append(b.Commands, commands...)
}

// Start registers handlers, opens the session and creates the slash commands.
func (b *Bot) Start(registerHandlers func(*Bot)) error {
	registerHandlers(b)

	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	for _, cmd := range b.Commands {
		if _, err := b.Session.ApplicationCommandCreate(b.Session.State.User.ID, "", cmd); err != nil {
			utils.Warn("Bot", "Start", fmt.Sprintf("cannot create '%s' command: %v", cmd.Name, err))
		}
	}

	utils.Component("bot").Info("bot is now running")
	return nil
}

// Stop gracefully closes the bot's session.
func (b *Bot) Stop() {
	if b.Session != nil {
		b.Session.Close()
	}
	utils.Component("bot").Info("bot stopped gracefully")
}
