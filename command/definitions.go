package command

import "github.com/bwmarrin/discordgo"

// PendingCommand defines the /pending command.
type PendingCommand struct{}

// Definition returns the application command definition.
func (c *PendingCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "pending",
		Description: "List posts waiting for review",
	}
}

// ApproveCommand defines the /approve command.
type ApproveCommand struct{}

// Definition returns the application command definition.
func (c *ApproveCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "approve",
		Description: "Approve a pending post",
		Options: []*discordgo.ApplicationCommandOption{
			postIDOption(),
		},
	}
}

// RejectCommand defines the /reject command.
type RejectCommand struct{}

// Definition returns the application command definition.
func (c *RejectCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "reject",
		Description: "Reject a pending post",
		Options: []*discordgo.ApplicationCommandOption{
			postIDOption(),
			{
				Name:        "reason",
				Description: "Why the post is rejected, shown to its author",
				Type:        discordgo.ApplicationCommandOptionString,
				Required:    true,
				MaxLength:   500,
			},
		},
	}
}

// PingCommand defines the structure for the /ping command.
type PingCommand struct{}

// Definition returns the application command definition.
func (c *PingCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "ping",
		Description: "Responds with Pong!",
	}
}

func postIDOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Name:         "post_id",
		Description:  "The pending post",
		Type:         discordgo.ApplicationCommandOptionString,
		Required:     true,
		Autocomplete: true,
	}
}
