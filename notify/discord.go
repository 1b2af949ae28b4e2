package notify

import (
	"context"
	"fmt"
	"time"

	"social-publisher/models"

	"github.com/bwmarrin/discordgo"
)

const (
	colorPublished = 0x2ecc71
	colorPending   = 0xf1c40f
)

// EmbedSender is the part of *discordgo.Session used by DiscordSink.
type EmbedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordSink posts embeds to Discord channels: publish notifications to the
// notification channel, submitted posts to the moderation channel.
type DiscordSink struct {
	session             EmbedSender
	channelID           string
	moderationChannelID string
}

func NewDiscordSink(session EmbedSender, channelID, moderationChannelID string) *DiscordSink {
	return &DiscordSink{session: session, channelID: channelID, moderationChannelID: moderationChannelID}
}

func (d *DiscordSink) Notify(ctx context.Context, n Notification) error {
	if d.channelID == "" {
		return nil
	}
	embed := &discordgo.MessageEmbed{
		Title:       "Post published",
		Description: n.Title,
		Color:       colorPublished,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Platforms", Value: orDash(n.PlatformNames()), Inline: true},
			{Name: "Post", Value: n.PostID, Inline: true},
		},
	}
	if _, err := d.session.ChannelMessageSendEmbed(d.channelID, embed); err != nil {
		return fmt.Errorf("failed to send discord notification: %w", err)
	}
	return nil
}

// PostSubmitted announces a post waiting for review.
func (d *DiscordSink) PostSubmitted(ctx context.Context, post *models.Post) error {
	if d.moderationChannelID == "" {
		return nil
	}
	platforms := Notification{Platforms: post.Platforms}.PlatformNames()
	embed := &discordgo.MessageEmbed{
		Title:       "Post awaiting review",
		Description: post.DisplayTitle(),
		Color:       colorPending,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Post", Value: post.ID, Inline: true},
			{Name: "Author", Value: post.UserID, Inline: true},
			{Name: "Platforms", Value: orDash(platforms)},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "/approve or /reject"},
	}
	if _, err := d.session.ChannelMessageSendEmbed(d.moderationChannelID, embed); err != nil {
		return fmt.Errorf("failed to announce post %s: %w", post.ID, err)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
