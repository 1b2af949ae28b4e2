package handlers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"social-publisher/clock"
	"social-publisher/database"
	"social-publisher/lifecycle"
	"social-publisher/models"
	"social-publisher/moderation"
	"social-publisher/publisher"
	"social-publisher/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type recordingResponder struct {
	responses []*discordgo.InteractionResponse
}

func (r *recordingResponder) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	r.responses = append(r.responses, resp)
	return nil
}

func (r *recordingResponder) last(t *testing.T) *discordgo.InteractionResponse {
	t.Helper()
	require.NotEmpty(t, r.responses)
	return r.responses[len(r.responses)-1]
}

func newHandler(t *testing.T) (*Handler, *database.SQLStore) {
	t.Helper()
	db, err := database.InitDB(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	store := database.NewSQLStore(db, database.DriverSQLite)
	t.Cleanup(func() { store.Close() })

	clk := clock.NewFake(now)
	machine := lifecycle.New(store, publisher.New(nil, nil, clk), clk)
	auth := utils.NewAuth(models.CommandsConfig{Auth: models.AuthConfig{Moderators: []string{"mod"}}})
	return New(moderation.New(machine, store, nil), auth), store
}

func seedPending(t *testing.T, store *database.SQLStore, n int) {
	t.Helper()
	for k := 0; k < n; k++ {
		require.NoError(t, store.CreatePost(context.Background(), &models.Post{
			ID:        fmt.Sprintf("post-%d", k),
			UserID:    "author",
			Title:     fmt.Sprintf("Title %d", k),
			Content:   "content",
			Status:    models.StatusPending,
			Platforms: []models.Platform{models.Facebook},
			CreatedAt: now.Add(time.Duration(k) * time.Minute),
			UpdatedAt: now.Add(time.Duration(k) * time.Minute),
		}))
	}
}

func command(userID, name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:   discordgo.InteractionApplicationCommand,
		Member: &discordgo.Member{User: &discordgo.User{ID: userID, Username: userID}},
		Data:   discordgo.ApplicationCommandInteractionData{Name: name, Options: opts},
	}}
}

func str(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: value}
}

func TestPermissionCheck(t *testing.T) {
	h, store := newHandler(t)
	seedPending(t, store, 1)
	s := &recordingResponder{}

	h.InteractionCreate(s, command("stranger", "approve", str("post_id", "post-0")))
	resp := s.last(t)
	assert.Contains(t, resp.Data.Content, "permission")
	assert.Equal(t, discordgo.MessageFlagsEphemeral, resp.Data.Flags)

	post, err := store.GetPost(context.Background(), "post-0")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, post.Status)

	h.InteractionCreate(s, command("stranger", "ping"))
	assert.Equal(t, "Pong!", s.last(t).Data.Content)
}

func TestApproveAndReject(t *testing.T) {
	h, store := newHandler(t)
	seedPending(t, store, 2)
	s := &recordingResponder{}
	ctx := context.Background()

	h.InteractionCreate(s, command("mod", "approve", str("post_id", "post-0")))
	assert.Contains(t, s.last(t).Data.Content, "Approved")
	post, err := store.GetPost(ctx, "post-0")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, post.Status)
	assert.Equal(t, "discord:mod", post.ApprovedBy)

	h.InteractionCreate(s, command("mod", "approve", str("post_id", "post-0")))
	assert.Contains(t, s.last(t).Data.Content, "not pending")

	h.InteractionCreate(s, command("mod", "reject", str("post_id", "post-1"), str("reason", " ")))
	assert.Contains(t, s.last(t).Data.Content, "Invalid input")

	h.InteractionCreate(s, command("mod", "reject", str("post_id", "post-1"), str("reason", "off topic")))
	assert.Contains(t, s.last(t).Data.Content, "off topic")
	post, err = store.GetPost(ctx, "post-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, post.Status)
	assert.Equal(t, "off topic", post.RejectionReason)

	h.InteractionCreate(s, command("mod", "approve", str("post_id", "missing")))
	assert.Equal(t, "Post not found.", s.last(t).Data.Content)
}

func TestPendingList(t *testing.T) {
	h, store := newHandler(t)
	s := &recordingResponder{}

	h.InteractionCreate(s, command("mod", "pending"))
	assert.Equal(t, "The review queue is empty.", s.last(t).Data.Content)

	seedPending(t, store, maxListed+2)
	h.InteractionCreate(s, command("mod", "pending"))
	content := s.last(t).Data.Content
	assert.Contains(t, content, fmt.Sprintf("%d post(s)", maxListed+2))
	assert.Contains(t, content, "`post-0` Title 0 by author (Facebook)")
	assert.Contains(t, content, "...and 2 more")
}

func TestAutocompleteSuggestsPendingPosts(t *testing.T) {
	h, store := newHandler(t)
	seedPending(t, store, 3)
	s := &recordingResponder{}

	focused := str("post_id", "title 1")
	focused.Focused = true
	i := command("mod", "approve", focused)
	i.Type = discordgo.InteractionApplicationCommandAutocomplete

	h.InteractionCreate(s, i)
	resp := s.last(t)
	assert.Equal(t, discordgo.InteractionApplicationCommandAutocompleteResult, resp.Type)
	require.Len(t, resp.Data.Choices, 1)
	assert.Equal(t, "post-1", resp.Data.Choices[0].Value)
	assert.Equal(t, "Title 1 (post-1)", resp.Data.Choices[0].Name)

	// Without moderator rights the suggestions are empty.
	i.Member.User.ID = "stranger"
	h.InteractionCreate(s, i)
	assert.Empty(t, s.last(t).Data.Choices)
}
