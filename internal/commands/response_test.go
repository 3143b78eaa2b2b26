package commands

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/susu3304/zapbot/internal/chat"
)

type fakeSession struct {
	responses []*discordgo.InteractionResponse
	messages  []string
}

func (f *fakeSession) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeSession) ChannelMessageSend(channelID string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.messages = append(f.messages, channelID+":"+content)
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func commandInteraction(name, guildID string) *discordgo.InteractionCreate {
	i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:      discordgo.InteractionApplicationCommand,
		ChannelID: "chan-1",
		GuildID:   guildID,
		Data:      discordgo.ApplicationCommandInteractionData{Name: name},
	}}
	if guildID == "" {
		i.User = &discordgo.User{ID: "u1", Username: "alice"}
	} else {
		i.Member = &discordgo.Member{User: &discordgo.User{ID: "u1", Username: "alice"}}
	}
	return i
}

func TestEventFromInteraction(t *testing.T) {
	ev, ok := EventFromInteraction(commandInteraction("connect", ""))
	require.True(t, ok)
	assert.Equal(t, chat.ConversationPrivate, ev.Kind)
	assert.Equal(t, "/connect", ev.Text)
	assert.Equal(t, chat.User{ID: "u1", Name: "alice"}, ev.Sender)
	assert.Equal(t, "chan-1", ev.Ref.ConversationID)

	ev, ok = EventFromInteraction(commandInteraction("cancel", "guild-1"))
	require.True(t, ok)
	assert.Equal(t, chat.ConversationGroup, ev.Kind)
	assert.Equal(t, "/cancel", ev.Text)

	_, ok = EventFromInteraction(commandInteraction("unknown", ""))
	assert.False(t, ok)

	modal := commandInteraction("connect", "")
	modal.Type = discordgo.InteractionModalSubmit
	_, ok = EventFromInteraction(modal)
	assert.False(t, ok)
}

func TestInteractionReplier(t *testing.T) {
	s := &fakeSession{}
	r := NewInteractionReplier(s, commandInteraction("connect", "").Interaction)
	to := chat.MessageRef{ConversationID: "chan-1"}

	require.NoError(t, r.Reply(context.Background(), to, "first"))
	require.NoError(t, r.Reply(context.Background(), to, "second"))

	require.Len(t, s.responses, 1)
	assert.Equal(t, "first", s.responses[0].Data.Content)
	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, s.responses[0].Type)
	assert.Equal(t, []string{"chan-1:second"}, s.messages)
}

func TestInteractionReplierAcknowledge(t *testing.T) {
	s := &fakeSession{}
	r := NewInteractionReplier(s, commandInteraction("cancel", "").Interaction)

	require.NoError(t, r.Acknowledge(context.Background()))
	require.Len(t, s.responses, 1)
	assert.Equal(t, msgNothingToDo, s.responses[0].Data.Content)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, s.responses[0].Data.Flags)

	// Answered interactions are left alone.
	s = &fakeSession{}
	r = NewInteractionReplier(s, commandInteraction("connect", "").Interaction)
	require.NoError(t, r.Reply(context.Background(), chat.MessageRef{ConversationID: "chan-1"}, "hello"))
	require.NoError(t, r.Acknowledge(context.Background()))
	require.Len(t, s.responses, 1)
	assert.Equal(t, "hello", s.responses[0].Data.Content)
}

func TestGetCommands(t *testing.T) {
	cmds := GetCommands()
	require.Len(t, cmds, 2)
	for _, c := range cmds {
		require.NotNil(t, c.DMPermission)
		assert.True(t, *c.DMPermission, c.Name)
	}
}
