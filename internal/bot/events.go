package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/zapbot/internal/chat"
	"github.com/susu3304/zapbot/internal/commands"
)

// messageSession is the part of *discordgo.Session needed to read and answer
// messages.
type messageSession interface {
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendReply(channelID string, content string, reference *discordgo.MessageReference, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// channelTypeFunc resolves the type of a channel, reporting false when unknown.
type channelTypeFunc func(channelID string) (discordgo.ChannelType, bool)

func (b *Bot) onReady(s *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("connected to discord", "user", event.User.Username, "guilds", len(event.Guilds))

	// Global commands work in DMs as well as in every guild.
	if _, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, "", commands.GetCommands()); err != nil {
		b.logger.Error("failed to register application commands", "error", err)
		return
	}
	b.logger.Info("registered application commands")
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	ev, ok := translateMessage(s, b.stateChannelType(s), m.Message)
	if !ok {
		return
	}
	b.handler.Handle(context.Background(), b.replier, ev)
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.handleInteraction(s, i)
}

func (b *Bot) handleInteraction(s commands.InteractionSession, i *discordgo.InteractionCreate) {
	ev, ok := commands.EventFromInteraction(i)
	if !ok {
		return
	}
	ctx := context.Background()
	replier := commands.NewInteractionReplier(s, i.Interaction)
	b.handler.Handle(ctx, replier, ev)

	// Slash commands are handled synchronously, so a missing reply here means
	// the command had nothing to say.
	if err := replier.Acknowledge(ctx); err != nil {
		b.logger.Warn("failed to acknowledge interaction", "command", ev.Text, "error", err)
	}
}

func (b *Bot) stateChannelType(s *discordgo.Session) channelTypeFunc {
	return func(channelID string) (discordgo.ChannelType, bool) {
		if ch, err := s.State.Channel(channelID); err == nil {
			return ch.Type, true
		}
		ch, err := s.Channel(channelID)
		if err != nil {
			b.logger.Warn("failed to resolve channel", "channel", channelID, "error", err)
			return 0, false
		}
		return ch.Type, true
	}
}

// translateMessage converts a gateway message into a chat event. Messages
// written by bots are dropped.
func translateMessage(s messageSession, channelType channelTypeFunc, m *discordgo.Message) (chat.Event, bool) {
	if m == nil || m.Author == nil || m.Author.Bot {
		return chat.Event{}, false
	}

	ev := chat.Event{
		Ref: chat.MessageRef{
			ConversationID: m.ChannelID,
			MessageID:      m.ID,
			GuildID:        m.GuildID,
		},
		Kind:   conversationKind(m, channelType),
		Sender: chat.User{ID: m.Author.ID, Name: displayName(m.Author, m.Member)},
		Text:   m.Content,
	}

	if ref := m.MessageReference; ref != nil && ref.MessageID != "" {
		orig := m.ReferencedMessage
		if orig == nil {
			channelID := ref.ChannelID
			if channelID == "" {
				channelID = m.ChannelID
			}
			fetched, err := s.ChannelMessage(channelID, ref.MessageID)
			if err == nil {
				orig = fetched
			}
		}
		if orig != nil && orig.Author != nil {
			guildID := orig.GuildID
			if guildID == "" {
				guildID = m.GuildID
			}
			ev.ReplyTo = &chat.Message{
				Ref: chat.MessageRef{
					ConversationID: orig.ChannelID,
					MessageID:      orig.ID,
					GuildID:        guildID,
				},
				Author: chat.User{ID: orig.Author.ID, Name: displayName(orig.Author, orig.Member)},
				Text:   orig.Content,
			}
		}
	}
	return ev, true
}

func conversationKind(m *discordgo.Message, channelType channelTypeFunc) chat.ConversationKind {
	typ, known := channelType(m.ChannelID)
	if m.GuildID == "" {
		if known && typ == discordgo.ChannelTypeGroupDM {
			return chat.ConversationGroup
		}
		return chat.ConversationPrivate
	}
	if known && typ == discordgo.ChannelTypeGuildNews {
		return chat.ConversationBroadcast
	}
	return chat.ConversationGroup
}

func displayName(u *discordgo.User, member *discordgo.Member) string {
	if member != nil && member.Nick != "" {
		return member.Nick
	}
	return u.Username
}
