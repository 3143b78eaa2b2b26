package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/zapbot/internal/chat"
	"github.com/susu3304/zapbot/internal/commands"
)

// Handler consumes translated chat events.
type Handler interface {
	Handle(ctx context.Context, replier chat.Replier, ev chat.Event)
}

type Bot struct {
	session *discordgo.Session
	handler Handler
	replier *messageReplier
	logger  *slog.Logger
}

func New(token string, handler Handler, logger *slog.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	bot := &Bot{
		session: session,
		handler: handler,
		replier: &messageReplier{session: session},
		logger:  logger,
	}

	// Register event handlers
	session.AddHandler(bot.onReady)
	session.AddHandler(bot.onMessageCreate)
	session.AddHandler(bot.onInteractionCreate)

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	return bot, nil
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	b.logger.Info("discord bot is running")
	return nil
}

func (b *Bot) Stop() error {
	return b.session.Close()
}

// messageReplier threads replies to existing messages.
type messageReplier struct {
	session messageSession
}

func (r *messageReplier) Reply(ctx context.Context, to chat.MessageRef, text string) error {
	ref := &discordgo.MessageReference{
		MessageID: to.MessageID,
		ChannelID: to.ConversationID,
		GuildID:   to.GuildID,
	}
	if to.MessageID == "" {
		_, err := r.session.ChannelMessageSend(to.ConversationID, text, discordgo.WithContext(ctx))
		return err
	}
	_, err := r.session.ChannelMessageSendReply(to.ConversationID, text, ref, discordgo.WithContext(ctx))
	return err
}

var _ commands.InteractionSession = (*discordgo.Session)(nil)
