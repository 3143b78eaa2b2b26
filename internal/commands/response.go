package commands

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/zapbot/internal/chat"
)

// InteractionSession is the part of *discordgo.Session used to answer
// interactions.
type InteractionSession interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// InteractionReplier answers the first reply through the interaction
// response; Discord accepts only one, so later replies become plain channel
// messages.
type InteractionReplier struct {
	session     InteractionSession
	interaction *discordgo.Interaction

	mu        sync.Mutex
	responded bool
}

func NewInteractionReplier(s InteractionSession, i *discordgo.Interaction) *InteractionReplier {
	return &InteractionReplier{session: s, interaction: i}
}

func (r *InteractionReplier) Reply(ctx context.Context, to chat.MessageRef, text string) error {
	r.mu.Lock()
	first := !r.responded
	r.responded = true
	r.mu.Unlock()

	if first {
		return r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: text,
			},
		}, discordgo.WithContext(ctx))
	}
	_, err := r.session.ChannelMessageSend(to.ConversationID, text, discordgo.WithContext(ctx))
	return err
}

// msgNothingToDo answers a command that produced no reply of its own.
const msgNothingToDo = "Nothing to do, there is no wallet connection in progress."

// Acknowledge answers the interaction privately if nothing has replied to it
// yet. Discord reports an unanswered interaction as failed.
func (r *InteractionReplier) Acknowledge(ctx context.Context) error {
	r.mu.Lock()
	if r.responded {
		r.mu.Unlock()
		return nil
	}
	r.responded = true
	r.mu.Unlock()

	return r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msgNothingToDo,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}, discordgo.WithContext(ctx))
}

// EventFromInteraction turns a /connect or /cancel invocation into the same
// event a typed command would produce.
func EventFromInteraction(i *discordgo.InteractionCreate) (chat.Event, bool) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return chat.Event{}, false
	}
	data := i.ApplicationCommandData()
	if data.Name != Connect && data.Name != Cancel {
		return chat.Event{}, false
	}

	user := i.User
	if i.Member != nil && i.Member.User != nil {
		user = i.Member.User
	}
	if user == nil {
		return chat.Event{}, false
	}

	kind := chat.ConversationPrivate
	if i.GuildID != "" {
		kind = chat.ConversationGroup
	}

	return chat.Event{
		Ref: chat.MessageRef{
			ConversationID: i.ChannelID,
			GuildID:        i.GuildID,
		},
		Kind:   kind,
		Sender: chat.User{ID: user.ID, Name: user.Username},
		Text:   "/" + data.Name,
	}, true
}
