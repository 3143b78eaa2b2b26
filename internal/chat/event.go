// Package chat holds the platform-neutral view of inbound chat events and
// outbound replies. Transport adapters translate their native payloads into
// Event values and implement Replier.
package chat

import (
	"context"
	"strings"
)

// ConversationKind distinguishes one-to-one chats from multi-party ones.
type ConversationKind int

const (
	ConversationPrivate ConversationKind = iota
	ConversationGroup
	ConversationBroadcast
)

func (k ConversationKind) String() string {
	switch k {
	case ConversationPrivate:
		return "private"
	case ConversationGroup:
		return "group"
	case ConversationBroadcast:
		return "broadcast"
	default:
		return "unknown"
	}
}

// MultiParty reports whether more than two participants can see messages.
func (k ConversationKind) MultiParty() bool {
	return k == ConversationGroup || k == ConversationBroadcast
}

type User struct {
	ID   string
	Name string
}

// MessageRef addresses a single message so that a reply can be threaded to it.
type MessageRef struct {
	ConversationID string
	MessageID      string
	GuildID        string
}

// Message is a message that an event replies to.
type Message struct {
	Ref    MessageRef
	Author User
	Text   string
}

// Event is a single inbound message.
type Event struct {
	Ref     MessageRef
	Kind    ConversationKind
	Sender  User
	Text    string
	ReplyTo *Message
}

// Command returns the bot command carried by the event text ("/connect" ->
// "connect"), ignoring arguments and a Telegram-style "@botname" suffix.
func (e Event) Command() (string, bool) {
	text := strings.TrimSpace(e.Text)
	if !strings.HasPrefix(text, "/") || len(text) < 2 {
		return "", false
	}
	name := strings.Fields(text[1:])
	if len(name) == 0 {
		return "", false
	}
	cmd, _, _ := strings.Cut(name[0], "@")
	return strings.ToLower(cmd), cmd != ""
}

// ConversationKey identifies the dialog between one user and the bot inside
// one conversation.
func (e Event) ConversationKey() string {
	return e.Ref.ConversationID + ":" + e.Sender.ID
}

// Replier sends outbound text threaded to an existing message.
type Replier interface {
	Reply(ctx context.Context, to MessageRef, text string) error
}
