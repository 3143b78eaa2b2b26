package zap

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/susu3304/zapbot/internal/chat"
	"github.com/susu3304/zapbot/internal/identity"
)

type failingStore struct{ identity.MemoryStore }

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, &identity.StorageError{Op: "get", Err: errors.New("connection reset")}
}

func registeredStore(t *testing.T) *identity.MemoryStore {
	t.Helper()
	s := identity.NewMemoryStore()
	require.NoError(t, s.Put(context.Background(), "alice", "proc-a"))
	require.NoError(t, s.Put(context.Background(), "bob", "proc-b"))
	return s
}

func zapEvent() chat.Event {
	return chat.Event{
		Ref:    chat.MessageRef{ConversationID: "chan-1", MessageID: "m2", GuildID: "g1"},
		Kind:   chat.ConversationGroup,
		Sender: chat.User{ID: "bob", Name: "Bob"},
		Text:   "⚡ nice",
		ReplyTo: &chat.Message{
			Ref:    chat.MessageRef{ConversationID: "chan-1", MessageID: "m1", GuildID: "g1"},
			Author: chat.User{ID: "alice", Name: "Alice"},
			Text:   "hello",
		},
	}
}

func TestEvaluateTriggers(t *testing.T) {
	d := NewDetector(registeredStore(t), DefaultPolicy)

	req, outcome, err := d.Evaluate(context.Background(), zapEvent())
	require.NoError(t, err)
	assert.Equal(t, OutcomeTriggered, outcome)
	require.NotNil(t, req)

	assert.Equal(t, "proc-b", req.SenderIdentity)
	assert.Equal(t, "proc-a", req.ReceiverIdentity)
	assert.Equal(t, int64(21), req.Amount)
	assert.Equal(t, "SAT", req.Currency)
	assert.Equal(t, StatusCreated, req.Status)
	assert.Equal(t, "Bob", req.Sender.Name)
	assert.Equal(t, "Alice", req.Receiver.Name)
	assert.Equal(t, "m2", req.SenderMsg.MessageID)
	assert.Equal(t, "m1", req.ReceiverMsg.MessageID)
}

func TestEvaluateBroadcastTriggers(t *testing.T) {
	d := NewDetector(registeredStore(t), DefaultPolicy)
	ev := zapEvent()
	ev.Kind = chat.ConversationBroadcast

	req, outcome, err := d.Evaluate(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeTriggered, outcome)
	assert.NotNil(t, req)
}

func TestEvaluateMissingCondition(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*chat.Event)
		outcome Outcome
	}{
		{"private conversation", func(e *chat.Event) { e.Kind = chat.ConversationPrivate }, OutcomeIgnored},
		{"not a reply", func(e *chat.Event) { e.ReplyTo = nil }, OutcomeIgnored},
		{"reply without author", func(e *chat.Event) { e.ReplyTo.Author = chat.User{} }, OutcomeIgnored},
		{"no trigger symbol", func(e *chat.Event) { e.Text = "nice" }, OutcomeIgnored},
		{"empty text", func(e *chat.Event) { e.Text = "" }, OutcomeIgnored},
		{"sender unregistered", func(e *chat.Event) { e.Sender = chat.User{ID: "carol", Name: "Carol"} }, OutcomeUnregistered},
		{"receiver unregistered", func(e *chat.Event) { e.ReplyTo.Author = chat.User{ID: "dave", Name: "Dave"} }, OutcomeUnregistered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(registeredStore(t), DefaultPolicy)
			ev := zapEvent()
			tt.mutate(&ev)

			req, outcome, err := d.Evaluate(context.Background(), ev)
			require.NoError(t, err)
			assert.Nil(t, req)
			assert.Equal(t, tt.outcome, outcome)
		})
	}
}

func TestEvaluateCustomPolicy(t *testing.T) {
	d := NewDetector(registeredStore(t), Policy{Trigger: "🍺", Amount: 100, Currency: "SAT"})

	ev := zapEvent()
	_, outcome, err := d.Evaluate(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome, "default trigger no longer fires")

	ev.Text = "cheers 🍺"
	req, outcome, err := d.Evaluate(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, OutcomeTriggered, outcome)
	assert.Equal(t, int64(100), req.Amount)
}

func TestEvaluateStoreFailure(t *testing.T) {
	d := NewDetector(&failingStore{}, DefaultPolicy)

	req, _, err := d.Evaluate(context.Background(), zapEvent())
	assert.Nil(t, req)
	var se *identity.StorageError
	assert.ErrorAs(t, err, &se)
}

func TestNewDetectorDefaults(t *testing.T) {
	d := NewDetector(identity.NewMemoryStore(), Policy{})
	assert.Equal(t, DefaultPolicy, d.policy)
}
