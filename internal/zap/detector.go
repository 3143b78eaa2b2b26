package zap

import (
	"context"
	"fmt"
	"strings"

	"github.com/susu3304/zapbot/internal/chat"
	"github.com/susu3304/zapbot/internal/identity"
)

// Policy fixes the trigger symbol and the amount paid per zap.
type Policy struct {
	Trigger  string
	Amount   int64
	Currency string
}

var DefaultPolicy = Policy{Trigger: "⚡", Amount: 21, Currency: "SAT"}

// Outcome is the result of evaluating one event.
type Outcome int

const (
	// OutcomeIgnored means the event is not a zap; nothing is sent.
	OutcomeIgnored Outcome = iota
	// OutcomeUnregistered means a zap was requested but a participant has no
	// identity; the sender is asked to register.
	OutcomeUnregistered
	// OutcomeTriggered means a PaymentRequest was produced.
	OutcomeTriggered
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeUnregistered:
		return "unregistered"
	case OutcomeTriggered:
		return "triggered"
	default:
		return "unknown"
	}
}

type Detector struct {
	store  identity.Store
	policy Policy
}

func NewDetector(store identity.Store, policy Policy) *Detector {
	if policy.Trigger == "" {
		policy.Trigger = DefaultPolicy.Trigger
	}
	if policy.Amount <= 0 {
		policy.Amount = DefaultPolicy.Amount
	}
	if policy.Currency == "" {
		policy.Currency = DefaultPolicy.Currency
	}
	return &Detector{store: store, policy: policy}
}

// Evaluate returns a PaymentRequest only when the event is a reply, in a
// multi-party conversation, containing the trigger, and both the replier and
// the original author are registered.
func (d *Detector) Evaluate(ctx context.Context, ev chat.Event) (*PaymentRequest, Outcome, error) {
	if !ev.Kind.MultiParty() || ev.ReplyTo == nil || ev.ReplyTo.Author.ID == "" {
		return nil, OutcomeIgnored, nil
	}
	if !strings.Contains(ev.Text, d.policy.Trigger) {
		return nil, OutcomeIgnored, nil
	}

	senderID, senderOK, err := d.store.Get(ctx, ev.Sender.ID)
	if err != nil {
		return nil, OutcomeIgnored, fmt.Errorf("lookup sender %s: %w", ev.Sender.ID, err)
	}
	receiverID, receiverOK, err := d.store.Get(ctx, ev.ReplyTo.Author.ID)
	if err != nil {
		return nil, OutcomeIgnored, fmt.Errorf("lookup receiver %s: %w", ev.ReplyTo.Author.ID, err)
	}
	if !senderOK || !receiverOK {
		return nil, OutcomeUnregistered, nil
	}

	return &PaymentRequest{
		SenderIdentity:   senderID,
		ReceiverIdentity: receiverID,
		Amount:           d.policy.Amount,
		Currency:         d.policy.Currency,
		Status:           StatusCreated,
		Sender:           ev.Sender,
		Receiver:         ev.ReplyTo.Author,
		SenderMsg:        ev.Ref,
		ReceiverMsg:      ev.ReplyTo.Ref,
	}, OutcomeTriggered, nil
}
