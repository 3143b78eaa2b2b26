// Package zap decides when a chat reply is a zap and carries the resulting
// payment through the processor.
package zap

import (
	"strings"

	"github.com/susu3304/zapbot/internal/chat"
	"github.com/susu3304/zapbot/internal/processor"
)

type Status int

const (
	StatusCreated Status = iota
	StatusSending
	StatusPaid
	StatusFailed
	StatusCancelled
	StatusTimedOut
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusSending:
		return "sending"
	case StatusPaid:
		return "paid"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	case StatusTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen.
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusFailed || s == StatusCancelled || s == StatusTimedOut
}

func statusFromProcessor(status string) Status {
	switch strings.ToLower(status) {
	case processor.StatusSending:
		return StatusSending
	case processor.StatusPaid:
		return StatusPaid
	case "cancelled", "canceled":
		return StatusCancelled
	default:
		return StatusFailed
	}
}

// PaymentRequest is one zap in flight. It is owned by the Dispatch call
// handling it and dropped once Status is terminal.
type PaymentRequest struct {
	SenderIdentity    string
	ReceiverIdentity  string
	Amount            int64
	Currency          string
	ExternalPaymentID string
	Status            Status

	// Chat side, used for notifications.
	Sender      chat.User
	Receiver    chat.User
	SenderMsg   chat.MessageRef
	ReceiverMsg chat.MessageRef
}
