package processor

import (
	"errors"
	"fmt"
)

// Payment statuses reported by the processor. Anything other than these two
// is a terminal failure.
const (
	StatusSending = "sending"
	StatusPaid    = "paid"
)

var (
	// ErrUnexpectedStatus marks a response whose HTTP status is not the one the
	// contract defines as success.
	ErrUnexpectedStatus = errors.New("unexpected response status")
	// ErrInvalidRequest marks a request rejected before it was sent.
	ErrInvalidRequest = errors.New("invalid request")
)

// TransportError reports a processor call that did not succeed at the HTTP
// level: network failure, non-success status or an undecodable body.
type TransportError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("processor %s: status %d: %v: %s", e.Op, e.StatusCode, e.Err, e.Body)
	}
	return fmt.Sprintf("processor %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NWCConnection is the wallet-connection descriptor the processor uses to
// operate the wallet on the user's behalf.
type NWCConnection struct {
	NWCURL        string `json:"nwcUrl" validate:"required"`
	ConnectorName string `json:"connectorName" validate:"required"`
	ConnectorType string `json:"connectorType" validate:"required"`
}

// UserRequest is the body of POST and PATCH /v0/user.
type UserRequest struct {
	LNAddress     string        `json:"lnAddress" validate:"required"`
	NWCConnection NWCConnection `json:"nwcConnection"`
}

type User struct {
	ID string `json:"id"`
}

// PaymentRequest is the body of POST /v0/payment.
type PaymentRequest struct {
	SenderID   string `json:"senderId" validate:"required"`
	ReceiverID string `json:"receiverId" validate:"required"`
	Amount     int64  `json:"amount" validate:"gt=0"`
	Currency   string `json:"currency" validate:"required"`
}

type Payment struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
