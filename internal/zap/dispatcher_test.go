package zap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/susu3304/zapbot/internal/processor"
)

type pollResult struct {
	status string
	err    error
}

// scriptedClient answers CreatePayment with create and each GetPayment with
// the next entry of polls, repeating the last one when exhausted.
type scriptedClient struct {
	mu        sync.Mutex
	create    pollResult
	polls     []pollResult
	created   []processor.PaymentRequest
	pollCalls int
}

func (c *scriptedClient) CreatePayment(_ context.Context, senderID, receiverID string, amount int64, currency string) (*processor.Payment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.created = append(c.created, processor.PaymentRequest{SenderID: senderID, ReceiverID: receiverID, Amount: amount, Currency: currency})
	if c.create.err != nil {
		return nil, c.create.err
	}
	return &processor.Payment{ID: "pay-1", Status: c.create.status}, nil
}

func (c *scriptedClient) GetPayment(_ context.Context, id string) (*processor.Payment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.pollCalls
	if idx >= len(c.polls) {
		idx = len(c.polls) - 1
	}
	c.pollCalls++
	r := c.polls[idx]
	if r.err != nil {
		return nil, r.err
	}
	return &processor.Payment{ID: id, Status: r.status}, nil
}

func (c *scriptedClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pollCalls
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastPolicy() PollPolicy {
	return PollPolicy{Interval: time.Millisecond, Timeout: 2 * time.Second}
}

func newRequest() *PaymentRequest {
	return &PaymentRequest{SenderIdentity: "proc-b", ReceiverIdentity: "proc-a", Amount: 21, Currency: "SAT"}
}

func TestDispatch(t *testing.T) {
	transportErr := &processor.TransportError{Op: "get payment", StatusCode: 502, Err: processor.ErrUnexpectedStatus}

	tests := []struct {
		name       string
		create     pollResult
		polls      []pollResult
		wantPaid   bool
		wantPolls  int
		wantStatus Status
		wantErr    error
	}{
		{
			name:       "paid immediately",
			create:     pollResult{status: "paid"},
			wantPaid:   true,
			wantStatus: StatusPaid,
		},
		{
			name:       "sending then paid",
			create:     pollResult{status: "sending"},
			polls:      []pollResult{{status: "sending"}, {status: "paid"}},
			wantPaid:   true,
			wantPolls:  2,
			wantStatus: StatusPaid,
		},
		{
			name:       "sending then failed",
			create:     pollResult{status: "sending"},
			polls:      []pollResult{{status: "failed"}},
			wantPolls:  1,
			wantStatus: StatusFailed,
			wantErr:    ErrDeclined,
		},
		{
			name:       "sending then cancelled",
			create:     pollResult{status: "sending"},
			polls:      []pollResult{{status: "sending"}, {status: "cancelled"}},
			wantPolls:  2,
			wantStatus: StatusCancelled,
			wantErr:    ErrDeclined,
		},
		{
			name:       "unknown create status is a decline",
			create:     pollResult{status: "pending_review"},
			wantStatus: StatusFailed,
			wantErr:    ErrDeclined,
		},
		{
			name:       "create transport failure",
			create:     pollResult{err: &processor.TransportError{Op: "create payment", StatusCode: 500, Err: processor.ErrUnexpectedStatus}},
			wantStatus: StatusFailed,
			wantErr:    processor.ErrUnexpectedStatus,
		},
		{
			name:       "poll transport failure stops polling",
			create:     pollResult{status: "sending"},
			polls:      []pollResult{{status: "sending"}, {err: transportErr}},
			wantPolls:  2,
			wantStatus: StatusFailed,
			wantErr:    processor.ErrUnexpectedStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &scriptedClient{create: tt.create, polls: tt.polls}
			d := NewDispatcher(client, fastPolicy(), quietLogger())
			req := newRequest()

			paid, err := d.Dispatch(context.Background(), req)

			assert.Equal(t, tt.wantPaid, paid)
			assert.Equal(t, tt.wantPolls, client.calls())
			assert.Equal(t, tt.wantStatus, req.Status)
			assert.True(t, req.Status.Terminal())
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			require.Len(t, client.created, 1)
			assert.Equal(t, processor.PaymentRequest{SenderID: "proc-b", ReceiverID: "proc-a", Amount: 21, Currency: "SAT"}, client.created[0])
		})
	}
}

func TestDispatchTransportErrorIsDistinguishable(t *testing.T) {
	client := &scriptedClient{
		create: pollResult{status: "sending"},
		polls:  []pollResult{{err: &processor.TransportError{Op: "get payment", Err: errors.New("connection refused")}}},
	}
	d := NewDispatcher(client, fastPolicy(), quietLogger())

	paid, err := d.Dispatch(context.Background(), newRequest())
	assert.False(t, paid)
	var te *processor.TransportError
	assert.ErrorAs(t, err, &te)
	assert.NotErrorIs(t, err, ErrDeclined)
}

func TestDispatchTimesOut(t *testing.T) {
	client := &scriptedClient{create: pollResult{status: "sending"}, polls: []pollResult{{status: "sending"}}}
	d := NewDispatcher(client, PollPolicy{Interval: 5 * time.Millisecond, Timeout: 40 * time.Millisecond}, quietLogger())
	req := newRequest()

	start := time.Now()
	paid, err := d.Dispatch(context.Background(), req)

	assert.False(t, paid)
	assert.ErrorIs(t, err, ErrTimedOut)
	assert.Equal(t, StatusTimedOut, req.Status)
	assert.Less(t, time.Since(start), time.Second)
	assert.GreaterOrEqual(t, client.calls(), 1)
}

func TestDispatchMaxAttempts(t *testing.T) {
	client := &scriptedClient{create: pollResult{status: "sending"}, polls: []pollResult{{status: "sending"}}}
	d := NewDispatcher(client, PollPolicy{Interval: time.Millisecond, Timeout: time.Minute, MaxAttempts: 3}, quietLogger())
	req := newRequest()

	paid, err := d.Dispatch(context.Background(), req)

	assert.False(t, paid)
	assert.ErrorIs(t, err, ErrTimedOut)
	assert.Equal(t, 3, client.calls())
	assert.Equal(t, StatusTimedOut, req.Status)
}

func TestDispatchHonoursCancellation(t *testing.T) {
	client := &scriptedClient{create: pollResult{status: "sending"}, polls: []pollResult{{status: "sending"}}}
	d := NewDispatcher(client, PollPolicy{Interval: 10 * time.Millisecond, Timeout: time.Minute}, quietLogger())
	req := newRequest()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	paid, err := d.Dispatch(ctx, req)
	assert.False(t, paid)
	assert.ErrorIs(t, err, ErrTimedOut)
	assert.Equal(t, StatusTimedOut, req.Status)
}

func TestNewDispatcherDefaults(t *testing.T) {
	d := NewDispatcher(&scriptedClient{}, PollPolicy{}, nil)
	assert.Equal(t, DefaultPollPolicy.Interval, d.poll.Interval)
	assert.Equal(t, DefaultPollPolicy.Timeout, d.poll.Timeout)
	assert.NotNil(t, d.logger)
}

func TestStatusFromProcessor(t *testing.T) {
	tests := map[string]Status{
		"sending":   StatusSending,
		"paid":      StatusPaid,
		"PAID":      StatusPaid,
		"failed":    StatusFailed,
		"cancelled": StatusCancelled,
		"canceled":  StatusCancelled,
		"":          StatusFailed,
		"expired":   StatusFailed,
	}
	for in, want := range tests {
		assert.Equal(t, want, statusFromProcessor(in), in)
	}
	assert.False(t, StatusSending.Terminal())
	assert.False(t, StatusCreated.Terminal())
}
