package zap

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/oklog/ulid/v2"
	"github.com/susu3304/zapbot/internal/processor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrDeclined means the processor itself reported a terminal failure.
	ErrDeclined = errors.New("payment declined by processor")
	// ErrTimedOut means the payment was still in flight when polling stopped.
	ErrTimedOut = errors.New("payment did not settle in time")

	errStillSending = errors.New("payment still sending")
)

// PaymentClient is the part of the processor API a dispatch needs.
type PaymentClient interface {
	CreatePayment(ctx context.Context, senderID, receiverID string, amount int64, currency string) (*processor.Payment, error)
	GetPayment(ctx context.Context, id string) (*processor.Payment, error)
}

// PollPolicy bounds completion polling. Timeout is always enforced;
// MaxAttempts of zero leaves the attempt count to the timeout.
type PollPolicy struct {
	Interval    time.Duration
	Timeout     time.Duration
	MaxAttempts uint
}

var DefaultPollPolicy = PollPolicy{
	Interval: 5 * time.Second,
	Timeout:  2 * time.Minute,
}

type Dispatcher struct {
	client PaymentClient
	poll   PollPolicy
	logger *slog.Logger
	tracer trace.Tracer
}

func NewDispatcher(client PaymentClient, poll PollPolicy, logger *slog.Logger) *Dispatcher {
	if poll.Interval <= 0 {
		poll.Interval = DefaultPollPolicy.Interval
	}
	if poll.Timeout <= 0 {
		poll.Timeout = DefaultPollPolicy.Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		client: client,
		poll:   poll,
		logger: logger,
		tracer: otel.Tracer("github.com/susu3304/zapbot/internal/zap"),
	}
}

// Dispatch creates the payment and, while the processor reports it as
// sending, polls until it settles. It returns true only for a confirmed
// payment. The error tells a processor decline (ErrDeclined) apart from an
// unreachable processor (*processor.TransportError) and an expired poll
// (ErrTimedOut). req.Status always ends terminal.
func (d *Dispatcher) Dispatch(ctx context.Context, req *PaymentRequest) (paid bool, err error) {
	dispatchID := ulid.MustNew(ulid.Now(), rand.Reader).String()
	logger := d.logger.With(
		"dispatch_id", dispatchID,
		"sender", req.SenderIdentity,
		"receiver", req.ReceiverIdentity,
		"amount", req.Amount,
		"currency", req.Currency,
	)

	ctx, span := d.tracer.Start(ctx, "zap.Dispatch", trace.WithAttributes(
		attribute.String("zap.dispatch_id", dispatchID),
		attribute.Int64("zap.amount", req.Amount),
		attribute.String("zap.currency", req.Currency),
	))
	defer func() {
		span.SetAttributes(attribute.String("zap.status", req.Status.String()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, req.Status.String())
		}
		span.End()
	}()

	req.Status = StatusCreated
	payment, err := d.client.CreatePayment(ctx, req.SenderIdentity, req.ReceiverIdentity, req.Amount, req.Currency)
	if err != nil {
		req.Status = StatusFailed
		logger.Warn("create payment failed", "error", err)
		return false, err
	}

	req.ExternalPaymentID = payment.ID
	req.Status = statusFromProcessor(payment.Status)
	logger = logger.With("payment_id", payment.ID)
	logger.Info("payment created", "status", payment.Status)

	switch req.Status {
	case StatusPaid:
		return true, nil
	case StatusSending:
		return d.await(ctx, req, logger)
	default:
		return false, fmt.Errorf("%w: status %q", ErrDeclined, payment.Status)
	}
}

func (d *Dispatcher) await(ctx context.Context, req *PaymentRequest, logger *slog.Logger) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, d.poll.Timeout)
	defer cancel()

	polls := 0
	poll := func() (string, error) {
		polls++
		p, err := d.client.GetPayment(ctx, req.ExternalPaymentID)
		if err != nil {
			return "", backoff.Permanent(err)
		}
		if statusFromProcessor(p.Status) == StatusSending {
			return "", errStillSending
		}
		return p.Status, nil
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(backoff.NewConstantBackOff(d.poll.Interval)),
		backoff.WithMaxElapsedTime(d.poll.Timeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Debug("payment still in flight", "next_poll", next)
		}),
	}
	if d.poll.MaxAttempts > 0 {
		opts = append(opts, backoff.WithMaxTries(d.poll.MaxAttempts))
	}

	status, err := backoff.Retry(ctx, poll, opts...)
	switch {
	case err == nil:
		req.Status = statusFromProcessor(status)
		if req.Status == StatusPaid {
			logger.Info("payment completed", "polls", polls)
			return true, nil
		}
		logger.Info("payment failed", "status", status, "polls", polls)
		return false, fmt.Errorf("%w: status %q", ErrDeclined, status)
	case errors.Is(err, errStillSending), ctx.Err() != nil:
		req.Status = StatusTimedOut
		logger.Warn("payment polling gave up", "polls", polls, "error", err)
		return false, fmt.Errorf("%w after %d polls", ErrTimedOut, polls)
	default:
		req.Status = StatusFailed
		logger.Warn("payment polling failed", "polls", polls, "error", err)
		return false, err
	}
}
