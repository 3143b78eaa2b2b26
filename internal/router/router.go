// Package router is the single entry point for inbound chat events.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/susu3304/zapbot/internal/chat"
	"github.com/susu3304/zapbot/internal/onboarding"
	"github.com/susu3304/zapbot/internal/zap"
)

const (
	msgUnregistered = "You are not registered. Please use the /connect command to register."
	msgZapSent      = "Zap sent to %s!"
	msgZapReceived  = "You received a Zap from %s!"

	defaultDispatchTimeout = 3 * time.Minute
)

type Onboarding interface {
	Wants(ev chat.Event) bool
	Handle(ctx context.Context, ev chat.Event) onboarding.Result
}

type Detector interface {
	Evaluate(ctx context.Context, ev chat.Event) (*zap.PaymentRequest, zap.Outcome, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, req *zap.PaymentRequest) (bool, error)
}

type Router struct {
	onboarding Onboarding
	detector   Detector
	dispatcher Dispatcher
	logger     *slog.Logger

	dispatchTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	// mu orders wg.Add against Close so no dispatch starts once Close waits.
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

type Option func(*Router)

// WithDispatchTimeout bounds a whole dispatch, notifications included.
func WithDispatchTimeout(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.dispatchTimeout = d
		}
	}
}

func New(ob Onboarding, det Detector, disp Dispatcher, logger *slog.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Router{
		onboarding:      ob,
		detector:        det,
		dispatcher:      disp,
		logger:          logger,
		dispatchTimeout: defaultDispatchTimeout,
		ctx:             ctx,
		cancel:          cancel,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle routes one event. Onboarding replies are sent before Handle returns;
// a triggered zap is dispatched in its own goroutine so a slow payment never
// holds up other events.
// Events arriving after Close are dropped.
func (r *Router) Handle(ctx context.Context, replier chat.Replier, ev chat.Event) {
	if r.ctx.Err() != nil {
		r.logger.Debug("router closed, dropping event", "conversation", ev.Ref.ConversationID)
		return
	}
	if r.onboarding.Wants(ev) {
		res := r.onboarding.Handle(ctx, ev)
		if res.Reply == "" {
			return
		}
		r.reply(ctx, replier, ev.Ref, res.Reply)
		return
	}

	req, outcome, err := r.detector.Evaluate(ctx, ev)
	if err != nil {
		r.logger.Error("zap evaluation failed", "conversation", ev.Ref.ConversationID, "error", err)
		return
	}
	switch outcome {
	case zap.OutcomeUnregistered:
		r.reply(ctx, replier, ev.Ref, msgUnregistered)
	case zap.OutcomeTriggered:
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed {
			r.logger.Info("router closed, zap dropped", "sender", req.Sender.ID)
			return
		}
		r.wg.Add(1)
		go r.dispatch(replier, req)
	}
}

func (r *Router) dispatch(replier chat.Replier, req *zap.PaymentRequest) {
	defer r.wg.Done()
	ctx, cancel := context.WithTimeout(r.ctx, r.dispatchTimeout)
	defer cancel()

	paid, err := r.dispatcher.Dispatch(ctx, req)
	if !paid {
		r.logger.Info("zap not delivered", "status", req.Status.String(), "error", err)
		return
	}
	r.reply(ctx, replier, req.SenderMsg, fmt.Sprintf(msgZapSent, displayName(req.Receiver)))
	r.reply(ctx, replier, req.ReceiverMsg, fmt.Sprintf(msgZapReceived, displayName(req.Sender)))
}

func (r *Router) reply(ctx context.Context, replier chat.Replier, to chat.MessageRef, text string) {
	if err := replier.Reply(ctx, to, text); err != nil {
		r.logger.Warn("failed to send reply", "conversation", to.ConversationID, "message", to.MessageID, "error", err)
	}
}

// Wait blocks until every dispatch started so far has finished.
func (r *Router) Wait() {
	r.wg.Wait()
}

// Close cancels in-flight dispatches and waits for them.
func (r *Router) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
}

func displayName(u chat.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.ID
}
