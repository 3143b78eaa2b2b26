package onboarding

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/susu3304/zapbot/internal/chat"
	"github.com/susu3304/zapbot/internal/identity"
	"github.com/susu3304/zapbot/internal/processor"
)

const (
	CommandConnect = "connect"
	CommandCancel  = "cancel"
)

// Registrar creates the processor identity for a finished dialog.
type Registrar interface {
	CreateIdentity(ctx context.Context, lnAddress, nwcURL string) (*processor.User, error)
}

// DefaultIdleTimeout is how long an unanswered dialog survives.
const DefaultIdleTimeout = 30 * time.Minute

// conversation serializes the events of one dialog. session is guarded by mu;
// refs, stage and touched are guarded by the controller's mu.
type conversation struct {
	mu      sync.Mutex
	session *Session

	refs    int
	stage   Stage
	touched time.Time
}

type Controller struct {
	registrar   Registrar
	store       identity.Store
	logger      *slog.Logger
	idleTimeout time.Duration
	now         func() time.Time

	mu    sync.Mutex
	convs map[string]*conversation
}

type Option func(*Controller)

// WithIdleTimeout sets how long a dialog may wait for the next answer before
// it is dropped.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.idleTimeout = d
		}
	}
}

func NewController(registrar Registrar, store identity.Store, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		registrar:   registrar,
		store:       store,
		logger:      logger,
		idleTimeout: DefaultIdleTimeout,
		now:         time.Now,
		convs:       make(map[string]*conversation),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Wants reports whether ev belongs to onboarding: a /connect or /cancel
// command, or any message in a conversation with an active dialog.
func (c *Controller) Wants(ev chat.Event) bool {
	if cmd, ok := ev.Command(); ok && (cmd == CommandConnect || cmd == CommandCancel) {
		return true
	}
	return c.Active(ev.ConversationKey())
}

// Active reports whether the conversation has a dialog in progress.
func (c *Controller) Active(key string) bool {
	return c.Stage(key) != 0
}

// Stage returns the stage of the dialog for key, or zero when none is active.
func (c *Controller) Stage(key string) Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	if conv, ok := c.convs[key]; ok && !c.expired(conv, c.now()) {
		return conv.stage
	}
	return 0
}

func (c *Controller) expired(conv *conversation, now time.Time) bool {
	return now.Sub(conv.touched) > c.idleTimeout
}

func (c *Controller) acquire(key string) *conversation {
	c.mu.Lock()
	conv, ok := c.convs[key]
	if !ok {
		conv = &conversation{}
		c.convs[key] = conv
	}
	conv.refs++
	c.mu.Unlock()

	conv.mu.Lock()
	return conv
}

// release publishes the dialog state for Active, Stage and Sweep before
// giving up the conversation.
func (c *Controller) release(key string, conv *conversation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conv.stage = 0
	if conv.session != nil {
		conv.stage = conv.session.Stage
	}
	conv.touched = c.now()
	conv.refs--
	conv.mu.Unlock()

	if conv.refs == 0 && conv.stage == 0 {
		delete(c.convs, key)
	}
}

// Sweep drops dialogs that have been idle for longer than the idle timeout
// and returns how many were dropped.
func (c *Controller) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	dropped := 0
	for key, conv := range c.convs {
		if conv.refs == 0 && c.expired(conv, now) {
			delete(c.convs, key)
			dropped++
		}
	}
	return dropped
}

// Run sweeps idle dialogs every interval until ctx is done.
func (c *Controller) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				c.logger.Info("dropped idle onboarding dialogs", "count", n)
			}
		}
	}
}

// Handle applies one event to the dialog of its conversation. Events of the
// same conversation are handled one at a time.
func (c *Controller) Handle(ctx context.Context, ev chat.Event) Result {
	key := ev.ConversationKey()
	conv := c.acquire(key)
	defer c.release(key, conv)

	logger := c.logger.With("conversation", key)

	if conv.session != nil && c.expired(conv, c.now()) {
		conv.session = nil
		logger.Info("onboarding expired")
	}

	if cmd, ok := ev.Command(); ok {
		switch cmd {
		case CommandConnect:
			if ev.Kind != chat.ConversationPrivate {
				return Result{Outcome: OutcomeWrongConversation, Reply: msgPrivateOnly}
			}
			outcome := OutcomeStarted
			if conv.session != nil {
				outcome = OutcomeRestarted
			}
			conv.session = &Session{Stage: StageAwaitingSecret}
			logger.Info("onboarding started")
			return Result{Outcome: outcome, Reply: msgAskSecret}
		case CommandCancel:
			if conv.session == nil {
				return Result{Outcome: OutcomeNone}
			}
			conv.session = nil
			logger.Info("onboarding cancelled")
			return Result{Outcome: OutcomeCancelled, Reply: msgCancelled}
		default:
			return Result{Outcome: OutcomeNone}
		}
	}

	sess := conv.session
	if sess == nil {
		return Result{Outcome: OutcomeNone}
	}
	text := strings.TrimSpace(ev.Text)

	switch sess.Stage {
	case StageAwaitingSecret:
		sess.WalletSecret = text
		sess.Stage = StageAwaitingAddress
		return Result{Outcome: OutcomeAdvanced, Reply: msgAskAddress}
	case StageAwaitingAddress:
		sess.PaymentAddress = text
		sess.Stage = StageAwaitingAmount
		return Result{Outcome: OutcomeAdvanced, Reply: msgAskAmount}
	case StageAwaitingAmount:
		amount, err := strconv.ParseInt(text, 10, 64)
		if err != nil || amount <= 0 {
			return Result{Outcome: OutcomeInvalidAmount, Reply: msgInvalidAmount}
		}
		sess.DefaultAmount = amount
		sess.Stage = StageComplete
		conv.session = nil
		return c.register(ctx, logger, ev.Sender.ID, sess)
	default:
		conv.session = nil
		return Result{Outcome: OutcomeNone}
	}
}

func (c *Controller) register(ctx context.Context, logger *slog.Logger, chatUserID string, sess *Session) Result {
	user, err := c.registrar.CreateIdentity(ctx, sess.PaymentAddress, sess.WalletSecret)
	if err != nil {
		logger.Warn("identity registration failed", "error", err)
		return Result{Outcome: OutcomeRegistrationFailed, Reply: msgRegistrationFailed}
	}
	if err := c.store.Put(ctx, chatUserID, user.ID); err != nil {
		logger.Error("failed to save identity mapping", "processor_id", user.ID, "error", err)
		return Result{Outcome: OutcomeRegistrationFailed, Reply: msgRegistrationFailed}
	}
	logger.Info("identity registered", "processor_id", user.ID)
	return Result{Outcome: OutcomeRegistered, Reply: fmt.Sprintf(msgRegistered, sess.DefaultAmount)}
}
