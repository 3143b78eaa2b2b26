// Package onboarding walks a user through registering a payment identity in a
// private conversation with the bot.
package onboarding

// Stage is the step an onboarding dialog is waiting on. Stages only move
// forward.
type Stage int

const (
	StageAwaitingSecret Stage = iota + 1
	StageAwaitingAddress
	StageAwaitingAmount
	StageComplete
)

func (s Stage) String() string {
	switch s {
	case StageAwaitingSecret:
		return "awaiting_secret"
	case StageAwaitingAddress:
		return "awaiting_address"
	case StageAwaitingAmount:
		return "awaiting_amount"
	case StageComplete:
		return "complete"
	default:
		return "none"
	}
}

// Session is the state of one in-progress dialog. It lives in process memory
// only.
type Session struct {
	Stage          Stage
	WalletSecret   string
	PaymentAddress string
	DefaultAmount  int64
}

// Outcome names what a handled event did to the dialog.
type Outcome int

const (
	// OutcomeNone means the event was not for onboarding and nothing was sent.
	OutcomeNone Outcome = iota
	OutcomeStarted
	OutcomeRestarted
	OutcomeAdvanced
	OutcomeInvalidAmount
	OutcomeRegistered
	OutcomeRegistrationFailed
	OutcomeCancelled
	OutcomeWrongConversation
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeStarted:
		return "started"
	case OutcomeRestarted:
		return "restarted"
	case OutcomeAdvanced:
		return "advanced"
	case OutcomeInvalidAmount:
		return "invalid_amount"
	case OutcomeRegistered:
		return "registered"
	case OutcomeRegistrationFailed:
		return "registration_failed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeWrongConversation:
		return "wrong_conversation"
	default:
		return "unknown"
	}
}

// Result is the reply produced for one event. Reply is empty for OutcomeNone.
type Result struct {
	Outcome Outcome
	Reply   string
}

const (
	msgPrivateOnly        = "Please use the /connect command in a private chat with me."
	msgAskSecret          = "Please send your NWC URI:"
	msgAskAddress         = "NWC URI set. Now, send your Lightning address:"
	msgAskAmount          = "Lightning address set. Finally, set your default Zap amount:"
	msgInvalidAmount      = "Please enter a valid positive number for the Zap amount."
	msgRegistered         = "Default Zap amount set to %d sats. Configuration complete."
	msgRegistrationFailed = "Registration failed. Please run /connect again."
	msgCancelled          = "Operation cancelled."
)
