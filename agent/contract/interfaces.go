package contract

import "context"

// Agent is one conversational specialist. Execute reports domain outcomes
// through AgentResponse.Status; a non-nil error means infrastructure failure.
type Agent interface {
	ID() AgentID
	Name() string
	Description() string
	Execute(ctx context.Context, req AgentRequest) (AgentResponse, error)
}

type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

type ProfileStore interface {
	GetByPhone(ctx context.Context, phone string) (*UserProfile, error)
}

type ProfileWriter interface {
	ProfileStore
	SaveProfile(ctx context.Context, profile *UserProfile) error
}

// HistoryStore keeps the ordered turns of a session. GetHistory returns the
// last limit turns (all when limit <= 0) and an empty slice for unknown
// sessions. SaveHistory appends turns after the stored ones.
type HistoryStore interface {
	GetHistory(ctx context.Context, sessionID string, limit int) ([]Turn, error)
	SaveHistory(ctx context.Context, sessionID string, turns []Turn) error
}

type Messenger interface {
	SendText(ctx context.Context, phone string, text string) error
	SendDocument(ctx context.Context, phone string, doc Document) error
}
