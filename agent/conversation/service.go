package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
	sessionx "github.com/tanpawarit/dikas-orlando/agent/session"
	logx "github.com/tanpawarit/dikas-orlando/pkg/logger"
)

const defaultContextSize = 80

type Config struct {
	ContextSize int `envconfig:"CONTEXT_SIZE" split_words:"true" default:"80"`
}

// Router is the orchestrator as seen from the conversation layer.
type Router interface {
	Execute(ctx context.Context, turns []contractx.Turn, sessionKey string) (contractx.AgentResponse, error)
}

// Profiles creates a default profile on first contact.
type Profiles interface {
	EnsureProfile(ctx context.Context, phone string) (*contractx.UserProfile, bool, error)
}

// Service handles one inbound WhatsApp message end to end: profile, history,
// routing, reply delivery and history persistence.
type Service struct {
	profiles    Profiles
	history     contractx.HistoryStore
	router      Router
	messenger   contractx.Messenger
	locker      *sessionx.Locker
	contextSize int
	now         func() time.Time
}

// New wires the service. locker must not be the orchestrator's locker; a
// nil locker gets a private one.
func New(
	profiles Profiles,
	history contractx.HistoryStore,
	router Router,
	messenger contractx.Messenger,
	locker *sessionx.Locker,
	cfg Config,
) (*Service, error) {
	if profiles == nil || history == nil || router == nil || messenger == nil {
		return nil, fmt.Errorf("%w: conversation service dependencies are incomplete", contractx.ErrValidation)
	}
	if locker == nil {
		locker = sessionx.NewLocker()
	}
	size := cfg.ContextSize
	if size <= 0 {
		size = defaultContextSize
	}
	return &Service{
		profiles:    profiles,
		history:     history,
		router:      router,
		messenger:   messenger,
		locker:      locker,
		contextSize: size,
		now:         time.Now,
	}, nil
}

func (s *Service) HandleInbound(ctx context.Context, phone, text string) (contractx.AgentResponse, error) {
	phone = strings.TrimSpace(phone)
	text = strings.TrimSpace(text)
	if phone == "" || text == "" {
		return contractx.AgentResponse{}, fmt.Errorf("%w: inbound message needs phone and text", contractx.ErrValidation)
	}

	key := contractx.SessionKeyForPhone(phone)
	lg := logx.Session(key, "")

	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		return contractx.AgentResponse{}, err
	}
	defer unlock()

	if _, created, err := s.profiles.EnsureProfile(ctx, phone); err != nil {
		lg.Warn().Err(err).Msg("ensure user profile")
	} else if created {
		lg.Info().Msg("user profile created on first contact")
	}

	past, err := s.history.GetHistory(ctx, key, s.contextSize)
	if err != nil {
		return contractx.AgentResponse{}, fmt.Errorf("load history: %w", err)
	}

	userTurn := contractx.Turn{Role: contractx.RoleUser, Content: text, CreatedAt: s.now().UTC()}
	turns := append(append(make([]contractx.Turn, 0, len(past)+1), past...), userTurn)

	resp, routeErr := s.router.Execute(ctx, turns, key)
	if routeErr != nil {
		lg.Error().Err(routeErr).Msg("route inbound message")
	}

	fresh := []contractx.Turn{userTurn}
	if msg := strings.TrimSpace(resp.Message); msg != "" {
		if err := s.messenger.SendText(ctx, phone, msg); err != nil {
			lg.Error().Err(err).Msg("send reply")
		}
		fresh = append(fresh, contractx.Turn{Role: contractx.RoleAssistant, Content: msg, CreatedAt: s.now().UTC()})
	}
	if call, ok := functionCallTurn(resp, s.now().UTC()); ok {
		fresh = append(fresh, call)
	}

	if err := s.history.SaveHistory(ctx, key, fresh); err != nil {
		return resp, errors.Join(routeErr, fmt.Errorf("save history: %w", err))
	}
	return resp, routeErr
}

// functionCallTurn records a completed structured call so later
// classification sees that the tool already ran.
func functionCallTurn(resp contractx.AgentResponse, at time.Time) (contractx.Turn, bool) {
	if resp.Payload == nil || resp.Payload["action"] != "tool_call" {
		return contractx.Turn{}, false
	}
	raw, err := json.Marshal(map[string]any{
		"name":      resp.Payload["tool_name"],
		"arguments": resp.Payload["arguments"],
	})
	if err != nil {
		return contractx.Turn{}, false
	}
	return contractx.Turn{Role: contractx.RoleFunctionCall, Content: string(raw), CreatedAt: at}, true
}
