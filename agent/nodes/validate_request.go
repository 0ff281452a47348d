package orchestratornode

import (
	"errors"
	"strings"
	"time"

	classifierx "github.com/tanpawarit/dikas-orlando/agent/classifier"
	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
)

var (
	ErrInvalidMessage = errors.New("conversation has no user message")
	ErrInvalidSession = errors.New("session key is empty")
	ErrNoAgent        = errors.New("no agent resolved")
)

type GraphInput struct {
	SessionKey string
	Turns      []contractx.Turn
}

type GraphOutput struct {
	Response contractx.AgentResponse
	Decision classifierx.Decision
	// Err is the agent failure that was turned into a generic response.
	Err error
}

type GraphState struct {
	SessionKey string
	Turns      []contractx.Turn
	Now        time.Time

	Decision classifierx.Decision
	Agent    contractx.Agent
	User     *contractx.UserProfile

	Response contractx.AgentResponse
	Err      error
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionKey := strings.TrimSpace(in.SessionKey)
	if sessionKey == "" {
		return nil, ErrInvalidSession
	}
	if contractx.LastUserMessage(in.Turns) == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		SessionKey: sessionKey,
		Turns:      append([]contractx.Turn(nil), in.Turns...),
		Now:        nowFn().UTC(),
	}, nil
}
