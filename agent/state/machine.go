package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
)

// Machine owns the state of one agent across sessions. Callers serialize
// access per session; Machine itself only enforces the transition table.
type Machine struct {
	store   Store
	agentID contractx.AgentID
	now     func() time.Time
}

func NewMachine(store Store, agentID contractx.AgentID) *Machine {
	return &Machine{
		store:   store,
		agentID: agentID,
		now:     time.Now,
	}
}

func (m *Machine) AgentID() contractx.AgentID {
	return m.agentID
}

// Current returns the stored variant, or Init when nothing is stored.
func (m *Machine) Current(ctx context.Context, sessionID string) (State, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}
	rec, err := m.store.Load(ctx, sessionID, m.agentID)
	if errors.Is(err, ErrStateNotFound) {
		return Init{}, nil
	}
	if err != nil {
		return nil, err
	}
	return rec.Decode()
}

// Transition validates from -> to and persists to.
func (m *Machine) Transition(ctx context.Context, sessionID string, from, to State) error {
	if from == nil || to == nil {
		return ErrNilState
	}
	if !CanTransition(from.Kind(), to.Kind()) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from.Kind(), to.Kind())
	}
	rec, err := Encode(sessionID, m.agentID, to, m.now())
	if err != nil {
		return err
	}
	return m.store.Save(ctx, rec)
}

// Reset drops the record so the next turn starts from Init.
func (m *Machine) Reset(ctx context.Context, sessionID string) error {
	return m.store.Delete(ctx, sessionID, m.agentID)
}
