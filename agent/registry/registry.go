package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
)

// Registry maps agent codes to agents. It is filled once at startup and
// read concurrently afterwards.
type Registry struct {
	mu        sync.RWMutex
	agents    map[contractx.AgentID]contractx.Agent
	defaultID contractx.AgentID
}

func New(defaultID contractx.AgentID) *Registry {
	return &Registry{
		agents:    make(map[contractx.AgentID]contractx.Agent),
		defaultID: defaultID,
	}
}

// Register adds agent. A code collision is a configuration error.
func (r *Registry) Register(agent contractx.Agent) error {
	if agent == nil {
		return fmt.Errorf("%w: agent is nil", contractx.ErrValidation)
	}
	id := contractx.AgentID(strings.TrimSpace(agent.ID().String()))
	if id == "" {
		return fmt.Errorf("%w: agent %q has an empty id", contractx.ErrValidation, agent.Name())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.agents[id]; ok {
		return fmt.Errorf("%w: id=%s claimed by %q and %q", contractx.ErrDuplicateAgent, id, existing.Name(), agent.Name())
	}
	r.agents[id] = agent

	log.Debug().
		Str("agent_id", id.String()).
		Str("agent_name", agent.Name()).
		Msg("agent registered")
	return nil
}

// MustRegister registers every agent and panics on the first failure.
func (r *Registry) MustRegister(agents ...contractx.Agent) *Registry {
	for _, a := range agents {
		if err := r.Register(a); err != nil {
			panic(err)
		}
	}
	return r
}

func (r *Registry) Get(id contractx.AgentID) (contractx.Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[contractx.AgentID(strings.TrimSpace(id.String()))]
	return a, ok
}

func (r *Registry) DefaultID() contractx.AgentID {
	return r.defaultID
}

// Default returns the fallback agent or ErrAgentNotFound.
func (r *Registry) Default() (contractx.Agent, error) {
	a, ok := r.Get(r.defaultID)
	if !ok {
		return nil, fmt.Errorf("%w: default id=%s", contractx.ErrAgentNotFound, r.defaultID)
	}
	return a, nil
}

// All returns the agents ordered by code.
func (r *Registry) All() []contractx.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]contractx.Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID() < out[j].ID()
	})
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
