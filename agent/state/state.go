package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
)

// Kind tags the variant stored for one (session, agent) pair.
type Kind string

const (
	KindInit              Kind = "init"
	KindAwaitingSelection Kind = "awaiting_selection"
	KindIdle              Kind = "idle"
	KindCollecting        Kind = "collecting"
	KindDone              Kind = "done"
)

var (
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrUnknownKind       = errors.New("unknown state kind")
	ErrInvalidState      = errors.New("invalid state")
)

// State is implemented by every variant. Variants are plain values; they
// are persisted through Record.
type State interface {
	Kind() Kind
	Validate() error
}

// Option is one numbered choice presented to the user.
type Option struct {
	Number int    `json:"number"`
	ID     int    `json:"id"`
	Name   string `json:"name"`
}

/* ------------------------------- variants ------------------------------- */

// Init is what a session looks like before any record exists.
type Init struct{}

func (Init) Kind() Kind      { return KindInit }
func (Init) Validate() error { return nil }

type AwaitingSelection struct {
	Options       []Option `json:"options"`
	PendingNumber int      `json:"pending_number,omitempty"`
}

func NewAwaitingSelection(options []Option, pendingNumber int) (AwaitingSelection, error) {
	st := AwaitingSelection{
		Options:       append([]Option(nil), options...),
		PendingNumber: pendingNumber,
	}
	if err := st.Validate(); err != nil {
		return AwaitingSelection{}, err
	}
	return st, nil
}

func (AwaitingSelection) Kind() Kind { return KindAwaitingSelection }

func (s AwaitingSelection) Validate() error {
	if len(s.Options) == 0 {
		return fmt.Errorf("%w: awaiting selection requires options", ErrInvalidState)
	}
	for i, opt := range s.Options {
		if strings.TrimSpace(opt.Name) == "" {
			return fmt.Errorf("%w: option %d has no name", ErrInvalidState, i+1)
		}
	}
	return nil
}

// Resolve maps a 1-based selection number to its option.
func (s AwaitingSelection) Resolve(n int) (Option, error) {
	if n < 1 || n > len(s.Options) {
		return Option{}, fmt.Errorf("%w: %d not in 1..%d", contractx.ErrInvalidSelection, n, len(s.Options))
	}
	return s.Options[n-1], nil
}

type Idle struct {
	LastSelection Option    `json:"last_selection"`
	SelectedAt    time.Time `json:"selected_at"`
}

func (Idle) Kind() Kind { return KindIdle }

func (s Idle) Validate() error {
	if strings.TrimSpace(s.LastSelection.Name) == "" {
		return fmt.Errorf("%w: idle requires the last selection", ErrInvalidState)
	}
	return nil
}

// Collecting accumulates slot values across turns. History is the private
// transcript the collecting agent replays to the model.
type Collecting struct {
	History     []contractx.Turn `json:"history"`
	KnownFields map[string]any   `json:"known_fields,omitempty"`
}

func (Collecting) Kind() Kind      { return KindCollecting }
func (Collecting) Validate() error { return nil }

func (s *Collecting) Append(turn contractx.Turn) {
	s.History = append(s.History, turn)
}

func (s *Collecting) MergeFields(fields map[string]any) {
	if len(fields) == 0 {
		return
	}
	if s.KnownFields == nil {
		s.KnownFields = make(map[string]any, len(fields))
	}
	for k, v := range fields {
		if v == nil {
			continue
		}
		s.KnownFields[k] = v
	}
}

type Done struct {
	Result      string         `json:"result"`
	Fields      map[string]any `json:"fields,omitempty"`
	CompletedAt time.Time      `json:"completed_at"`
}

func (Done) Kind() Kind { return KindDone }

func (s Done) Validate() error {
	if strings.TrimSpace(s.Result) == "" {
		return fmt.Errorf("%w: done requires a result", ErrInvalidState)
	}
	return nil
}

/* ------------------------------ transitions ----------------------------- */

// Done only leaves through an explicit reset (record deletion).
var transitions = map[Kind]map[Kind]bool{
	KindInit: {
		KindAwaitingSelection: true,
		KindIdle:              true,
		KindCollecting:        true,
		KindDone:              true,
	},
	KindAwaitingSelection: {
		KindAwaitingSelection: true,
		KindIdle:              true,
	},
	KindIdle: {
		KindAwaitingSelection: true,
		KindIdle:              true,
	},
	KindCollecting: {
		KindCollecting: true,
		KindDone:       true,
	},
	KindDone: {
		KindDone: true,
	},
}

func CanTransition(from, to Kind) bool {
	return transitions[from][to]
}

/* -------------------------------- record -------------------------------- */

// Record is the persisted envelope of a state variant.
type Record struct {
	SessionID string            `json:"session_id"`
	AgentID   contractx.AgentID `json:"agent_id"`
	Kind      Kind              `json:"kind"`
	Data      json.RawMessage   `json:"data,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func Encode(sessionID string, agentID contractx.AgentID, st State, now time.Time) (*Record, error) {
	if st == nil {
		return nil, ErrNilState
	}
	if st.Kind() == KindInit {
		return nil, fmt.Errorf("%w: init is never persisted", ErrInvalidState)
	}
	if err := st.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("marshal %s state: %w", st.Kind(), err)
	}
	return &Record{
		SessionID: sessionID,
		AgentID:   agentID,
		Kind:      st.Kind(),
		Data:      data,
		UpdatedAt: now.UTC(),
	}, nil
}

func (r *Record) Decode() (State, error) {
	if r == nil {
		return Init{}, nil
	}

	var (
		st  State
		err error
	)
	switch r.Kind {
	case KindInit:
		return Init{}, nil
	case KindAwaitingSelection:
		var v AwaitingSelection
		err = json.Unmarshal(r.Data, &v)
		st = v
	case KindIdle:
		var v Idle
		err = json.Unmarshal(r.Data, &v)
		st = v
	case KindCollecting:
		var v Collecting
		err = json.Unmarshal(r.Data, &v)
		st = v
	case KindDone:
		var v Done
		err = json.Unmarshal(r.Data, &v)
		st = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, r.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("unmarshal %s state: %w", r.Kind, err)
	}
	if err := st.Validate(); err != nil {
		return nil, err
	}
	return st, nil
}
