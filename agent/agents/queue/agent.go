package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
	statex "github.com/tanpawarit/dikas-orlando/agent/state"
	logx "github.com/tanpawarit/dikas-orlando/pkg/logger"
)

var DefaultDenyList = []string{"paris", "tokyo", "disneyland", "california", "europa", "asian", "shangai", "hong kong"}

var listKeywords = []string{"parques", "lista", "filas"}

// confirmWords accept the number sent before the list was shown.
var confirmWords = []string{"sim", "isso", "confirmo", "pode", "ok"}

type Config struct {
	BaseURL  string        `envconfig:"BASE_URL" split_words:"true" default:"https://queue-times.com"`
	Timeout  time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
	DenyList []string      `envconfig:"DENY_LIST" split_words:"true"`
}

const (
	msgOutOfDomain = "Desculpe, sou especializado apenas em parques de Orlando. Não possuo informações sobre parques em outras localidades."
	msgListSent    = "Lista de parques de Orlando enviada para seu WhatsApp. Digite apenas o número do parque para ver as filas em tempo real."
	msgConfirm     = "Para consultar as filas, primeiro enviei a lista de parques disponíveis em Orlando. Confira a lista e responda \"sim\" para confirmar o parque %d ou envie outro número."
	msgPickNumber  = "Para ver os tempos de fila dos parques de Orlando, digite apenas o número do parque conforme a lista enviada ao seu WhatsApp."
)

// Agent answers park queue-time questions. Per session it is either waiting
// for a park number or idle after the last report.
type Agent struct {
	machine   *statex.Machine
	waitTimes WaitTimes
	messenger contractx.Messenger
	denyList  []string
	now       func() time.Time
}

var _ contractx.Agent = (*Agent)(nil)

func New(store statex.Store, waitTimes WaitTimes, messenger contractx.Messenger, denyList []string) (*Agent, error) {
	if store == nil || waitTimes == nil || messenger == nil {
		return nil, fmt.Errorf("%w: queue agent needs a state store, wait-times client and messenger", contractx.ErrValidation)
	}
	if len(denyList) == 0 {
		denyList = DefaultDenyList
	}
	terms := make([]string, 0, len(denyList))
	for _, t := range denyList {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			terms = append(terms, t)
		}
	}
	return &Agent{
		machine:   statex.NewMachine(store, contractx.AgentIDQueueTimes),
		waitTimes: waitTimes,
		messenger: messenger,
		denyList:  terms,
		now:       time.Now,
	}, nil
}

func (a *Agent) ID() contractx.AgentID { return contractx.AgentIDQueueTimes }

func (a *Agent) Name() string { return "Agente_Filas" }

func (a *Agent) Description() string {
	return "Informa o tempo de fila em tempo real das atrações dos parques de Orlando (Disney, Universal e SeaWorld)"
}

func (a *Agent) Execute(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error) {
	text := strings.ToLower(contractx.LastUserMessage(req.Turns))
	phone := req.Phone()

	if term, ok := a.deniedTerm(text); ok {
		return a.respond(contractx.StatusError, msgOutOfDomain, map[string]any{"non_orlando_request": term}), nil
	}

	current, err := a.machine.Current(ctx, req.SessionKey)
	if err != nil {
		return contractx.AgentResponse{}, fmt.Errorf("load queue state: %w", err)
	}

	number, isNumber := parseSelection(text)

	switch st := current.(type) {
	case statex.AwaitingSelection:
		if isNumber {
			return a.selectNumber(ctx, req.SessionKey, phone, st, st, number)
		}
		if st.PendingNumber > 0 && isConfirmation(text) {
			return a.selectNumber(ctx, req.SessionKey, phone, st, st, st.PendingNumber)
		}
	case statex.Idle:
		if isNumber {
			listed, err := statex.NewAwaitingSelection(Options(), 0)
			if err != nil {
				return contractx.AgentResponse{}, err
			}
			return a.selectNumber(ctx, req.SessionKey, phone, st, listed, number)
		}
	}

	if opt, ok := MatchPark(text); ok {
		return a.report(ctx, req.SessionKey, phone, current, opt, nil)
	}

	if containsAny(text, listKeywords) {
		return a.sendList(ctx, req.SessionKey, phone, current, 0, msgListSent, map[string]any{"sent_via_zapi": true})
	}

	if isNumber {
		return a.sendList(ctx, req.SessionKey, phone, current, number, fmt.Sprintf(msgConfirm, number), map[string]any{
			"sent_parks_list": true,
			"detected_number": number,
		})
	}

	return a.sendList(ctx, req.SessionKey, phone, current, 0, msgPickNumber, map[string]any{"parks_count": len(parks)})
}

func (a *Agent) selectNumber(
	ctx context.Context,
	sessionKey, phone string,
	current statex.State,
	listed statex.AwaitingSelection,
	number int,
) (contractx.AgentResponse, error) {
	opt, err := listed.Resolve(number)
	if errors.Is(err, contractx.ErrInvalidSelection) {
		if err := a.messenger.SendText(ctx, phone, ListMessage(listed.Options)); err != nil {
			return contractx.AgentResponse{}, fmt.Errorf("%w: resend park list: %v", contractx.ErrUpstream, err)
		}
		// Idle sessions fall back to waiting on the list just resent.
		if current.Kind() != statex.KindAwaitingSelection {
			if err := a.machine.Transition(ctx, sessionKey, current, listed); err != nil {
				return contractx.AgentResponse{}, err
			}
		}
		msg := fmt.Sprintf("Número %d inválido. Por favor, escolha um número entre 1 e %d para ver as filas dos parques de Orlando.", number, len(listed.Options))
		return a.respond(contractx.StatusError, msg, map[string]any{"invalid_park_number": number}), nil
	}
	if err != nil {
		return contractx.AgentResponse{}, err
	}
	return a.report(ctx, sessionKey, phone, current, opt, map[string]any{"selected_by_number": number})
}

// report fetches and sends the queue times for opt, then moves to Idle.
func (a *Agent) report(
	ctx context.Context,
	sessionKey, phone string,
	current statex.State,
	opt statex.Option,
	extra map[string]any,
) (contractx.AgentResponse, error) {
	payload := map[string]any{"park_id": opt.ID}
	for k, v := range extra {
		payload[k] = v
	}

	rides, err := a.waitTimes.Rides(ctx, opt.ID)
	if err != nil {
		lg := logx.Session(sessionKey, a.ID().String())
		lg.Error().Err(err).Int("park_id", opt.ID).Msg("queue-times lookup failed")
	}
	if err != nil || len(rides) == 0 {
		msg := fmt.Sprintf("Não foi possível obter os tempos de fila para %s em Orlando no momento.", opt.Name)
		return a.respond(contractx.StatusError, msg, payload), nil
	}

	if err := a.messenger.SendText(ctx, phone, FormatReport(opt.Name, rides, a.now())); err != nil {
		return contractx.AgentResponse{}, fmt.Errorf("%w: send queue report: %v", contractx.ErrUpstream, err)
	}

	next := statex.Idle{LastSelection: opt, SelectedAt: a.now().UTC()}
	if err := a.machine.Transition(ctx, sessionKey, current, next); err != nil {
		return contractx.AgentResponse{}, err
	}

	payload["park_name"] = opt.Name
	payload["queue_count"] = len(rides)
	msg := fmt.Sprintf("Informações sobre as filas em %s (Orlando) foram enviadas para seu WhatsApp.", opt.Name)
	return a.respond(contractx.StatusOK, msg, payload), nil
}

func (a *Agent) sendList(
	ctx context.Context,
	sessionKey, phone string,
	current statex.State,
	pending int,
	msg string,
	payload map[string]any,
) (contractx.AgentResponse, error) {
	next, err := statex.NewAwaitingSelection(Options(), pending)
	if err != nil {
		return contractx.AgentResponse{}, err
	}
	if err := a.messenger.SendText(ctx, phone, ListMessage(next.Options)); err != nil {
		return contractx.AgentResponse{}, fmt.Errorf("%w: send park list: %v", contractx.ErrUpstream, err)
	}
	if err := a.machine.Transition(ctx, sessionKey, current, next); err != nil {
		return contractx.AgentResponse{}, err
	}
	return a.respond(contractx.StatusOK, msg, payload), nil
}

func (a *Agent) respond(status contractx.Status, msg string, payload map[string]any) contractx.AgentResponse {
	return contractx.AgentResponse{AgentID: a.ID(), Status: status, Message: msg, Payload: payload}
}

func (a *Agent) deniedTerm(text string) (string, bool) {
	for _, t := range a.denyList {
		if strings.Contains(text, t) {
			return t, true
		}
	}
	return "", false
}

// parseSelection accepts a message made only of digits.
func parseSelection(text string) (int, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, false
	}
	return n, true
}

func isConfirmation(text string) bool {
	word := strings.Trim(strings.TrimSpace(text), ".! ")
	for _, w := range confirmWords {
		if word == w {
			return true
		}
	}
	return false
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
