package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"
	classifierx "github.com/tanpawarit/dikas-orlando/agent/classifier"
	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
	nodex "github.com/tanpawarit/dikas-orlando/agent/nodes"
	sessionx "github.com/tanpawarit/dikas-orlando/agent/session"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = nodex.ErrInvalidSession
)

// Orchestrator runs one classify, resolve, dispatch cycle per message.
type Orchestrator struct {
	catalog    classifierx.Catalog
	classifier nodex.IntentClassifier
	profiles   contractx.ProfileStore
	locker     *sessionx.Locker

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

// New fails when the catalog has no default agent. profiles may be nil;
// a nil locker gets a private one.
func New(
	catalog classifierx.Catalog,
	classifier nodex.IntentClassifier,
	profiles contractx.ProfileStore,
	locker *sessionx.Locker,
) (*Orchestrator, error) {
	if catalog == nil {
		return nil, errors.New("agent catalog is required")
	}
	if classifier == nil {
		return nil, errors.New("intent classifier is required")
	}
	if _, ok := catalog.Get(catalog.DefaultID()); !ok {
		return nil, fmt.Errorf("%w: default agent %q is not registered", contractx.ErrAgentNotFound, catalog.DefaultID())
	}
	if locker == nil {
		locker = sessionx.NewLocker()
	}

	o := &Orchestrator{
		catalog:    catalog,
		classifier: classifier,
		profiles:   profiles,
		locker:     locker,
		now:        time.Now,
	}

	graphRunner, err := o.compileRouteGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// Execute routes the conversation of sessionKey to one agent. Agent
// failures are reported as a generic error response with a nil error; a
// non-nil error means the request itself was invalid or the pipeline broke,
// and the response still carries a message fit for the user.
func (o *Orchestrator) Execute(ctx context.Context, turns []contractx.Turn, sessionKey string) (resp contractx.AgentResponse, err error) {
	unlock, err := o.locker.Lock(ctx, sessionKey)
	if err != nil {
		return contractx.ErrorResponse(nodex.GenericErrorMessage, nil), err
	}
	defer unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("session", sessionKey).Interface("panic", r).Msg("orchestrator panicked")
			resp = contractx.ErrorResponse(nodex.GenericErrorMessage, nil)
			err = fmt.Errorf("orchestrator panicked: %v", r)
		}
	}()

	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionKey: sessionKey,
		Turns:      turns,
	})
	if err != nil {
		log.Error().Err(err).Str("session", sessionKey).Msg("route message")
		return contractx.ErrorResponse(nodex.GenericErrorMessage, nil), err
	}

	log.Info().
		Str("session", sessionKey).
		Str("agent", out.Response.AgentID.String()).
		Str("status", string(out.Response.Status)).
		Bool("fallback", out.Decision.Fallback).
		Msg("message routed")
	return out.Response, nil
}
