package orchestratornode

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/dikas-orlando/agent/contract"
)

// LoadProfile attaches the user profile when one exists. A lookup failure
// is logged and the agent runs without a profile.
func LoadProfile(ctx context.Context, in *GraphState, profiles contractx.ProfileStore) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if profiles == nil {
		return in, nil
	}

	phone := contractx.PhoneFromSessionKey(in.SessionKey)
	user, err := profiles.GetByPhone(ctx, phone)
	switch {
	case err == nil:
		in.User = user
	case errors.Is(err, contractx.ErrProfileNotFound):
	default:
		log.Warn().Err(err).Str("session", in.SessionKey).Msg("load user profile")
	}
	return in, nil
}
