package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")

	ErrClassification   = errors.New("intent classification failed")
	ErrAgentNotFound    = errors.New("agent not found")
	ErrDuplicateAgent   = errors.New("duplicate agent id")
	ErrOutOfDomain      = errors.New("request is outside the agent domain")
	ErrInvalidSelection = errors.New("invalid option selection")
	ErrUpstream         = errors.New("upstream service failed")
	ErrIncompleteSlots  = errors.New("required slots are incomplete")

	ErrProfileNotFound = errors.New("user profile not found")
)
