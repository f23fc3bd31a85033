package service

import "errors"

var (
	ErrIdentityConflict    = errors.New("team already claimed by a different leader")
	ErrLeaderRequired      = errors.New("leader name is required")
	ErrInvalidTeam         = errors.New("invalid team id")
	ErrInvalidRound        = errors.New("invalid round")
	ErrInvalidValue        = errors.New("invalid value")
	ErrInvalidEventType    = errors.New("unknown event type")
	ErrInvalidMiniGame     = errors.New("unknown mini-game")
	ErrEventNotExpired     = errors.New("event has not expired yet")
	ErrEventNotDismissible = errors.New("event can only be released by an admin")
	ErrValidationRejected  = errors.New("validation rejected")
	ErrGenerationFailed    = errors.New("generation failed")
	ErrJudgeUnavailable    = errors.New("ai judge unavailable")
	ErrRateLimited         = errors.New("too many requests")
)
