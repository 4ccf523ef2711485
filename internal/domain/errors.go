package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrReasoningContract is returned when a model response is not a single JSON
	// object matching the stage's expected shape
	ErrReasoningContract = errors.New("reasoning response violated stage contract")

	// ErrReasoningUnavailable is returned when the reasoning capability cannot be reached
	ErrReasoningUnavailable = errors.New("reasoning capability unavailable")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrRunNotFound is returned when a run record is unknown or has expired
	ErrRunNotFound = errors.New("run not found")

	// ErrRunStoreUnavailable is returned when the run store backend cannot be reached
	ErrRunStoreUnavailable = errors.New("run store unavailable")

	// ErrInvalidTransition is returned when a run is moved to a state it cannot reach
	ErrInvalidTransition = errors.New("invalid run state transition")
)
