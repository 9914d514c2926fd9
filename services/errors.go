package services

import (
	"errors"
	"fmt"
)

// Terminal failure conditions surfaced by the engine. Anything else coming
// out of an operation is a store error and may be retried by the caller;
// retries re-run the uniqueness checks, they never blindly reapply writes.
var (
	// ErrUserNotFound is returned when the user id has no profile row.
	ErrUserNotFound = errors.New("user not found")
	// ErrRewardNotFound is returned when the reward id is absent from the catalog.
	ErrRewardNotFound = errors.New("reward not found")
	// ErrDuplicateCheckin is returned when the user already checked in on the
	// current calendar date.
	ErrDuplicateCheckin = errors.New("already checked in today")
	// ErrAlreadyClaimed is returned when a claim row already exists for the
	// user/reward pair.
	ErrAlreadyClaimed = errors.New("reward already claimed")
	// ErrRewardUnavailable is returned for inactive (coming soon) rewards.
	ErrRewardUnavailable = errors.New("reward unavailable")
)

// InsufficientPointsError reports a redemption the user cannot afford,
// carrying the exact shortfall.
type InsufficientPointsError struct {
	Required int
	Balance  int
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient points: %d required, %d available", e.Required, e.Balance)
}

// Shortfall returns how many points the user is missing.
func (e *InsufficientPointsError) Shortfall() int {
	return e.Required - e.Balance
}
