package economy

import (
	"errors"
	"fmt"
	"time"
)

// ErrValidation is the parent of every malformed-input error. Callers render
// anything matching it as a user error.
var ErrValidation = errors.New("validation failed")

var (
	ErrInvalidWager       = fmt.Errorf("%w: invalid wager", ErrValidation)
	ErrInsufficientStreak = fmt.Errorf("%w: streak too low", ErrValidation)
	ErrSelfRaid           = fmt.Errorf("%w: cannot raid yourself", ErrValidation)
	ErrNothingToRaid      = fmt.Errorf("%w: target has no streak", ErrValidation)
)

var (
	ErrFeatureDisabled    = errors.New("feature disabled")
	ErrEntryBarrierNotMet = errors.New("raid entry barrier not met")
	ErrRaidOnCooldown     = errors.New("raid on cooldown")
)

// CooldownError reports how long the attacker still has to wait.
type CooldownError struct {
	Remaining time.Duration
	Until     time.Time
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s: %s remaining", ErrRaidOnCooldown, e.Remaining.Round(time.Second))
}

func (e *CooldownError) Unwrap() error {
	return ErrRaidOnCooldown
}

// WagerError carries the bounds a rejected wager was checked against.
type WagerError struct {
	Amount int
	Max    int
}

func (e *WagerError) Error() string {
	if e.Max < 1 {
		return fmt.Sprintf("%s: streak too small to wager anything", ErrInvalidWager)
	}
	return fmt.Sprintf("%s: %d is outside 1..%d", ErrInvalidWager, e.Amount, e.Max)
}

func (e *WagerError) Unwrap() error {
	return ErrInvalidWager
}

// BarrierError carries the counts that failed the raid entry barrier.
type BarrierError struct {
	AttackerCount int
	TargetCount   int
}

func (e *BarrierError) Error() string {
	return fmt.Sprintf("%s: %d against %d (need %d or 25%% of target)",
		ErrEntryBarrierNotMet, e.AttackerCount, e.TargetCount, MinRaidAbsolute)
}

func (e *BarrierError) Unwrap() error {
	return ErrEntryBarrierNotMet
}
