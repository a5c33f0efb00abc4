package streaks

import (
	"errors"
	"fmt"

	"github.com/streakbot/streakbot/internal/domain/economy"
)

var ErrNotFound = errors.New("streak not found")

// ErrInvalidWord is returned for trigger words that are empty, too long or
// contain whitespace after normalization.
var ErrInvalidWord = fmt.Errorf("%w: invalid trigger word", economy.ErrValidation)
