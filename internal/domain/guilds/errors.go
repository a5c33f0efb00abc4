package guilds

import (
	"errors"
	"fmt"

	"github.com/streakbot/streakbot/internal/domain/economy"
)

var ErrNotFound = errors.New("guild config not found")

var ErrInvalidSetting = fmt.Errorf("%w: invalid setting", economy.ErrValidation)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidSetting, fmt.Sprintf(format, args...))
}
