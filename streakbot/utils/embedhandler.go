package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/streakbot/streakbot/internal/domain/economy"
	"github.com/streakbot/streakbot/internal/domain/guilds"
	"github.com/streakbot/streakbot/internal/domain/streaks"
	"github.com/streakbot/streakbot/streakbot/config"
)

// ResponseHandler provides standardized response methods for commands
type ResponseHandler struct{}

var EH = &ResponseHandler{}

// ErrorType represents different categories of errors for consistent handling
type ErrorType int

const (
	// UserError - invalid words, wagers, raid targets or settings
	UserError ErrorType = iota
	// SystemError - database failures, network issues, internal errors
	SystemError
	// NotFoundError - requested streak or guild doesn't exist
	NotFoundError
	// PermissionError - config and reset without Manage Guild
	PermissionError
	// BusinessLogicError - cooldowns, disabled features, raid barrier
	BusinessLogicError
)

func getErrorPrefix(errorType ErrorType) string {
	switch errorType {
	case UserError:
		return "⚠️"
	case SystemError:
		return "🔧"
	case NotFoundError:
		return "🔍"
	case PermissionError:
		return "🚫"
	case BusinessLogicError:
		return "⏰"
	default:
		return "❌"
	}
}

func getErrorColor(errorType ErrorType) int {
	switch errorType {
	case UserError, BusinessLogicError:
		return config.WarningColor
	case NotFoundError:
		return config.InfoColor
	default:
		return config.ErrorColor
	}
}

// Classify maps a domain error onto the response category shown to users.
func Classify(err error) ErrorType {
	switch {
	case err == nil:
		return SystemError
	case errors.Is(err, economy.ErrValidation):
		return UserError
	case errors.Is(err, economy.ErrFeatureDisabled),
		errors.Is(err, economy.ErrEntryBarrierNotMet),
		errors.Is(err, economy.ErrRaidOnCooldown):
		return BusinessLogicError
	case errors.Is(err, streaks.ErrNotFound), errors.Is(err, guilds.ErrNotFound):
		return NotFoundError
	default:
		return SystemError
	}
}

// Describe turns a domain error into a user-facing sentence. System errors
// never leak their cause.
func Describe(err error) string {
	var (
		wager    *economy.WagerError
		barrier  *economy.BarrierError
		cooldown *economy.CooldownError
	)
	switch {
	case errors.As(err, &cooldown):
		return fmt.Sprintf("You're still recovering from your last raid. Try again <t:%d:R>.", cooldown.Until.Unix())
	case errors.As(err, &barrier):
		return fmt.Sprintf("Your streak of **%d** is too small to raid a streak of **%d**. You need at least %d or a quarter of theirs.",
			barrier.AttackerCount, barrier.TargetCount, economy.MinRaidAbsolute)
	case errors.As(err, &wager):
		if wager.Max < 1 {
			return "Your streak is too small to wager anything."
		}
		return fmt.Sprintf("You can wager between 1 and **%d**.", wager.Max)
	case errors.Is(err, economy.ErrFeatureDisabled):
		return "That feature is disabled in this server."
	case errors.Is(err, economy.ErrInsufficientStreak):
		return "Your streak is too low for that."
	case errors.Is(err, economy.ErrSelfRaid):
		return "You can't raid yourself."
	case errors.Is(err, economy.ErrNothingToRaid):
		return "That user has no streak to raid."
	case errors.Is(err, streaks.ErrInvalidWord):
		return fmt.Sprintf("Trigger words must be a single word of at most %d characters.", streaks.MaxWordLength)
	case errors.Is(err, guilds.ErrInvalidSetting):
		return strings.TrimPrefix(err.Error(), guilds.ErrInvalidSetting.Error()+": ")
	case errors.Is(err, streaks.ErrNotFound):
		return "No streak found."
	case errors.Is(err, economy.ErrValidation):
		return strings.TrimPrefix(err.Error(), economy.ErrValidation.Error()+": ")
	default:
		return "Something went wrong, please try again later."
	}
}

// CreateErrorEmbed creates a standard error embed for command events
func (h *ResponseHandler) CreateErrorEmbed(event *handler.CommandEvent, message string) error {
	return event.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Description: message,
			Color:       config.ErrorColor,
		}},
	})
}

// CreateSuccessEmbed creates a standard success embed for command events
func (h *ResponseHandler) CreateSuccessEmbed(event *handler.CommandEvent, message string) error {
	return event.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Description: message,
			Color:       config.SuccessColor,
		}},
	})
}

// CreateInfoEmbed creates a standard info embed for command events
func (h *ResponseHandler) CreateInfoEmbed(event *handler.CommandEvent, message string) error {
	return event.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Description: message,
			Color:       config.InfoColor,
		}},
	})
}

// CreateClassifiedError creates an ephemeral error response for the given category
func (h *ResponseHandler) CreateClassifiedError(event *handler.CommandEvent, errorType ErrorType, message string) error {
	return event.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Description: getErrorPrefix(errorType) + " " + message,
			Color:       getErrorColor(errorType),
		}},
		Flags: discord.MessageFlagEphemeral,
	})
}

// CreateUserError creates an error response for user input issues
func (h *ResponseHandler) CreateUserError(event *handler.CommandEvent, message string) error {
	return h.CreateClassifiedError(event, UserError, message)
}

// CreatePermissionError creates an error response for unauthorized actions
func (h *ResponseHandler) CreatePermissionError(event *handler.CommandEvent, action string) error {
	return h.CreateClassifiedError(event, PermissionError, fmt.Sprintf("You need the Manage Server permission to %s", action))
}

// CreateDomainError classifies err and responds with a matching embed.
// System errors are returned so the command logger records them.
func (h *ResponseHandler) CreateDomainError(event *handler.CommandEvent, err error) error {
	errorType := Classify(err)
	if rerr := h.CreateClassifiedError(event, errorType, Describe(err)); rerr != nil {
		return rerr
	}
	if errorType == SystemError {
		return err
	}
	return nil
}

// UpdateDomainError is CreateDomainError for deferred interactions.
func (h *ResponseHandler) UpdateDomainError(event *handler.CommandEvent, err error) error {
	errorType := Classify(err)
	_, rerr := event.UpdateInteractionResponse(discord.MessageUpdate{
		Embeds: &[]discord.Embed{{
			Description: getErrorPrefix(errorType) + " " + Describe(err),
			Color:       getErrorColor(errorType),
		}},
	})
	if rerr != nil {
		return rerr
	}
	if errorType == SystemError {
		return err
	}
	return nil
}

func Ptr[T any](v T) *T {
	return &v
}
