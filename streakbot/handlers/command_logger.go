package handlers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/handler"
	"github.com/streakbot/streakbot/streakbot/config"
	"github.com/streakbot/streakbot/streakbot/logger"
)

// WrapWithLogging wraps a command handler with logging and a hard timeout
func WrapWithLogging(name string, h handler.CommandHandler) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		start := time.Now()

		slog.Info("Command started",
			slog.String("type", "cmd"),
			slog.String("name", name),
			slog.String("user_id", e.User().ID.String()),
			slog.String("user_name", e.User().Username),
			slog.String("guild_id", guildID(e)),
			slog.String("channel_id", e.ChannelID().String()),
		)

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("command panicked: %v", r)
				}
			}()
			done <- h(e)
		}()

		select {
		case err := <-done:
			duration := time.Since(start)
			if err == nil && duration > config.SlowCommandThreshold {
				slog.Warn("Command executed slowly",
					slog.String("type", "cmd"),
					slog.String("name", name),
					slog.String("user_id", e.User().ID.String()),
					slog.Duration("took", duration),
					slog.String("status", "slow"),
				)
				return nil
			}
			logger.LogCommand(name, duration, err)
			return err

		case <-time.After(config.CommandExecutionTimeout):
			slog.Error("Command timed out",
				slog.String("type", "cmd"),
				slog.String("name", name),
				slog.String("user_id", e.User().ID.String()),
				slog.String("user_name", e.User().Username),
				slog.String("status", "timeout"),
				slog.Duration("timeout", config.CommandExecutionTimeout),
			)
			return fmt.Errorf("command timed out after %s", config.CommandExecutionTimeout)
		}
	}
}

func guildID(e *handler.CommandEvent) string {
	if id := e.GuildID(); id != nil {
		return id.String()
	}
	return ""
}
