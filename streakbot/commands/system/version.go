package system

import (
	"fmt"
	"runtime"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/streakbot/streakbot/streakbot"
	"github.com/streakbot/streakbot/streakbot/utils"
)

var Version = discord.SlashCommandCreate{
	Name:        "version",
	Description: "Show build and runtime information",
}

func VersionHandler(b *streakbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if err := e.DeferCreateMessage(false); err != nil {
			return err
		}

		content := fmt.Sprintf("Version: %s\nCommit: %s\nGo: %s\nUptime: %s",
			b.Version, b.Commit, runtime.Version(), time.Since(b.StartedAt).Round(time.Second))
		if b.DB != nil {
			acquired, total := b.DB.Stats()
			content += fmt.Sprintf("\nDB connections: %d/%d in use", acquired, total)
		}

		_, err := e.UpdateInteractionResponse(discord.MessageUpdate{Content: utils.Ptr(content)})
		return err
	}
}
