package admin

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/streakbot/streakbot/internal/domain/streaks"
	"github.com/streakbot/streakbot/streakbot"
	"github.com/streakbot/streakbot/streakbot/config"
	"github.com/streakbot/streakbot/streakbot/database/models"
	"github.com/streakbot/streakbot/streakbot/logger"
	"github.com/streakbot/streakbot/streakbot/utils"
)

var Reset = discord.SlashCommandCreate{
	Name:        "reset",
	Description: "🧹 Reset a member's streak for a trigger word",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "Member whose streak to reset",
			Required:    true,
		},
		discord.ApplicationCommandOptionString{
			Name:         "word",
			Description:  "Trigger word",
			Required:     true,
			Autocomplete: true,
		},
	},
}

func ResetHandler(b *streakbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		guildID := utils.GuildID(e)
		if guildID == "" {
			return utils.EH.CreateUserError(e, "Streaks only exist inside a server.")
		}
		if !utils.CanManageGuild(e) {
			return utils.EH.CreatePermissionError(e, "reset streaks")
		}

		data := e.SlashCommandInteractionData()
		target := data.User("user")
		word, err := streaks.ValidateWord(data.String("word"))
		if err != nil {
			return utils.EH.CreateDomainError(e, err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
		defer cancel()

		key := models.StreakKey{GuildID: guildID, UserID: target.ID.String(), TriggerWord: word}
		st, err := b.Streaks.Reset(ctx, key)
		if err != nil {
			return utils.EH.CreateDomainError(e, err)
		}

		logger.LogSystem("Streak reset by moderator",
			"moderator_id", e.User().ID.String(),
			"guild_id", guildID,
			"user_id", target.ID.String(),
			"word", word)

		return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("Reset <@%s>'s `%s` streak. Their best of **%d** is kept.",
			target.ID, word, st.BestStreak))
	}
}
