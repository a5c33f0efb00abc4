package economy

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/streakbot/streakbot/internal/domain/streaks"
	"github.com/streakbot/streakbot/streakbot"
	"github.com/streakbot/streakbot/streakbot/config"
	"github.com/streakbot/streakbot/streakbot/database/models"
	"github.com/streakbot/streakbot/streakbot/utils"
)

var Gamble = discord.SlashCommandCreate{
	Name:        "gamble",
	Description: "🎲 Wager part of your streak on a coin flip",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:         "word",
			Description:  "Trigger word to gamble with",
			Required:     true,
			Autocomplete: true,
		},
		discord.ApplicationCommandOptionInt{
			Name:        "amount",
			Description: "How much of your streak to wager",
			Required:    true,
			MinValue:    utils.Ptr(1),
		},
	},
}

func GambleHandler(b *streakbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		guildID := utils.GuildID(e)
		if guildID == "" {
			return utils.EH.CreateUserError(e, "Gambling only works inside a server.")
		}

		data := e.SlashCommandInteractionData()
		word, err := streaks.ValidateWord(data.String("word"))
		if err != nil {
			return utils.EH.CreateDomainError(e, err)
		}
		amount := data.Int("amount")

		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
		defer cancel()

		cfg, err := b.Guilds.Get(ctx, guildID)
		if err != nil {
			return utils.EH.CreateDomainError(e, err)
		}

		key := models.StreakKey{GuildID: guildID, UserID: e.User().ID.String(), TriggerWord: word}
		res, err := b.Streaks.Gamble(ctx, key, cfg.GambleSettings(), amount, b.Roller)
		if err != nil {
			return utils.EH.CreateDomainError(e, err)
		}

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{GambleEmbed(word, res)},
		})
	}
}

func GambleEmbed(word string, res *streaks.GambleResult) discord.Embed {
	out := res.Outcome
	builder := discord.NewEmbedBuilder().
		SetFooterTextf("Win chance %s", utils.Percent(out.Chance))

	if out.Won {
		builder.SetTitle("🎲 You won!").
			SetColor(config.SuccessColor).
			SetDescription(fmt.Sprintf("Your `%s` streak grew by **%d**: %d → **%d**", word, out.Amount, out.Previous, res.Streak.Count))
	} else {
		builder.SetTitle("🎲 You lost").
			SetColor(config.ErrorColor).
			SetDescription(fmt.Sprintf("Your `%s` streak dropped by **%d**: %d → **%d**", word, out.Amount, out.Previous, res.Streak.Count))
	}
	return builder.Build()
}
