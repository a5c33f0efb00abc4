package economy

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/streakbot/streakbot/internal/domain/streaks"
	"github.com/streakbot/streakbot/streakbot"
	"github.com/streakbot/streakbot/streakbot/config"
	"github.com/streakbot/streakbot/streakbot/database/models"
	"github.com/streakbot/streakbot/streakbot/utils"
)

var Raid = discord.SlashCommandCreate{
	Name:        "raid",
	Description: "⚔️ Try to steal part of another member's streak",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "Member to raid",
			Required:    true,
		},
		discord.ApplicationCommandOptionString{
			Name:         "word",
			Description:  "Trigger word to raid",
			Required:     true,
			Autocomplete: true,
		},
	},
}

func RaidHandler(b *streakbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		guildID := utils.GuildID(e)
		if guildID == "" {
			return utils.EH.CreateUserError(e, "Raids only work inside a server.")
		}

		data := e.SlashCommandInteractionData()
		target := data.User("user")
		if target.Bot {
			return utils.EH.CreateUserError(e, "Bots don't keep streaks.")
		}
		word, err := streaks.ValidateWord(data.String("word"))
		if err != nil {
			return utils.EH.CreateDomainError(e, err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
		defer cancel()

		cfg, err := b.Guilds.Get(ctx, guildID)
		if err != nil {
			return utils.EH.CreateDomainError(e, err)
		}

		key := models.StreakKey{GuildID: guildID, UserID: e.User().ID.String(), TriggerWord: word}
		res, err := b.Streaks.Raid(ctx, key, target.ID.String(), cfg.RaidSettings(), b.Roller, time.Now())
		if err != nil {
			return utils.EH.CreateDomainError(e, err)
		}

		return e.CreateMessage(discord.MessageCreate{
			Content: fmt.Sprintf("<@%s>", target.ID),
			Embeds:  []discord.Embed{RaidEmbed(e.User().ID.String(), target.ID.String(), word, res)},
		})
	}
}

func RaidEmbed(attackerID, defenderID, word string, res *streaks.RaidResult) discord.Embed {
	out := res.Outcome
	builder := discord.NewEmbedBuilder().
		SetColor(config.RaidColor).
		AddField("Attacker", fmt.Sprintf("<@%s>\n**%d**", attackerID, res.Attacker.Count), true).
		AddField("Defender", fmt.Sprintf("<@%s>\n**%d**", defenderID, res.Defender.Count), true).
		SetFooterTextf("Success chance %s", utils.Percent(out.Chance))

	if out.Success {
		builder.SetTitle("⚔️ Raid successful!").
			SetDescriptionf("<@%s> stole **%d** from <@%s>'s `%s` streak.", attackerID, out.StealAmount, defenderID, word)
	} else {
		builder.SetTitle("🛡️ Raid failed").
			SetDescriptionf("<@%s> was repelled and lost **%d** to <@%s>'s `%s` streak.", attackerID, out.RiskAmount, defenderID, word)
	}
	builder.AddField("Next raid", fmt.Sprintf("<t:%d:R>", out.CooldownUntil.Unix()), false)
	return builder.Build()
}
