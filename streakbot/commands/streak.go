package commands

import (
	"context"
	"errors"
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

var Streak = discord.SlashCommandCreate{
	Name:        "streak",
	Description: "🔥 Show streaks for yourself or another member",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionUser{
			Name:        "user",
			Description: "Member to look up",
			Required:    false,
		},
		discord.ApplicationCommandOptionString{
			Name:         "word",
			Description:  "Only show this trigger word",
			Required:     false,
			Autocomplete: true,
		},
	},
}

// maxStreakFields is Discord's embed field limit.
const maxStreakFields = 25

func StreakHandler(b *streakbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		guildID := utils.GuildID(e)
		if guildID == "" {
			return utils.EH.CreateUserError(e, "Streaks only exist inside a server.")
		}

		data := e.SlashCommandInteractionData()
		target := e.User()
		if u, ok := data.OptUser("user"); ok {
			target = u
		}

		if err := e.DeferCreateMessage(false); err != nil {
			return fmt.Errorf("failed to defer response: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
		defer cancel()

		cfg, err := b.Guilds.Get(ctx, guildID)
		if err != nil {
			return utils.EH.UpdateDomainError(e, err)
		}

		var list []*models.Streak
		if raw, ok := data.OptString("word"); ok {
			word, err := streaks.ValidateWord(raw)
			if err != nil {
				return utils.EH.UpdateDomainError(e, err)
			}
			st, err := b.Streaks.Get(ctx, models.StreakKey{GuildID: guildID, UserID: target.ID.String(), TriggerWord: word})
			if err != nil && !errors.Is(err, streaks.ErrNotFound) {
				return utils.EH.UpdateDomainError(e, err)
			}
			if st != nil {
				list = append(list, st)
			}
		} else {
			list, err = b.Streaks.UserStreaks(ctx, guildID, target.ID.String())
			if err != nil {
				return utils.EH.UpdateDomainError(e, err)
			}
		}

		if cfg.StreakStreakEnabled {
			now := time.Now()
			for i, st := range list {
				if st.StreakStreak == 0 {
					continue
				}
				checked, _, err := b.Streaks.CheckDecay(ctx, st.Key(), now)
				if err != nil {
					return utils.EH.UpdateDomainError(e, err)
				}
				list[i] = checked
			}
		}

		embed := StreakEmbed(target.EffectiveName(), list, cfg.StreakStreakEnabled)
		_, err = e.UpdateInteractionResponse(discord.MessageUpdate{
			Embeds: &[]discord.Embed{embed},
		})
		return err
	}
}

// StreakEmbed renders one field per streak.
func StreakEmbed(name string, list []*models.Streak, showDaily bool) discord.Embed {
	builder := discord.NewEmbedBuilder().
		SetTitlef("🔥 %s's streaks", name).
		SetColor(config.StreakColor)

	if len(list) == 0 {
		return builder.SetDescription("No streaks yet. Use one of the server's trigger words to start one!").Build()
	}

	for i, st := range list {
		if i == maxStreakFields {
			builder.SetFooterTextf("%d more not shown", len(list)-maxStreakFields)
			break
		}
		value := fmt.Sprintf("Count: **%d**\nBest: **%d**", st.Count, st.BestStreak)
		if showDaily {
			value += fmt.Sprintf("\nDaily: **%d** %s", st.StreakStreak, utils.Plural(st.StreakStreak, "day", "days"))
		}
		builder.AddField(st.TriggerWord, value, true)
	}
	return builder.Build()
}
