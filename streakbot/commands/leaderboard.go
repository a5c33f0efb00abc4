package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"
	"github.com/streakbot/streakbot/internal/domain/streaks"
	"github.com/streakbot/streakbot/streakbot"
	"github.com/streakbot/streakbot/streakbot/config"
	"github.com/streakbot/streakbot/streakbot/database/models"
	"github.com/streakbot/streakbot/streakbot/utils"
)

var Leaderboard = discord.SlashCommandCreate{
	Name:        "leaderboard",
	Description: "🏆 Top streaks for a trigger word",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:         "word",
			Description:  "Trigger word",
			Required:     true,
			Autocomplete: true,
		},
	},
}

func LeaderboardHandler(b *streakbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		guildID := utils.GuildID(e)
		if guildID == "" {
			return utils.EH.CreateUserError(e, "Leaderboards only exist inside a server.")
		}

		word, err := streaks.ValidateWord(e.SlashCommandInteractionData().String("word"))
		if err != nil {
			return utils.EH.CreateDomainError(e, err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
		defer cancel()

		entries, err := b.Streaks.Leaderboard(ctx, guildID, word, config.LeaderboardMaxEntries)
		if err != nil {
			return utils.EH.CreateDomainError(e, err)
		}
		if len(entries) == 0 {
			return utils.EH.CreateInfoEmbed(e, fmt.Sprintf("Nobody has a `%s` streak yet.", word))
		}

		pages := LeaderboardPages(len(entries), config.LeaderboardPageSize)
		return b.Paginator.Create(e.Respond, paginator.Pages{
			ID:      e.ID().String(),
			Creator: e.User().ID,
			PageFunc: func(page int, embed *discord.EmbedBuilder) {
				embed.
					SetTitlef("🏆 %s leaderboard", word).
					SetDescription(LeaderboardPage(entries, page, config.LeaderboardPageSize)).
					SetColor(config.StreakColor).
					SetFooter(fmt.Sprintf("Page %d/%d • %d %s", page+1, pages, len(entries),
						utils.Plural(len(entries), "member", "members")), "")
			},
			Pages:      pages,
			ExpireMode: paginator.ExpireModeAfterLastUsage,
		}, false)
	}
}

func LeaderboardPages(entries, pageSize int) int {
	if entries == 0 {
		return 1
	}
	return (entries + pageSize - 1) / pageSize
}

// LeaderboardPage renders the entries on page, ranked across all pages.
func LeaderboardPage(entries []*models.Streak, page, pageSize int) string {
	start := page * pageSize
	if start >= len(entries) {
		return ""
	}
	end := min(start+pageSize, len(entries))

	var sb strings.Builder
	for i, st := range entries[start:end] {
		rank := start + i + 1
		fmt.Fprintf(&sb, "%s <@%s> **%d** (best %d)\n", utils.Medal(rank), st.UserID, st.Count, st.BestStreak)
	}
	return sb.String()
}
