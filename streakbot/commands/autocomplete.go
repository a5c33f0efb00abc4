package commands

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/streakbot/streakbot/streakbot"
	"github.com/streakbot/streakbot/streakbot/config"
	"github.com/streakbot/streakbot/streakbot/utils"
)

// WordAutocompleteHandler suggests the guild's trigger words for any focused
// word option.
func WordAutocompleteHandler(b *streakbot.Bot) handler.AutocompleteHandler {
	return func(e *handler.AutocompleteEvent) error {
		guildID := utils.GuildID(e)
		if guildID == "" {
			return e.AutocompleteResult(nil)
		}

		// non-string focused values leave the query empty
		var query string
		_ = json.Unmarshal(e.Data.Focused().Value, &query)

		ctx, cancel := context.WithTimeout(context.Background(), config.AutocompleteTimeout)
		defer cancel()

		cfg, err := b.Guilds.Get(ctx, guildID)
		if err != nil {
			slog.Error("Failed to load trigger words for autocomplete",
				slog.String("type", "cmd"),
				slog.String("guild_id", guildID),
				slog.Any("error", err))
			return e.AutocompleteResult(nil)
		}

		words := utils.SuggestWords(cfg.TriggerWords, query, config.MaxAutocomplete)
		choices := make([]discord.AutocompleteChoice, 0, len(words))
		for _, w := range words {
			choices = append(choices, discord.AutocompleteChoiceString{Name: w, Value: w})
		}
		return e.AutocompleteResult(choices)
	}
}
