package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/streakbot/streakbot/internal/domain/streaks"
	"github.com/streakbot/streakbot/streakbot/config"
	"github.com/streakbot/streakbot/streakbot/database/models"
	"github.com/streakbot/streakbot/streakbot/logger"
	"golang.org/x/sync/errgroup"
)

// GuildSettings is the read side of the guild config service.
type GuildSettings interface {
	Get(ctx context.Context, guildID string) (*models.GuildConfig, error)
}

// TriggerLedger counts trigger word uses.
type TriggerLedger interface {
	Trigger(ctx context.Context, key models.StreakKey, rules streaks.TriggerRules, now time.Time) (*streaks.TriggerResult, error)
}

// WordTrigger is the outcome of one matched word in a message.
type WordTrigger struct {
	Word   string
	Result *streaks.TriggerResult
}

// TriggerListener scans guild messages for trigger words.
type TriggerListener struct {
	guilds GuildSettings
	ledger TriggerLedger
	now    func() time.Time
}

func NewTriggerListener(guilds GuildSettings, ledger TriggerLedger) *TriggerListener {
	return &TriggerListener{
		guilds: guilds,
		ledger: ledger,
		now:    time.Now,
	}
}

// Process counts every distinct trigger word in content for the author.
// Words are handled concurrently; results keep the order of the guild's
// word list and omit words whose trigger failed.
func (l *TriggerListener) Process(ctx context.Context, guildID, userID, content string) ([]WordTrigger, error) {
	cfg, err := l.guilds.Get(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to load guild config: %w", err)
	}

	matches := streaks.MatchWords(content, cfg.TriggerWords)
	if len(matches) == 0 {
		return nil, nil
	}

	rules := streaks.TriggerRules{
		StreakLimit:         cfg.StreakLimit(),
		StreakStreakEnabled: cfg.StreakStreakEnabled,
	}
	now := l.now()

	results := make([]*streaks.TriggerResult, len(matches))
	// words are independent; one failing must not cancel the others
	var g errgroup.Group
	for i, word := range matches {
		g.Go(func() error {
			key := models.StreakKey{GuildID: guildID, UserID: userID, TriggerWord: word}
			res, err := l.ledger.Trigger(ctx, key, rules, now)
			if err != nil {
				return fmt.Errorf("trigger %q: %w", word, err)
			}
			results[i] = res
			return nil
		})
	}
	err = g.Wait()

	out := make([]WordTrigger, 0, len(matches))
	for i, res := range results {
		if res != nil {
			out = append(out, WordTrigger{Word: matches[i], Result: res})
		}
	}
	return out, err
}

// OnMessage is the disgo listener for guild messages.
func (l *TriggerListener) OnMessage(e *events.GuildMessageCreate) {
	author := e.Message.Author
	if author.Bot || author.System || e.Message.Content == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
	defer cancel()

	triggers, err := l.Process(ctx, e.GuildID.String(), author.ID.String(), e.Message.Content)
	if err != nil {
		logger.LogError("Failed to process trigger words", err,
			slog.String("guild_id", e.GuildID.String()),
			slog.String("user_id", author.ID.String()))
	}

	counted := false
	for _, t := range triggers {
		if !t.Result.Counted {
			continue
		}
		counted = true

		if t.Result.Milestone == 0 {
			continue
		}
		if _, err := e.Client().Rest().CreateMessage(e.ChannelID, discord.NewMessageCreateBuilder().
			SetEmbeds(MilestoneEmbed(author.ID.String(), t.Word, t.Result.Milestone)).
			SetMessageReferenceByID(e.MessageID).
			Build()); err != nil {
			logger.LogError("Failed to announce milestone", err,
				slog.String("guild_id", e.GuildID.String()),
				slog.String("word", t.Word))
		}
	}

	if counted {
		if err := e.Client().Rest().AddReaction(e.ChannelID, e.MessageID, config.TriggerReaction); err != nil {
			slog.Warn("Failed to add trigger reaction",
				slog.String("type", "sys"),
				slog.String("channel_id", e.ChannelID.String()),
				slog.Any("error", err))
		}
	}
}

func MilestoneEmbed(userID, word string, count int) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle("🔥 Milestone reached!").
		SetDescriptionf("<@%s> hit a **%d** streak on `%s`!", userID, count, word).
		SetColor(config.StreakColor).
		Build()
}
