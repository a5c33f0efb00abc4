package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/streakbot/streakbot/streakbot"
	"github.com/streakbot/streakbot/streakbot/config"
	"github.com/streakbot/streakbot/streakbot/database/models"
	"github.com/streakbot/streakbot/streakbot/utils"
)

func chanceOption(name, description string) discord.ApplicationCommandOptionFloat {
	return discord.ApplicationCommandOptionFloat{
		Name:        name,
		Description: description,
		MinValue:    utils.Ptr(0.0),
		MaxValue:    utils.Ptr(1.0),
	}
}

func countOption(name, description string) discord.ApplicationCommandOptionInt {
	return discord.ApplicationCommandOptionInt{
		Name:        name,
		Description: description,
		MinValue:    utils.Ptr(0),
	}
}

var Config = discord.SlashCommandCreate{
	Name:        "config",
	Description: "⚙️ Configure streaks for this server",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "show",
			Description: "Show the current configuration",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "words-add",
			Description: "Add trigger words",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "words",
					Description: "Words separated by commas or spaces",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "words-remove",
			Description: "Remove trigger words (existing streaks are kept)",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:         "words",
					Description:  "Words separated by commas or spaces",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "streak-limit",
			Description: "Minimum minutes between counted triggers (0 disables)",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        "minutes",
					Description: "Minutes",
					Required:    true,
					MinValue:    utils.Ptr(0),
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "streak-streak",
			Description: "Track consecutive days",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionBool{
					Name:        "enabled",
					Description: "Enable daily streak tracking",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "raid-toggle",
			Description: "Enable or disable raids",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionBool{
					Name:        "enabled",
					Description: "Enable raids",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "gamble-toggle",
			Description: "Enable or disable gambling",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionBool{
					Name:        "enabled",
					Description: "Enable gambling",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "raid-settings",
			Description: "Tune raid odds, amounts and cooldowns",
			Options: []discord.ApplicationCommandOption{
				chanceOption("base_chance", "Base success chance (0-1)"),
				chanceOption("initiator_bonus", "Bonus chance for the attacker (0-1)"),
				chanceOption("steal_percentage", "Share of the defender's streak stolen (0-1)"),
				chanceOption("risk_percentage", "Share of the attacker's streak at risk (0-1)"),
				countOption("min_steal", "Minimum stolen"),
				countOption("max_steal", "Maximum stolen"),
				countOption("min_risk", "Minimum lost on failure"),
				countOption("max_risk", "Maximum lost on failure"),
				countOption("success_cooldown", "Hours between raids after a success"),
				countOption("failure_cooldown", "Hours between raids after a failure"),
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "gamble-settings",
			Description: "Tune gamble odds and limits",
			Options: []discord.ApplicationCommandOption{
				chanceOption("success_chance", "Chance to win (0-1)"),
				chanceOption("max_percentage", "Largest share of a streak that may be wagered (0-1)"),
				countOption("min_streak", "Streak required before gambling"),
			},
		},
	},
}

func ConfigHandler(b *streakbot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		guildID := utils.GuildID(e)
		if guildID == "" {
			return utils.EH.CreateUserError(e, "Configuration only exists inside a server.")
		}
		if !utils.CanManageGuild(e) {
			return utils.EH.CreatePermissionError(e, "change the streak configuration")
		}

		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
		defer cancel()

		data := e.SlashCommandInteractionData()
		if data.SubCommandName == nil {
			return utils.EH.CreateUserError(e, "Invalid subcommand")
		}

		switch *data.SubCommandName {
		case "show":
			cfg, err := b.Guilds.Get(ctx, guildID)
			if err != nil {
				return utils.EH.CreateDomainError(e, err)
			}
			return e.CreateMessage(discord.MessageCreate{Embeds: []discord.Embed{ConfigEmbed(cfg)}})

		case "words-add":
			added, cfg, err := b.Guilds.AddTriggerWords(ctx, guildID, SplitWords(data.String("words")))
			if err != nil {
				return utils.EH.CreateDomainError(e, err)
			}
			if len(added) == 0 {
				return utils.EH.CreateInfoEmbed(e, "Those words are already trigger words.")
			}
			return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("Added %s. Trigger words: %s",
				quoteWords(added), quoteWords(cfg.TriggerWords)))

		case "words-remove":
			removed, cfg, err := b.Guilds.RemoveTriggerWords(ctx, guildID, SplitWords(data.String("words")))
			if err != nil {
				return utils.EH.CreateDomainError(e, err)
			}
			if len(removed) == 0 {
				return utils.EH.CreateInfoEmbed(e, "None of those words were trigger words.")
			}
			return utils.EH.CreateSuccessEmbed(e, fmt.Sprintf("Removed %s. Trigger words: %s",
				quoteWords(removed), quoteWords(cfg.TriggerWords)))

		default:
			mutate, ok := settingsUpdate(*data.SubCommandName, data)
			if !ok {
				return utils.EH.CreateUserError(e, "Invalid subcommand")
			}
			cfg, err := b.Guilds.Update(ctx, guildID, func(cfg *models.GuildConfig) error {
				mutate(cfg)
				return nil
			})
			if err != nil {
				return utils.EH.CreateDomainError(e, err)
			}
			return e.CreateMessage(discord.MessageCreate{
				Content: "✅ Configuration updated",
				Embeds:  []discord.Embed{ConfigEmbed(cfg)},
			})
		}
	}
}

// settingsUpdate maps a settings subcommand to the mutation it applies.
// Options the admin left out keep their current value.
func settingsUpdate(sub string, data discord.SlashCommandInteractionData) (func(cfg *models.GuildConfig), bool) {
	setFloat := func(name string, dst *float64) {
		if v, ok := data.OptFloat(name); ok {
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if v, ok := data.OptInt(name); ok {
			*dst = v
		}
	}

	switch sub {
	case "streak-limit":
		return func(cfg *models.GuildConfig) { cfg.StreakLimitMinutes = data.Int("minutes") }, true
	case "streak-streak":
		return func(cfg *models.GuildConfig) { cfg.StreakStreakEnabled = data.Bool("enabled") }, true
	case "raid-toggle":
		return func(cfg *models.GuildConfig) { cfg.RaidEnabled = data.Bool("enabled") }, true
	case "gamble-toggle":
		return func(cfg *models.GuildConfig) { cfg.GambleEnabled = data.Bool("enabled") }, true
	case "raid-settings":
		return func(cfg *models.GuildConfig) {
			setFloat("base_chance", &cfg.RaidBaseChance)
			setFloat("initiator_bonus", &cfg.RaidInitiatorBonus)
			setFloat("steal_percentage", &cfg.RaidStealPercentage)
			setFloat("risk_percentage", &cfg.RaidRiskPercentage)
			setInt("min_steal", &cfg.RaidMinSteal)
			setInt("max_steal", &cfg.RaidMaxSteal)
			setInt("min_risk", &cfg.RaidMinRisk)
			setInt("max_risk", &cfg.RaidMaxRisk)
			setInt("success_cooldown", &cfg.RaidSuccessCooldownHours)
			setInt("failure_cooldown", &cfg.RaidFailureCooldownHours)
		}, true
	case "gamble-settings":
		return func(cfg *models.GuildConfig) {
			setFloat("success_chance", &cfg.GambleSuccessChance)
			setFloat("max_percentage", &cfg.GambleMaxPercentage)
			setInt("min_streak", &cfg.GambleMinStreak)
		}, true
	}
	return nil, false
}

// SplitWords splits admin input on commas and whitespace.
func SplitWords(input string) []string {
	return strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}

func quoteWords(words []string) string {
	if len(words) == 0 {
		return "none"
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = "`" + w + "`"
	}
	return strings.Join(quoted, ", ")
}

func onOff(v bool) string {
	if v {
		return "✅ enabled"
	}
	return "❌ disabled"
}

func ConfigEmbed(cfg *models.GuildConfig) discord.Embed {
	raid := cfg.RaidSettings()
	gamble := cfg.GambleSettings()

	limit := "none"
	if cfg.StreakLimitMinutes > 0 {
		limit = fmt.Sprintf("%d %s", cfg.StreakLimitMinutes, utils.Plural(cfg.StreakLimitMinutes, "minute", "minutes"))
	}

	return discord.NewEmbedBuilder().
		SetTitle("⚙️ Streak configuration").
		SetColor(config.EmbedDefaultColor).
		AddField("Trigger words", quoteWords(cfg.TriggerWords), false).
		AddField("Streak limit", limit, true).
		AddField("Daily streaks", onOff(cfg.StreakStreakEnabled), true).
		AddField("Raids", fmt.Sprintf("%s\nChance %s + %s\nSteal %s (%d-%d)\nRisk %s (%d-%d)\nCooldown %s / %s",
			onOff(raid.Enabled),
			utils.Percent(raid.BaseChance), utils.Percent(raid.InitiatorBonus),
			utils.Percent(raid.StealPercentage), raid.MinSteal, raid.MaxSteal,
			utils.Percent(raid.RiskPercentage), raid.MinRisk, raid.MaxRisk,
			utils.FormatHours(raid.SuccessCooldown), utils.FormatHours(raid.FailureCooldown)), false).
		AddField("Gambling", fmt.Sprintf("%s\nWin chance %s\nMax wager %s\nMinimum streak %d",
			onOff(gamble.Enabled),
			utils.Percent(gamble.SuccessChance),
			utils.Percent(gamble.MaxPercentage),
			gamble.MinStreakRequirement), false).
		Build()
}
