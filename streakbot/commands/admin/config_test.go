package admin

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/disgoorg/disgo/discord"
	"github.com/streakbot/streakbot/internal/domain/guilds"
	"github.com/streakbot/streakbot/streakbot/database/models"
)

func slashData(opts map[string]string) discord.SlashCommandInteractionData {
	options := make(map[string]discord.SlashCommandOption, len(opts))
	for name, raw := range opts {
		options[name] = discord.SlashCommandOption{Name: name, Value: json.RawMessage(raw)}
	}
	return discord.SlashCommandInteractionData{Options: options}
}

func TestSplitWords(t *testing.T) {
	got := SplitWords("gm, gn coffee,,\tcafé")
	if want := []string{"gm", "gn", "coffee", "café"}; !reflect.DeepEqual(got, want) {
		t.Errorf("SplitWords = %v, want %v", got, want)
	}
}

func TestSettingsUpdate(t *testing.T) {
	tests := []struct {
		name    string
		sub     string
		opts    map[string]string
		check   func(t *testing.T, cfg *models.GuildConfig)
		invalid bool
	}{
		{
			name: "raid partial update keeps the rest",
			sub:  "raid-settings",
			opts: map[string]string{"base_chance": "0.4", "max_steal": "50"},
			check: func(t *testing.T, cfg *models.GuildConfig) {
				if cfg.RaidBaseChance != 0.4 || cfg.RaidMaxSteal != 50 || cfg.RaidMinSteal != 5 || cfg.RaidInitiatorBonus != 0.05 {
					t.Errorf("unexpected raid settings: %+v", cfg)
				}
			},
		},
		{
			name:    "raid steal bounds inverted",
			sub:     "raid-settings",
			opts:    map[string]string{"min_steal": "40"},
			invalid: true,
		},
		{
			name: "gamble",
			sub:  "gamble-settings",
			opts: map[string]string{"min_streak": "0", "success_chance": "0.45"},
			check: func(t *testing.T, cfg *models.GuildConfig) {
				if cfg.GambleMinStreak != 0 || cfg.GambleSuccessChance != 0.45 || cfg.GambleMaxPercentage != 0.5 {
					t.Errorf("unexpected gamble settings: %+v", cfg)
				}
			},
		},
		{
			name: "streak limit",
			sub:  "streak-limit",
			opts: map[string]string{"minutes": "90"},
			check: func(t *testing.T, cfg *models.GuildConfig) {
				if cfg.StreakLimitMinutes != 90 {
					t.Errorf("StreakLimitMinutes = %d", cfg.StreakLimitMinutes)
				}
			},
		},
		{
			name: "raid toggle",
			sub:  "raid-toggle",
			opts: map[string]string{"enabled": "true"},
			check: func(t *testing.T, cfg *models.GuildConfig) {
				if !cfg.RaidEnabled {
					t.Error("raids not enabled")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mutate, ok := settingsUpdate(tt.sub, slashData(tt.opts))
			if !ok {
				t.Fatalf("settingsUpdate(%q) not handled", tt.sub)
			}
			cfg := models.NewGuildConfig("g1")
			mutate(cfg)

			err := guilds.Validate(cfg)
			if tt.invalid {
				if !errors.Is(err, guilds.ErrInvalidSetting) {
					t.Fatalf("expected invalid setting, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
			tt.check(t, cfg)
		})
	}

	if _, ok := settingsUpdate("unknown", slashData(nil)); ok {
		t.Error("unknown subcommand was accepted")
	}
}
