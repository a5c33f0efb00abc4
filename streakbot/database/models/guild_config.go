package models

import (
	"time"

	"github.com/streakbot/streakbot/internal/domain/economy"
	"github.com/uptrace/bun"
)

type GuildConfig struct {
	bun.BaseModel `bun:"table:guild_configs,alias:gc"`

	GuildID             string   `bun:"guild_id,pk"`
	TriggerWords        []string `bun:"trigger_words,type:jsonb"`
	StreakLimitMinutes  int      `bun:"streak_limit,notnull,default:0"`
	StreakStreakEnabled bool     `bun:"streak_streak_enabled,notnull,default:true"`

	RaidEnabled              bool    `bun:"raid_enabled,notnull,default:false"`
	RaidBaseChance           float64 `bun:"raid_base_chance,notnull,default:0.5"`
	RaidInitiatorBonus       float64 `bun:"raid_initiator_bonus,notnull,default:0.05"`
	RaidStealPercentage      float64 `bun:"raid_steal_percentage,notnull,default:0.2"`
	RaidRiskPercentage       float64 `bun:"raid_risk_percentage,notnull,default:0.15"`
	RaidMinSteal             int     `bun:"raid_min_steal,notnull,default:5"`
	RaidMaxSteal             int     `bun:"raid_max_steal,notnull,default:30"`
	RaidMinRisk              int     `bun:"raid_min_risk,notnull,default:3"`
	RaidMaxRisk              int     `bun:"raid_max_risk,notnull,default:20"`
	RaidSuccessCooldownHours int     `bun:"raid_success_cooldown_hours,notnull,default:4"`
	RaidFailureCooldownHours int     `bun:"raid_failure_cooldown_hours,notnull,default:2"`

	GambleEnabled       bool    `bun:"gamble_enabled,notnull,default:false"`
	GambleSuccessChance float64 `bun:"gamble_success_chance,notnull,default:0.5"`
	GambleMaxPercentage float64 `bun:"gamble_max_percentage,notnull,default:0.5"`
	GambleMinStreak     int     `bun:"gamble_min_streak,notnull,default:10"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// NewGuildConfig returns the configuration a guild starts with.
func NewGuildConfig(guildID string) *GuildConfig {
	raid := economy.DefaultRaidSettings()
	gamble := economy.DefaultGambleSettings()
	now := time.Now().UTC()

	return &GuildConfig{
		GuildID:             guildID,
		TriggerWords:        []string{},
		StreakStreakEnabled: true,

		RaidEnabled:              raid.Enabled,
		RaidBaseChance:           raid.BaseChance,
		RaidInitiatorBonus:       raid.InitiatorBonus,
		RaidStealPercentage:      raid.StealPercentage,
		RaidRiskPercentage:       raid.RiskPercentage,
		RaidMinSteal:             raid.MinSteal,
		RaidMaxSteal:             raid.MaxSteal,
		RaidMinRisk:              raid.MinRisk,
		RaidMaxRisk:              raid.MaxRisk,
		RaidSuccessCooldownHours: int(raid.SuccessCooldown / time.Hour),
		RaidFailureCooldownHours: int(raid.FailureCooldown / time.Hour),

		GambleEnabled:       gamble.Enabled,
		GambleSuccessChance: gamble.SuccessChance,
		GambleMaxPercentage: gamble.MaxPercentage,
		GambleMinStreak:     gamble.MinStreakRequirement,

		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (g *GuildConfig) RaidSettings() economy.RaidSettings {
	return economy.RaidSettings{
		Enabled:         g.RaidEnabled,
		BaseChance:      g.RaidBaseChance,
		InitiatorBonus:  g.RaidInitiatorBonus,
		StealPercentage: g.RaidStealPercentage,
		RiskPercentage:  g.RaidRiskPercentage,
		MinSteal:        g.RaidMinSteal,
		MaxSteal:        g.RaidMaxSteal,
		MinRisk:         g.RaidMinRisk,
		MaxRisk:         g.RaidMaxRisk,
		SuccessCooldown: time.Duration(g.RaidSuccessCooldownHours) * time.Hour,
		FailureCooldown: time.Duration(g.RaidFailureCooldownHours) * time.Hour,
	}
}

func (g *GuildConfig) GambleSettings() economy.GambleSettings {
	return economy.GambleSettings{
		Enabled:              g.GambleEnabled,
		SuccessChance:        g.GambleSuccessChance,
		MaxPercentage:        g.GambleMaxPercentage,
		MinStreakRequirement: g.GambleMinStreak,
	}
}

func (g *GuildConfig) StreakLimit() time.Duration {
	return time.Duration(g.StreakLimitMinutes) * time.Minute
}

// HasTriggerWord expects an already normalized word.
func (g *GuildConfig) HasTriggerWord(word string) bool {
	for _, w := range g.TriggerWords {
		if w == word {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to mutate outside the cache.
func (g *GuildConfig) Clone() *GuildConfig {
	c := *g
	c.TriggerWords = append([]string(nil), g.TriggerWords...)
	return &c
}
