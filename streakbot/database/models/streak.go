package models

import (
	"time"

	"github.com/uptrace/bun"
)

// StreakKey identifies one streak row. TriggerWord must already be normalized.
type StreakKey struct {
	GuildID     string
	UserID      string
	TriggerWord string
}

type Streak struct {
	bun.BaseModel `bun:"table:streaks,alias:s"`

	ID           int64  `bun:"id,pk,autoincrement"`
	GuildID      string `bun:"guild_id,notnull,unique:streak_key"`
	UserID       string `bun:"user_id,notnull,unique:streak_key"`
	TriggerWord  string `bun:"trigger_word,notnull,unique:streak_key"`
	Count        int    `bun:"count,notnull,default:0"`
	BestStreak   int    `bun:"best_streak,notnull,default:0"`
	StreakStreak int    `bun:"streak_streak,notnull,default:0"`

	// LastStreakDate is a UTC calendar day at midnight, zero when unset.
	LastStreakDate time.Time `bun:"last_streak_date,nullzero"`
	LastUpdated    time.Time `bun:"last_updated,notnull,default:current_timestamp"`

	LastRaidAt      time.Time `bun:"last_raid_at,nullzero"`
	LastRaidSuccess bool      `bun:"last_raid_success,notnull,default:false"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

func (s *Streak) Key() StreakKey {
	return StreakKey{GuildID: s.GuildID, UserID: s.UserID, TriggerWord: s.TriggerWord}
}
