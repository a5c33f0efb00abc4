package utils

import (
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/snowflake/v2"
)

// GuildID returns the guild an interaction came from, or "" outside guilds.
func GuildID(e interface{ GuildID() *snowflake.ID }) string {
	if id := e.GuildID(); id != nil {
		return id.String()
	}
	return ""
}

// CanManageGuild reports whether the invoking member holds Manage Server.
func CanManageGuild(e *handler.CommandEvent) bool {
	member := e.Member()
	return member != nil && member.Permissions.Has(discord.PermissionManageGuild)
}

// Medal returns the rank marker used on leaderboards.
func Medal(rank int) string {
	switch rank {
	case 1:
		return "🥇"
	case 2:
		return "🥈"
	case 3:
		return "🥉"
	default:
		return fmt.Sprintf("`#%d`", rank)
	}
}

// Plural picks singular or plural by n.
func Plural(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

// FormatHours renders whole-hour cooldowns like "4 hours".
func FormatHours(d time.Duration) string {
	h := int(d / time.Hour)
	return fmt.Sprintf("%d %s", h, Plural(h, "hour", "hours"))
}

// Percent renders a [0,1] probability as a percentage.
func Percent(p float64) string {
	return fmt.Sprintf("%.0f%%", p*100)
}
