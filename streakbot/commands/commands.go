package commands

import (
	"github.com/disgoorg/disgo/discord"
	"github.com/streakbot/streakbot/streakbot/commands/admin"
	"github.com/streakbot/streakbot/streakbot/commands/economy"
	"github.com/streakbot/streakbot/streakbot/commands/system"
)

var Commands = []discord.ApplicationCommandCreate{
	Streak,
	Leaderboard,
}

func init() {
	Commands = append(Commands, admin.Commands...)
	Commands = append(Commands, economy.Commands...)
	Commands = append(Commands, system.Commands...)
}
