package config

import "time"

// UI and Display Constants
const (
	LeaderboardPageSize   = 10
	LeaderboardMaxEntries = 100
	MaxAutocomplete       = 25

	ErrorColor   = 0xFF0000
	SuccessColor = 0x00FF00
	InfoColor    = 0x0099FF
	WarningColor = 0xFFAA00

	EmbedDefaultColor = 0x2B2D31
	StreakColor       = 0xFF7A00
	RaidColor         = 0xB22222

	TriggerReaction = "🔥"
)

// Timeouts
const (
	DefaultQueryTimeout     = 5 * time.Second
	CommandExecutionTimeout = 10 * time.Second
	SlowCommandThreshold    = 2 * time.Second
	AutocompleteTimeout     = 2 * time.Second
	MigrationTimeout        = 5 * time.Minute
	ShutdownTimeout         = 10 * time.Second
)

// Cache settings
const (
	GuildConfigCacheSize = 512
)
