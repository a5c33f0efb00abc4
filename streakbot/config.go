package streakbot

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Environment variables that override values from the config file.
const (
	EnvToken      = "STREAKBOT_TOKEN"
	EnvDBHost     = "STREAKBOT_DB_HOST"
	EnvDBPort     = "STREAKBOT_DB_PORT"
	EnvDBPassword = "STREAKBOT_DB_PASSWORD"
	EnvArchiveKey = "STREAKBOT_ARCHIVE_KEY"
	EnvArchiveSec = "STREAKBOT_ARCHIVE_SECRET"
)

func LoadConfig(path string) (*Config, error) {
	// .env is optional; production passes real environment variables
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", slog.Any("error", err))
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	cfg := DefaultConfig()
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err = cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level:  slog.LevelInfo,
			Format: "text",
		},
		DB: DBConfig{
			Host:           "localhost",
			Port:           5432,
			Database:       "streakbot",
			PoolSize:       10,
			AcquireTimeout: Duration(5 * time.Second),
			MaxRetries:     3,
			RetryBackoff:   Duration(100 * time.Millisecond),
		},
	}
}

type Config struct {
	Log     LogConfig     `toml:"log"`
	Bot     BotConfig     `toml:"bot"`
	DB      DBConfig      `toml:"db"`
	Archive ArchiveConfig `toml:"archive"`
}

type BotConfig struct {
	DevGuilds []snowflake.ID `toml:"dev_guilds"`
	Token     string         `toml:"token"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
	NoColor   bool       `toml:"no_color"`
}

type DBConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	User           string   `toml:"user"`
	Password       string   `toml:"password"`
	Database       string   `toml:"database"`
	SSLMode        string   `toml:"ssl_mode"`
	PoolSize       int      `toml:"pool_size"`
	AcquireTimeout Duration `toml:"acquire_timeout"`
	MaxRetries     int      `toml:"max_retries"`
	RetryBackoff   Duration `toml:"retry_backoff"`
}

// ArchiveConfig points at an S3-compatible bucket that receives
// pre-migration snapshots. Empty Bucket disables archiving.
type ArchiveConfig struct {
	Endpoint string `toml:"endpoint"`
	Region   string `toml:"region"`
	Bucket   string `toml:"bucket"`
	Prefix   string `toml:"prefix"`
	Key      string `toml:"key"`
	Secret   string `toml:"secret"`
}

func (c ArchiveConfig) Enabled() bool {
	return c.Bucket != ""
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvToken); v != "" {
		c.Bot.Token = v
	}
	if v := os.Getenv(EnvDBHost); v != "" {
		c.DB.Host = v
	}
	if v := os.Getenv(EnvDBPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvDBPort, err)
		}
		c.DB.Port = port
	}
	if v := os.Getenv(EnvDBPassword); v != "" {
		c.DB.Password = v
	}
	if v := os.Getenv(EnvArchiveKey); v != "" {
		c.Archive.Key = v
	}
	if v := os.Getenv(EnvArchiveSec); v != "" {
		c.Archive.Secret = v
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return fmt.Errorf("bot token is required (config bot.token or %s)", EnvToken)
	}
	if c.DB.Host == "" || c.DB.Database == "" {
		return errors.New("db.host and db.database are required")
	}
	if c.DB.MaxRetries < 0 {
		return errors.New("db.max_retries must not be negative")
	}
	if c.Archive.Enabled() && c.Archive.Region == "" {
		return errors.New("archive.region is required when archive.bucket is set")
	}
	return nil
}

// Duration decodes TOML strings like "5s" into a time.Duration.
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}
