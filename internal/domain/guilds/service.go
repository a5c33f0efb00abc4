package guilds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/streakbot/streakbot/internal/domain/streaks"
	"github.com/streakbot/streakbot/streakbot/database/models"
	"golang.org/x/sync/singleflight"
)

// Service owns guild configuration. Reads are served from an LRU cache and
// every value handed out is a copy, so callers may mutate it freely.
type Service struct {
	repo  Repository
	cache *lru.Cache
	group singleflight.Group
	now   func() time.Time
}

func NewService(repo Repository, cacheSize int) (*Service, error) {
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create guild config cache: %w", err)
	}
	return &Service{
		repo:  repo,
		cache: cache,
		now:   time.Now,
	}, nil
}

// Get returns the guild's configuration, creating it with defaults on first
// use. Concurrent first lookups for the same guild share one load.
func (s *Service) Get(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	if v, ok := s.cache.Get(guildID); ok {
		return v.(*models.GuildConfig).Clone(), nil
	}

	v, err, _ := s.group.Do(guildID, func() (interface{}, error) {
		return s.load(ctx, guildID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.GuildConfig).Clone(), nil
}

func (s *Service) load(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	cfg, err := s.repo.Get(ctx, guildID)
	if errors.Is(err, ErrNotFound) {
		if err = s.repo.Create(ctx, models.NewGuildConfig(guildID)); err != nil {
			return nil, fmt.Errorf("failed to create guild config: %w", err)
		}
		slog.Info("Guild config created",
			slog.String("type", "sys"),
			slog.String("guild_id", guildID))
		// Re-read so a row created concurrently by another process wins.
		cfg, err = s.repo.Get(ctx, guildID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load guild config: %w", err)
	}

	s.cache.Add(guildID, cfg)
	return cfg, nil
}

// Update applies fn to the stored configuration under a row lock, validates
// the result and persists it. The row is created with defaults first when the
// guild has none.
func (s *Service) Update(ctx context.Context, guildID string, fn func(cfg *models.GuildConfig) error) (*models.GuildConfig, error) {
	if _, err := s.Get(ctx, guildID); err != nil {
		return nil, err
	}

	cfg, err := s.repo.Modify(ctx, guildID, func(cfg *models.GuildConfig) error {
		if err := fn(cfg); err != nil {
			return err
		}
		if err := Validate(cfg); err != nil {
			return err
		}
		cfg.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		s.cache.Remove(guildID)
		return nil, err
	}

	s.cache.Add(guildID, cfg.Clone())
	return cfg.Clone(), nil
}

// AddTriggerWords adds normalized words and returns the ones that were new.
func (s *Service) AddTriggerWords(ctx context.Context, guildID string, words []string) ([]string, *models.GuildConfig, error) {
	normalized, err := streaks.NormalizeWords(words)
	if err != nil {
		return nil, nil, err
	}

	var added []string
	cfg, err := s.Update(ctx, guildID, func(cfg *models.GuildConfig) error {
		added = added[:0]
		for _, w := range normalized {
			if !cfg.HasTriggerWord(w) {
				cfg.TriggerWords = append(cfg.TriggerWords, w)
				added = append(added, w)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return added, cfg, nil
}

// RemoveTriggerWords removes words and returns the ones that were present.
// Existing streak rows for removed words are kept.
func (s *Service) RemoveTriggerWords(ctx context.Context, guildID string, words []string) ([]string, *models.GuildConfig, error) {
	normalized, err := streaks.NormalizeWords(words)
	if err != nil {
		return nil, nil, err
	}
	drop := make(map[string]bool, len(normalized))
	for _, w := range normalized {
		drop[w] = true
	}

	var removed []string
	cfg, err := s.Update(ctx, guildID, func(cfg *models.GuildConfig) error {
		removed = removed[:0]
		kept := cfg.TriggerWords[:0]
		for _, w := range cfg.TriggerWords {
			if drop[w] {
				removed = append(removed, w)
				continue
			}
			kept = append(kept, w)
		}
		cfg.TriggerWords = kept
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return removed, cfg, nil
}

// Invalidate drops the cached configuration for a guild.
func (s *Service) Invalidate(guildID string) {
	s.cache.Remove(guildID)
}

// Validate checks every tunable of cfg.
func Validate(cfg *models.GuildConfig) error {
	if cfg.StreakLimitMinutes < 0 {
		return invalid("streak limit must not be negative")
	}

	for name, v := range map[string]float64{
		"raid base chance":      cfg.RaidBaseChance,
		"raid initiator bonus":  cfg.RaidInitiatorBonus,
		"raid steal percentage": cfg.RaidStealPercentage,
		"raid risk percentage":  cfg.RaidRiskPercentage,
		"gamble success chance": cfg.GambleSuccessChance,
		"gamble max percentage": cfg.GambleMaxPercentage,
	} {
		if v < 0 || v > 1 {
			return invalid("%s must be between 0 and 1", name)
		}
	}

	if cfg.RaidMinSteal < 0 || cfg.RaidMinSteal > cfg.RaidMaxSteal {
		return invalid("steal bounds must satisfy 0 <= min <= max")
	}
	if cfg.RaidMinRisk < 0 || cfg.RaidMinRisk > cfg.RaidMaxRisk {
		return invalid("risk bounds must satisfy 0 <= min <= max")
	}
	if cfg.RaidSuccessCooldownHours < 0 || cfg.RaidFailureCooldownHours < 0 {
		return invalid("raid cooldowns must not be negative")
	}
	if cfg.GambleMinStreak < 0 {
		return invalid("gamble minimum streak must not be negative")
	}

	if _, err := streaks.NormalizeWords(cfg.TriggerWords); err != nil {
		return err
	}
	return nil
}
