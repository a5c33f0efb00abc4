package streaks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/streakbot/streakbot/internal/domain/economy"
	"github.com/streakbot/streakbot/streakbot/database/models"
	"github.com/streakbot/streakbot/streakbot/logger"
)

// Milestones are the counts announced when a trigger reaches them.
var Milestones = []int{10, 25, 50, 100, 250, 500, 1000}

func IsMilestone(count int) bool {
	for _, m := range Milestones {
		if m == count {
			return true
		}
	}
	return false
}

// DeltaOptions tunes ApplyDelta. NewBest raises BestStreak to at least the
// given value; Create inserts an empty row when none exists.
type DeltaOptions struct {
	NewBest *int
	Create  bool
}

// TriggerRules are the guild settings that govern counting.
type TriggerRules struct {
	StreakLimit         time.Duration
	StreakStreakEnabled bool
}

type TriggerResult struct {
	Streak  *models.Streak
	Created bool
	Counted bool
	// Milestone is the count reached when it is one of Milestones, else 0.
	Milestone int
	// CooldownRemaining is set when the trigger was ignored.
	CooldownRemaining time.Duration
}

type GambleResult struct {
	Outcome economy.GambleOutcome
	Streak  *models.Streak
}

type RaidResult struct {
	Outcome  economy.RaidOutcome
	Attacker *models.Streak
	Defender *models.Streak
}

// Service is the streak ledger. All writes to streak rows go through it, each
// in its own transaction with the affected rows locked.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

func normalizeKey(key models.StreakKey) (models.StreakKey, error) {
	w, err := ValidateWord(key.TriggerWord)
	if err != nil {
		return key, err
	}
	key.TriggerWord = w
	return key, nil
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *Service) Get(ctx context.Context, key models.StreakKey) (*models.Streak, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, key)
}

// GetOrCreate returns the existing row or persists a new one with count 1.
func (s *Service) GetOrCreate(ctx context.Context, key models.StreakKey) (*models.Streak, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return nil, err
	}

	var out *models.Streak
	err = s.repo.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		now := s.now().UTC()
		seed := newStreak(key, now)
		seed.Count = 1
		seed.BestStreak = 1

		st, _, err := lockOrCreate(ctx, tx, seed)
		out = st
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get or create streak: %w", err)
	}
	return out, nil
}

// ApplyDelta adds delta to the count, clamping at zero, and keeps BestStreak
// at or above the new count.
func (s *Service) ApplyDelta(ctx context.Context, key models.StreakKey, delta int, opts DeltaOptions) (*models.Streak, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return nil, err
	}

	var out *models.Streak
	err = s.repo.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		var st *models.Streak
		var err error
		if opts.Create {
			st, _, err = lockOrCreate(ctx, tx, newStreak(key, s.now().UTC()))
		} else {
			st, err = tx.GetForUpdate(ctx, key)
		}
		if err != nil {
			return err
		}

		applyCount(st, delta)
		if opts.NewBest != nil && *opts.NewBest > st.BestStreak {
			st.BestStreak = *opts.NewBest
		}
		if err = tx.Update(ctx, st); err != nil {
			return err
		}
		out = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Reset zeroes the count and streak-streak. BestStreak is kept.
func (s *Service) Reset(ctx context.Context, key models.StreakKey) (*models.Streak, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return nil, err
	}

	var out *models.Streak
	err = s.repo.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		st, err := tx.GetForUpdate(ctx, key)
		if err != nil {
			return err
		}
		st.Count = 0
		st.StreakStreak = 0
		st.LastStreakDate = time.Time{}
		if err = tx.Update(ctx, st); err != nil {
			return err
		}
		out = st
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.LogStreak("Streak reset", key.GuildID, key.UserID, key.TriggerWord)
	return out, nil
}

// Trigger counts one use of a trigger word. The first use creates the row;
// later uses only count once StreakLimit has elapsed since the last counted
// one.
func (s *Service) Trigger(ctx context.Context, key models.StreakKey, rules TriggerRules, now time.Time) (*TriggerResult, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return nil, err
	}
	now = now.UTC()

	var res *TriggerResult
	err = s.repo.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		seed := newStreak(key, now)
		seed.Count = 1
		seed.BestStreak = 1
		if rules.StreakStreakEnabled {
			seed.StreakStreak = 1
			seed.LastStreakDate = Day(now)
		}

		st, created, err := lockOrCreate(ctx, tx, seed)
		if err != nil {
			return err
		}
		if created {
			res = &TriggerResult{Streak: st, Created: true, Counted: true}
			return nil
		}

		if rules.StreakLimit > 0 {
			if elapsed := now.Sub(st.LastUpdated); elapsed < rules.StreakLimit {
				res = &TriggerResult{Streak: st, CooldownRemaining: rules.StreakLimit - elapsed}
				return nil
			}
		}

		applyCount(st, 1)
		if rules.StreakStreakEnabled {
			advanceStreakStreak(st, now)
		}
		st.LastUpdated = now
		if err = tx.Update(ctx, st); err != nil {
			return err
		}

		res = &TriggerResult{Streak: st, Counted: true}
		if IsMilestone(st.Count) {
			res.Milestone = st.Count
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func advanceStreakStreak(st *models.Streak, now time.Time) {
	today := Day(now)
	switch {
	case st.LastStreakDate.IsZero():
		st.StreakStreak = 1
	case Day(st.LastStreakDate).Equal(today):
		if st.StreakStreak == 0 {
			st.StreakStreak = 1
		}
	case Day(st.LastStreakDate).Equal(today.AddDate(0, 0, -1)):
		st.StreakStreak++
	default:
		st.StreakStreak = 1
	}
	st.LastStreakDate = today
}

// CheckDecay zeroes the streak-streak when the last qualifying day is older
// than yesterday. The count is not touched.
func (s *Service) CheckDecay(ctx context.Context, key models.StreakKey, now time.Time) (*models.Streak, bool, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return nil, false, err
	}

	var out *models.Streak
	var decayed bool
	err = s.repo.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		st, err := tx.GetForUpdate(ctx, key)
		if err != nil {
			return err
		}
		out = st

		yesterday := Day(now).AddDate(0, 0, -1)
		if st.StreakStreak == 0 || st.LastStreakDate.IsZero() || !Day(st.LastStreakDate).Before(yesterday) {
			return nil
		}
		st.StreakStreak = 0
		decayed = true
		return tx.Update(ctx, st)
	})
	if err != nil {
		return nil, false, err
	}
	return out, decayed, nil
}

// Gamble resolves a wager against the locked row. A missing row counts as a
// zero streak and is rejected by the wager rules.
func (s *Service) Gamble(ctx context.Context, key models.StreakKey, settings economy.GambleSettings, amount int, r economy.Roller) (*GambleResult, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return nil, err
	}

	var res *GambleResult
	err = s.repo.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		st, err := lockOptional(ctx, tx, key)
		if err != nil {
			return err
		}

		count := 0
		if st != nil {
			count = st.Count
		}
		outcome, err := economy.Gamble(count, settings, amount, r)
		if err != nil {
			return err
		}

		applyCount(st, outcome.Delta)
		if err = tx.Update(ctx, st); err != nil {
			return err
		}
		res = &GambleResult{Outcome: outcome, Streak: st}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.LogStreak("Gamble resolved", key.GuildID, key.UserID, key.TriggerWord,
		slog.Bool("won", res.Outcome.Won),
		slog.Int("amount", amount),
		slog.Int("count", res.Streak.Count))
	return res, nil
}

// Raid runs a raid by the key's user against defenderUserID on the same word.
// Both rows are locked in user id order. The cooldown covers every word: the
// attacker's latest raid in the guild decides it.
func (s *Service) Raid(ctx context.Context, attacker models.StreakKey, defenderUserID string, settings economy.RaidSettings, r economy.Roller, now time.Time) (*RaidResult, error) {
	attacker, err := normalizeKey(attacker)
	if err != nil {
		return nil, err
	}
	defender := attacker
	defender.UserID = defenderUserID
	now = now.UTC()

	var res *RaidResult
	err = s.repo.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		att, def, err := lockPair(ctx, tx, attacker, defender)
		if err != nil {
			return err
		}

		last, err := tx.LastRaid(ctx, attacker.GuildID, attacker.UserID)
		if err != nil {
			return err
		}

		in := economy.RaidInput{
			AttackerID: attacker.UserID,
			DefenderID: defender.UserID,
			Now:        now,
		}
		if att != nil {
			in.AttackerCount = att.Count
		}
		if last != nil {
			in.LastRaidAt = last.LastRaidAt
			in.LastRaidSucceeded = last.LastRaidSuccess
		}
		if def != nil {
			in.DefenderCount = def.Count
		}

		outcome, err := economy.Raid(in, settings, r)
		if err != nil {
			return err
		}

		applyCount(att, outcome.AttackerDelta)
		att.LastRaidAt = now
		att.LastRaidSuccess = outcome.Success
		applyCount(def, outcome.DefenderDelta)

		if err = tx.Update(ctx, att); err != nil {
			return err
		}
		if err = tx.Update(ctx, def); err != nil {
			return err
		}
		res = &RaidResult{Outcome: outcome, Attacker: att, Defender: def}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.LogStreak("Raid resolved", attacker.GuildID, attacker.UserID, attacker.TriggerWord,
		slog.String("defender_id", defenderUserID),
		slog.Bool("success", res.Outcome.Success),
		slog.Float64("chance", res.Outcome.Chance))
	return res, nil
}

// Leaderboard returns the top rows for a word ordered by count.
func (s *Service) Leaderboard(ctx context.Context, guildID, word string, limit int) ([]*models.Streak, error) {
	w, err := ValidateWord(word)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	return s.repo.ListByWord(ctx, guildID, w, limit)
}

func (s *Service) UserStreaks(ctx context.Context, guildID, userID string) ([]*models.Streak, error) {
	return s.repo.ListByUser(ctx, guildID, userID)
}

func newStreak(key models.StreakKey, now time.Time) *models.Streak {
	return &models.Streak{
		GuildID:     key.GuildID,
		UserID:      key.UserID,
		TriggerWord: key.TriggerWord,
		LastUpdated: now,
		CreatedAt:   now,
	}
}

// applyCount adds delta with a zero floor and raises BestStreak to match.
func applyCount(st *models.Streak, delta int) {
	st.Count = max(st.Count+delta, 0)
	st.BestStreak = max(st.BestStreak, st.Count)
}

func lockOrCreate(ctx context.Context, tx Tx, seed *models.Streak) (*models.Streak, bool, error) {
	created, err := tx.InsertIfAbsent(ctx, seed)
	if err != nil {
		return nil, false, err
	}
	st, err := tx.GetForUpdate(ctx, seed.Key())
	if err != nil {
		return nil, false, err
	}
	return st, created, nil
}

func lockOptional(ctx context.Context, tx Tx, key models.StreakKey) (*models.Streak, error) {
	st, err := tx.GetForUpdate(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return st, err
}

func lockPair(ctx context.Context, tx Tx, a, b models.StreakKey) (*models.Streak, *models.Streak, error) {
	first, second := a, b
	swapped := b.UserID < a.UserID
	if swapped {
		first, second = b, a
	}

	s1, err := lockOptional(ctx, tx, first)
	if err != nil {
		return nil, nil, err
	}
	s2, err := lockOptional(ctx, tx, second)
	if err != nil {
		return nil, nil, err
	}
	if swapped {
		return s2, s1, nil
	}
	return s1, s2, nil
}
