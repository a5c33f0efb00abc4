package streaks_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/streakbot/streakbot/internal/domain/economy"
	"github.com/streakbot/streakbot/internal/domain/streaks"
	"github.com/streakbot/streakbot/streakbot/database/dbtest"
	"github.com/streakbot/streakbot/streakbot/database/models"
	"github.com/streakbot/streakbot/streakbot/database/repositories"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newLedger(t *testing.T) *streaks.Service {
	t.Helper()
	db := dbtest.Open(t)
	return streaks.NewService(repositories.NewStreakRepository(db, dbtest.TxOptions()))
}

func key(user, word string) models.StreakKey {
	return models.StreakKey{GuildID: "guild", UserID: user, TriggerWord: word}
}

func fixedRoll(v float64) economy.Roller {
	return economy.RollerFunc(func() float64 { return v })
}

func seed(t *testing.T, ledger *streaks.Service, k models.StreakKey, count int) {
	t.Helper()
	st, err := ledger.ApplyDelta(context.Background(), k, count, streaks.DeltaOptions{Create: true})
	require.NoError(t, err)
	require.Equal(t, count, st.Count)
}

func requireBestInvariant(t *testing.T, st *models.Streak) {
	t.Helper()
	require.GreaterOrEqual(t, st.BestStreak, st.Count)
	require.GreaterOrEqual(t, st.Count, 0)
}

func TestGetOrCreate(t *testing.T) {
	ledger := newLedger(t)
	ctx := context.Background()

	st, err := ledger.GetOrCreate(ctx, key("u1", "GM"))
	require.NoError(t, err)
	require.Equal(t, "gm", st.TriggerWord)
	require.Equal(t, 1, st.Count)
	require.Equal(t, 1, st.BestStreak)

	again, err := ledger.GetOrCreate(ctx, key("u1", "gm"))
	require.NoError(t, err)
	require.Equal(t, st.ID, again.ID)
	require.Equal(t, 1, again.Count)
}

func TestGet(t *testing.T) {
	ledger := newLedger(t)
	ctx := context.Background()

	_, err := ledger.Get(ctx, key("u1", "gm"))
	require.ErrorIs(t, err, streaks.ErrNotFound)

	_, err = ledger.Get(ctx, key("u1", "   "))
	require.ErrorIs(t, err, streaks.ErrInvalidWord)
	require.ErrorIs(t, err, economy.ErrValidation)
}

func TestApplyDelta(t *testing.T) {
	ledger := newLedger(t)
	ctx := context.Background()
	k := key("u1", "gm")

	_, err := ledger.ApplyDelta(ctx, k, 3, streaks.DeltaOptions{})
	require.ErrorIs(t, err, streaks.ErrNotFound)

	st, err := ledger.ApplyDelta(ctx, k, 5, streaks.DeltaOptions{Create: true})
	require.NoError(t, err)
	require.Equal(t, 5, st.Count)
	require.Equal(t, 5, st.BestStreak)

	st, err = ledger.ApplyDelta(ctx, k, -10, streaks.DeltaOptions{})
	require.NoError(t, err)
	require.Equal(t, 0, st.Count, "count is floored at zero")
	require.Equal(t, 5, st.BestStreak)

	best := 20
	st, err = ledger.ApplyDelta(ctx, k, 2, streaks.DeltaOptions{NewBest: &best})
	require.NoError(t, err)
	require.Equal(t, 2, st.Count)
	require.Equal(t, 20, st.BestStreak)

	stored, err := ledger.Get(ctx, k)
	require.NoError(t, err)
	require.Equal(t, 2, stored.Count)
	require.Equal(t, 20, stored.BestStreak)
}

func TestReset(t *testing.T) {
	ledger := newLedger(t)
	ctx := context.Background()
	k := key("u1", "gm")

	_, err := ledger.Reset(ctx, k)
	require.ErrorIs(t, err, streaks.ErrNotFound)

	_, err = ledger.Trigger(ctx, k, streaks.TriggerRules{StreakStreakEnabled: true}, base)
	require.NoError(t, err)
	_, err = ledger.ApplyDelta(ctx, k, 8, streaks.DeltaOptions{})
	require.NoError(t, err)

	st, err := ledger.Reset(ctx, k)
	require.NoError(t, err)
	require.Equal(t, 0, st.Count)
	require.Equal(t, 0, st.StreakStreak)
	require.True(t, st.LastStreakDate.IsZero())
	require.Equal(t, 9, st.BestStreak)

	stored, err := ledger.Get(ctx, k)
	require.NoError(t, err)
	require.Equal(t, 0, stored.Count)
	require.True(t, stored.LastStreakDate.IsZero())
	require.Equal(t, 9, stored.BestStreak)
}

func TestTriggerStreakStreak(t *testing.T) {
	ledger := newLedger(t)
	ctx := context.Background()
	k := key("u1", "gm")
	rules := streaks.TriggerRules{StreakStreakEnabled: true}

	steps := []struct {
		name         string
		at           time.Time
		count        int
		streakStreak int
	}{
		{"first use", base, 1, 1},
		{"same day", base.Add(3 * time.Hour), 2, 1},
		{"next day", base.AddDate(0, 0, 1), 3, 2},
		{"day after", base.AddDate(0, 0, 2).Add(-11 * time.Hour), 4, 3},
		{"gap restarts", base.AddDate(0, 0, 5), 5, 1},
	}

	for i, step := range steps {
		res, err := ledger.Trigger(ctx, k, rules, step.at)
		require.NoError(t, err, step.name)
		require.True(t, res.Counted, step.name)
		require.Equal(t, i == 0, res.Created, step.name)
		require.Equal(t, step.count, res.Streak.Count, step.name)
		require.Equal(t, step.streakStreak, res.Streak.StreakStreak, step.name)
		requireBestInvariant(t, res.Streak)
	}
}

func TestTriggerWithoutStreakStreak(t *testing.T) {
	ledger := newLedger(t)
	ctx := context.Background()
	k := key("u1", "gm")

	res, err := ledger.Trigger(ctx, k, streaks.TriggerRules{}, base)
	require.NoError(t, err)
	require.Equal(t, 0, res.Streak.StreakStreak)
	require.True(t, res.Streak.LastStreakDate.IsZero())

	res, err = ledger.Trigger(ctx, k, streaks.TriggerRules{}, base.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Equal(t, 2, res.Streak.Count)
	require.Equal(t, 0, res.Streak.StreakStreak)
}

func TestTriggerStreakLimit(t *testing.T) {
	ledger := newLedger(t)
	ctx := context.Background()
	k := key("u1", "gm")
	rules := streaks.TriggerRules{StreakLimit: time.Hour}

	_, err := ledger.Trigger(ctx, k, rules, base)
	require.NoError(t, err)

	res, err := ledger.Trigger(ctx, k, rules, base.Add(30*time.Minute))
	require.NoError(t, err)
	require.False(t, res.Counted)
	require.Equal(t, 1, res.Streak.Count)
	require.Equal(t, 30*time.Minute, res.CooldownRemaining)

	res, err = ledger.Trigger(ctx, k, rules, base.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, res.Counted)
	require.Equal(t, 2, res.Streak.Count)
}

func TestTriggerMilestone(t *testing.T) {
	ledger := newLedger(t)
	ctx := context.Background()
	k := key("u1", "gm")

	var last *streaks.TriggerResult
	for i := 0; i < 10; i++ {
		res, err := ledger.Trigger(ctx, k, streaks.TriggerRules{}, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		if i < 9 {
			require.Zero(t, res.Milestone)
		}
		last = res
	}
	require.Equal(t, 10, last.Milestone)
}

func TestTriggerConcurrent(t *testing.T) {
	ledger := newLedger(t)
	ctx := context.Background()
	k := key("u1", "gm")

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Trigger(ctx, k, streaks.TriggerRules{}, base)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	st, err := ledger.Get(ctx, k)
	require.NoError(t, err)
	require.Equal(t, n, st.Count)
	require.Equal(t, n, st.BestStreak)
}

func TestCheckDecay(t *testing.T) {
	ledger := newLedger(t)
	ctx := context.Background()
	k := key("u1", "gm")
	rules := streaks.TriggerRules{StreakStreakEnabled: true}

	_, err := ledger.Trigger(ctx, k, rules, base)
	require.NoError(t, err)
	_, err = ledger.Trigger(ctx, k, rules, base.AddDate(0, 0, 1))
	require.NoError(t, err)

	st, decayed, err := ledger.CheckDecay(ctx, k, base.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.False(t, decayed, "yesterday still counts")
	require.Equal(t, 2, st.StreakStreak)

	st, decayed, err = ledger.CheckDecay(ctx, k, base.AddDate(0, 0, 3))
	require.NoError(t, err)
	require.True(t, decayed)
	require.Equal(t, 0, st.StreakStreak)
	require.Equal(t, 2, st.Count)

	_, decayed, err = ledger.CheckDecay(ctx, k, base.AddDate(0, 0, 4))
	require.NoError(t, err)
	require.False(t, decayed)
}

func enabledGamble() economy.GambleSettings {
	s := economy.DefaultGambleSettings()
	s.Enabled = true
	return s
}

func TestGamble(t *testing.T) {
	ledger := newLedger(t)
	ctx := context.Background()
	k := key("u1", "gm")
	seed(t, ledger, k, 20)

	res, err := ledger.Gamble(ctx, k, enabledGamble(), 10, fixedRoll(0.1))
	require.NoError(t, err)
	require.True(t, res.Outcome.Won)
	require.Equal(t, 30, res.Streak.Count)
	require.Equal(t, 30, res.Streak.BestStreak)

	res, err = ledger.Gamble(ctx, k, enabledGamble(), 15, fixedRoll(0.9))
	require.NoError(t, err)
	require.False(t, res.Outcome.Won)
	require.Equal(t, 15, res.Streak.Count)
	require.Equal(t, 30, res.Streak.BestStreak)
	requireBestInvariant(t, res.Streak)
}

func TestGambleRejected(t *testing.T) {
	ledger := newLedger(t)
	ctx := context.Background()
	k := key("u1", "gm")
	seed(t, ledger, k, 20)

	tests := []struct {
		name     string
		key      models.StreakKey
		settings economy.GambleSettings
		amount   int
		want     error
	}{
		{"disabled", k, economy.DefaultGambleSettings(), 5, economy.ErrFeatureDisabled},
		{"over limit", k, enabledGamble(), 11, economy.ErrInvalidWager},
		{"zero", k, enabledGamble(), 0, economy.ErrInvalidWager},
		{"no streak", key("u2", "gm"), enabledGamble(), 1, economy.ErrInsufficientStreak},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.Gamble(ctx, tt.key, tt.settings, tt.amount, fixedRoll(0))
			require.ErrorIs(t, err, tt.want)
		})
	}

	st, err := ledger.Get(ctx, k)
	require.NoError(t, err)
	require.Equal(t, 20, st.Count, "rejected wagers leave the row untouched")
}

func enabledRaid() economy.RaidSettings {
	s := economy.DefaultRaidSettings()
	s.Enabled = true
	return s
}

func TestRaidSuccess(t *testing.T) {
	ledger := newLedger(t)
	ctx := context.Background()
	seed(t, ledger, key("attacker", "gm"), 20)
	seed(t, ledger, key("defender", "gm"), 80)

	res, err := ledger.Raid(ctx, key("attacker", "gm"), "defender", enabledRaid(), fixedRoll(0.1), base)
	require.NoError(t, err)
	require.True(t, res.Outcome.Success)
	require.Equal(t, 17, res.Outcome.StealAmount)
	require.Equal(t, 37, res.Attacker.Count)
	require.Equal(t, 63, res.Defender.Count)
	require.Equal(t, 80, res.Defender.BestStreak)
	requireBestInvariant(t, res.Attacker)
	requireBestInvariant(t, res.Defender)

	att, err := ledger.Get(ctx, key("attacker", "gm"))
	require.NoError(t, err)
	require.True(t, att.LastRaidSuccess)
	require.True(t, att.LastRaidAt.Equal(base))

	_, err = ledger.Raid(ctx, key("attacker", "gm"), "defender", enabledRaid(), fixedRoll(0.1), base.Add(time.Hour))
	require.ErrorIs(t, err, economy.ErrRaidOnCooldown)
	var cd *economy.CooldownError
	require.True(t, errors.As(err, &cd))
	require.Equal(t, 3*time.Hour, cd.Remaining)

	_, err = ledger.Raid(ctx, key("attacker", "gm"), "defender", enabledRaid(), fixedRoll(0.1), base.Add(4*time.Hour))
	require.NoError(t, err)
}

func TestRaidFailure(t *testing.T) {
	ledger := newLedger(t)
	ctx := context.Background()
	seed(t, ledger, key("defender", "gm"), 80)
	seed(t, ledger, key("attacker", "gm"), 20)

	res, err := ledger.Raid(ctx, key("attacker", "gm"), "defender", enabledRaid(), fixedRoll(0.99), base)
	require.NoError(t, err)
	require.False(t, res.Outcome.Success)
	require.Equal(t, 3, res.Outcome.RiskAmount)
	require.Equal(t, 17, res.Attacker.Count)
	require.Equal(t, 83, res.Defender.Count)
	require.Equal(t, 83, res.Defender.BestStreak)

	_, err = ledger.Raid(ctx, key("attacker", "gm"), "defender", enabledRaid(), fixedRoll(0.99), base.Add(2*time.Hour))
	require.NoError(t, err, "failure cooldown is two hours")
}

func TestRaidCooldownCoversEveryWord(t *testing.T) {
	ledger := newLedger(t)
	ctx := context.Background()
	seed(t, ledger, key("attacker", "gm"), 20)
	seed(t, ledger, key("defender", "gm"), 80)
	seed(t, ledger, key("attacker", "coffee"), 20)
	seed(t, ledger, key("defender", "coffee"), 80)

	_, err := ledger.Raid(ctx, key("attacker", "gm"), "defender", enabledRaid(), fixedRoll(0.1), base)
	require.NoError(t, err)

	_, err = ledger.Raid(ctx, key("attacker", "coffee"), "defender", enabledRaid(), fixedRoll(0.1), base.Add(time.Hour))
	require.ErrorIs(t, err, economy.ErrRaidOnCooldown)
	var cd *economy.CooldownError
	require.True(t, errors.As(err, &cd))
	require.Equal(t, 3*time.Hour, cd.Remaining)

	def, err := ledger.Get(ctx, key("defender", "coffee"))
	require.NoError(t, err)
	require.Equal(t, 80, def.Count)

	_, err = ledger.Raid(ctx, key("attacker", "coffee"), "defender", enabledRaid(), fixedRoll(0.1), base.Add(4*time.Hour))
	require.NoError(t, err)
}

func TestRaidRejected(t *testing.T) {
	ledger := newLedger(t)
	ctx := context.Background()
	seed(t, ledger, key("attacker", "gm"), 2)
	seed(t, ledger, key("defender", "gm"), 80)

	tests := []struct {
		name     string
		defender string
		settings economy.RaidSettings
		want     error
	}{
		{"disabled", "defender", economy.DefaultRaidSettings(), economy.ErrFeatureDisabled},
		{"self", "attacker", enabledRaid(), economy.ErrSelfRaid},
		{"missing target", "nobody", enabledRaid(), economy.ErrNothingToRaid},
		{"entry barrier", "defender", enabledRaid(), economy.ErrEntryBarrierNotMet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.Raid(ctx, key("attacker", "gm"), tt.defender, tt.settings, fixedRoll(0), base)
			require.ErrorIs(t, err, tt.want)
		})
	}

	def, err := ledger.Get(ctx, key("defender", "gm"))
	require.NoError(t, err)
	require.Equal(t, 80, def.Count)
}

func TestLeaderboard(t *testing.T) {
	ledger := newLedger(t)
	ctx := context.Background()
	seed(t, ledger, key("a", "gm"), 5)
	seed(t, ledger, key("b", "gm"), 12)
	seed(t, ledger, key("c", "gm"), 5)
	seed(t, ledger, key("d", "gn"), 50)
	_, err := ledger.ApplyDelta(ctx, key("e", "gm"), 0, streaks.DeltaOptions{Create: true})
	require.NoError(t, err)

	rows, err := ledger.Leaderboard(ctx, "guild", "GM", 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"b", "a", "c"}, []string{rows[0].UserID, rows[1].UserID, rows[2].UserID})

	rows, err = ledger.Leaderboard(ctx, "guild", "gm", 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestUserStreaks(t *testing.T) {
	ledger := newLedger(t)
	ctx := context.Background()
	seed(t, ledger, key("a", "gm"), 5)
	seed(t, ledger, key("a", "gn"), 9)
	seed(t, ledger, key("b", "gm"), 1)

	rows, err := ledger.UserStreaks(ctx, "guild", "a")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "gn", rows[0].TriggerWord)
}
