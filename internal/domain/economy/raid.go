package economy

import "time"

const (
	// MinRaidAbsolute lets an attacker raid anyone once their streak reaches it.
	MinRaidAbsolute = 10
	// MinRaidRatio is the share of the target's streak that also clears the barrier.
	MinRaidRatio = 0.25

	maxUnderdogStealBonus = 0.10
	minUnderdogRiskFactor = 0.60
)

// RaidSettings holds the per-guild raid tunables.
type RaidSettings struct {
	Enabled         bool
	BaseChance      float64
	InitiatorBonus  float64
	StealPercentage float64
	RiskPercentage  float64
	MinSteal        int
	MaxSteal        int
	MinRisk         int
	MaxRisk         int
	SuccessCooldown time.Duration
	FailureCooldown time.Duration
}

func DefaultRaidSettings() RaidSettings {
	return RaidSettings{
		Enabled:         false,
		BaseChance:      0.50,
		InitiatorBonus:  0.05,
		StealPercentage: 0.20,
		RiskPercentage:  0.15,
		MinSteal:        5,
		MaxSteal:        30,
		MinRisk:         3,
		MaxRisk:         20,
		SuccessCooldown: 4 * time.Hour,
		FailureCooldown: 2 * time.Hour,
	}
}

// RaidInput is the ledger state a raid is evaluated against.
type RaidInput struct {
	AttackerID    string
	DefenderID    string
	AttackerCount int
	DefenderCount int

	// LastRaidAt is zero when the attacker has never raided.
	LastRaidAt        time.Time
	LastRaidSucceeded bool
	Now               time.Time
}

// RaidOutcome is the resolved raid. Deltas are signed and already account for
// the zero floor on both counts.
type RaidOutcome struct {
	Success       bool
	Chance        float64
	StealAmount   int
	RiskAmount    int
	AttackerDelta int
	DefenderDelta int
	CooldownUntil time.Time
}

// ProgressiveBonus rewards going after bigger targets.
func ProgressiveBonus(targetCount int) float64 {
	switch {
	case targetCount >= 100:
		return 0.15
	case targetCount >= 75:
		return 0.12
	case targetCount >= 50:
		return 0.09
	case targetCount >= 25:
		return 0.06
	case targetCount >= 10:
		return 0.03
	default:
		return 0
	}
}

// SuccessChance is base + initiator + progressive, clamped to [0, 1].
func SuccessChance(targetCount int, s RaidSettings) float64 {
	return clampFloat(s.BaseChance+s.InitiatorBonus+ProgressiveBonus(targetCount), 0, 1)
}

// UnderdogStealBonus is 0.10*(1-ratio) for an attacker below the target:
// 0.05 at half the target's streak, approaching 0.10 as the gap widens.
func UnderdogStealBonus(attackerCount, targetCount int) float64 {
	if targetCount <= 0 || attackerCount >= targetCount {
		return 0
	}
	ratio := float64(max(attackerCount, 0)) / float64(targetCount)
	return clampFloat(maxUnderdogStealBonus*(1-ratio), 0, maxUnderdogStealBonus)
}

// UnderdogRiskMultiplier scales risk down linearly to 0.60 as the gap widens.
func UnderdogRiskMultiplier(attackerCount, targetCount int) float64 {
	if targetCount <= 0 || attackerCount >= targetCount {
		return 1
	}
	ratio := float64(max(attackerCount, 0)) / float64(targetCount)
	return clampFloat(minUnderdogRiskFactor+(1-minUnderdogRiskFactor)*ratio, minUnderdogRiskFactor, 1)
}

func StealAmount(attackerCount, defenderCount int, s RaidSettings) int {
	raw := float64(defenderCount) * s.StealPercentage * (1 + UnderdogStealBonus(attackerCount, defenderCount))
	return clampInt(roundHalfUp(raw), s.MinSteal, s.MaxSteal)
}

func RiskAmount(attackerCount, defenderCount int, s RaidSettings) int {
	raw := float64(attackerCount) * s.RiskPercentage * UnderdogRiskMultiplier(attackerCount, defenderCount)
	return clampInt(roundHalfUp(raw), s.MinRisk, s.MaxRisk)
}

// MeetsEntryBarrier reports whether the attacker holds at least
// MinRaidAbsolute or a quarter of the target's streak.
func MeetsEntryBarrier(attackerCount, targetCount int) bool {
	if attackerCount >= MinRaidAbsolute {
		return true
	}
	return float64(attackerCount) >= float64(targetCount)*MinRaidRatio
}

// CooldownRemaining returns how long the attacker must still wait.
func CooldownRemaining(in RaidInput, s RaidSettings) time.Duration {
	if in.LastRaidAt.IsZero() {
		return 0
	}
	cd := s.FailureCooldown
	if in.LastRaidSucceeded {
		cd = s.SuccessCooldown
	}
	if wait := in.LastRaidAt.Add(cd).Sub(in.Now); wait > 0 {
		return wait
	}
	return 0
}

// CheckRaid runs every eligibility rule in order and returns the first failure.
func CheckRaid(in RaidInput, s RaidSettings) error {
	if !s.Enabled {
		return ErrFeatureDisabled
	}
	if in.AttackerID == in.DefenderID {
		return ErrSelfRaid
	}
	if in.DefenderCount <= 0 {
		return ErrNothingToRaid
	}
	if !MeetsEntryBarrier(in.AttackerCount, in.DefenderCount) {
		return &BarrierError{AttackerCount: in.AttackerCount, TargetCount: in.DefenderCount}
	}
	if wait := CooldownRemaining(in, s); wait > 0 {
		return &CooldownError{Remaining: wait, Until: in.Now.Add(wait)}
	}
	return nil
}

// Raid checks eligibility, pre-computes both amounts and resolves one trial.
func Raid(in RaidInput, s RaidSettings, r Roller) (RaidOutcome, error) {
	if err := CheckRaid(in, s); err != nil {
		return RaidOutcome{}, err
	}

	out := RaidOutcome{
		Chance:      SuccessChance(in.DefenderCount, s),
		StealAmount: StealAmount(in.AttackerCount, in.DefenderCount, s),
		RiskAmount:  RiskAmount(in.AttackerCount, in.DefenderCount, s),
	}

	if trial(r, out.Chance) {
		out.Success = true
		out.AttackerDelta = out.StealAmount
		out.DefenderDelta = -min(out.StealAmount, in.DefenderCount)
		out.CooldownUntil = in.Now.Add(s.SuccessCooldown)
		return out, nil
	}

	out.AttackerDelta = -min(out.RiskAmount, max(in.AttackerCount, 0))
	out.DefenderDelta = out.RiskAmount
	out.CooldownUntil = in.Now.Add(s.FailureCooldown)
	return out, nil
}
