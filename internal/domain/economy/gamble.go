package economy

import "math"

// GambleSettings holds the per-guild gamble tunables.
type GambleSettings struct {
	Enabled              bool
	SuccessChance        float64 // probability of doubling the wager
	MaxPercentage        float64 // share of the current streak that may be wagered
	MinStreakRequirement int     // streak needed before gambling at all
}

func DefaultGambleSettings() GambleSettings {
	return GambleSettings{
		Enabled:              false,
		SuccessChance:        0.50,
		MaxPercentage:        0.50,
		MinStreakRequirement: 10,
	}
}

// GambleOutcome is the result of a resolved wager. Delta is what the ledger
// applies to the gambler's count.
type GambleOutcome struct {
	Won      bool
	Amount   int
	Delta    int
	Chance   float64
	Previous int
	NewCount int
}

// MaxWager is floor(count * MaxPercentage).
func MaxWager(count int, s GambleSettings) int {
	if count <= 0 || s.MaxPercentage <= 0 {
		return 0
	}
	return int(math.Floor(float64(count)*s.MaxPercentage + 1e-9))
}

// ValidateWager checks every gamble precondition without rolling.
func ValidateWager(count int, s GambleSettings, amount int) error {
	if !s.Enabled {
		return ErrFeatureDisabled
	}
	if count < s.MinStreakRequirement {
		return ErrInsufficientStreak
	}
	limit := MaxWager(count, s)
	if amount < 1 || amount > limit {
		return &WagerError{Amount: amount, Max: limit}
	}
	return nil
}

// Gamble resolves a wager of amount against the current count.
func Gamble(count int, s GambleSettings, amount int, r Roller) (GambleOutcome, error) {
	if err := ValidateWager(count, s, amount); err != nil {
		return GambleOutcome{}, err
	}

	chance := clampFloat(s.SuccessChance, 0, 1)
	out := GambleOutcome{
		Amount:   amount,
		Chance:   chance,
		Previous: count,
	}
	if trial(r, chance) {
		out.Won = true
		out.Delta = amount
	} else {
		out.Delta = -amount
	}
	out.NewCount = max(0, count+out.Delta)
	return out, nil
}
