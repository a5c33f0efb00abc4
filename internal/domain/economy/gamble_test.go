package economy

import (
	"errors"
	"testing"
)

func fixedRoll(v float64) Roller {
	return RollerFunc(func() float64 { return v })
}

func enabledGamble() GambleSettings {
	s := DefaultGambleSettings()
	s.Enabled = true
	return s
}

func Test_MaxWager(t *testing.T) {
	s := enabledGamble()
	tests := []struct {
		name  string
		count int
		pct   float64
		want  int
	}{
		{name: "even", count: 20, pct: 0.5, want: 10},
		{name: "floors", count: 21, pct: 0.5, want: 10},
		{name: "small pct", count: 99, pct: 0.1, want: 9},
		{name: "zero count", count: 0, pct: 0.5, want: 0},
		{name: "full", count: 37, pct: 1, want: 37},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.MaxPercentage = tt.pct
			if got := MaxWager(tt.count, s); got != tt.want {
				t.Errorf("MaxWager(%d) = %d, want %d", tt.count, got, tt.want)
			}
		})
	}
}

func Test_ValidateWager(t *testing.T) {
	tests := []struct {
		name    string
		count   int
		amount  int
		mutate  func(*GambleSettings)
		wantErr error
	}{
		{name: "disabled", count: 50, amount: 5, mutate: func(s *GambleSettings) { s.Enabled = false }, wantErr: ErrFeatureDisabled},
		{name: "below requirement", count: 9, amount: 1, wantErr: ErrInsufficientStreak},
		{name: "zero amount", count: 50, amount: 0, wantErr: ErrInvalidWager},
		{name: "negative amount", count: 50, amount: -3, wantErr: ErrInvalidWager},
		{name: "one over max", count: 51, amount: 26, wantErr: ErrInvalidWager},
		{name: "exactly max", count: 51, amount: 25},
		{name: "minimum", count: 10, amount: 1},
		{name: "requirement met exactly", count: 10, amount: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := enabledGamble()
			if tt.mutate != nil {
				tt.mutate(&s)
			}
			err := ValidateWager(tt.count, s, tt.amount)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateWager() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateWager() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func Test_ValidationErrorsShareParent(t *testing.T) {
	for _, err := range []error{ErrInvalidWager, ErrInsufficientStreak, ErrSelfRaid, ErrNothingToRaid, &WagerError{Amount: 3, Max: 2}} {
		if !errors.Is(err, ErrValidation) {
			t.Errorf("%v does not match ErrValidation", err)
		}
	}
	if errors.Is(ErrFeatureDisabled, ErrValidation) {
		t.Error("ErrFeatureDisabled must not be a validation error")
	}
}

func Test_Gamble(t *testing.T) {
	s := enabledGamble()

	tests := []struct {
		name      string
		roll      float64
		wantWon   bool
		wantDelta int
		wantCount int
	}{
		{name: "just under chance wins", roll: 0.4999, wantWon: true, wantDelta: 10, wantCount: 50},
		{name: "at chance loses", roll: 0.5, wantWon: false, wantDelta: -10, wantCount: 30},
		{name: "zero roll wins", roll: 0, wantWon: true, wantDelta: 10, wantCount: 50},
		{name: "top roll loses", roll: 0.9999, wantWon: false, wantDelta: -10, wantCount: 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Gamble(40, s, 10, fixedRoll(tt.roll))
			if err != nil {
				t.Fatalf("Gamble() error = %v", err)
			}
			if out.Won != tt.wantWon || out.Delta != tt.wantDelta || out.NewCount != tt.wantCount {
				t.Errorf("Gamble() = %+v, want won=%v delta=%d count=%d", out, tt.wantWon, tt.wantDelta, tt.wantCount)
			}
			if out.Previous != 40 || out.Amount != 10 {
				t.Errorf("Gamble() lost inputs: %+v", out)
			}
		})
	}
}

func Test_GambleCertainties(t *testing.T) {
	s := enabledGamble()

	s.SuccessChance = 1
	if out, _ := Gamble(40, s, 10, fixedRoll(0.99999)); !out.Won {
		t.Error("chance 1 should always win")
	}

	s.SuccessChance = 0
	if out, _ := Gamble(40, s, 10, fixedRoll(0)); out.Won {
		t.Error("chance 0 should never win")
	}
}

func Test_GambleRejectsBeforeRolling(t *testing.T) {
	rolled := false
	r := RollerFunc(func() float64 {
		rolled = true
		return 0
	})
	if _, err := Gamble(40, enabledGamble(), 21, r); !errors.Is(err, ErrInvalidWager) {
		t.Fatalf("Gamble() error = %v, want ErrInvalidWager", err)
	}
	if rolled {
		t.Error("rejected wager must not consume a roll")
	}
}
