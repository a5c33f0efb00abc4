package economy

import (
	"math"
	"math/rand/v2"
)

// Roller is a uniform random source in [0, 1).
type Roller interface {
	Float64() float64
}

type defaultRoller struct{}

func (defaultRoller) Float64() float64 {
	return rand.Float64()
}

// DefaultRoller draws from the global math/rand/v2 source.
var DefaultRoller Roller = defaultRoller{}

// RollerFunc adapts a plain function to a Roller.
type RollerFunc func() float64

func (f RollerFunc) Float64() float64 {
	return f()
}

// trial is a single Bernoulli trial with success probability p.
func trial(r Roller, p float64) bool {
	if r == nil {
		r = DefaultRoller
	}
	return r.Float64() < p
}

// roundHalfUp rounds half away from zero. The epsilon absorbs float error in
// products like 62.5 that land a hair below the half.
func roundHalfUp(x float64) int {
	if x < 0 {
		return -roundHalfUp(-x)
	}
	return int(math.Floor(x + 0.5 + 1e-9))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
