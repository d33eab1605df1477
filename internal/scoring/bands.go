// Package scoring implements the deterministic health-risk score. It is
// dependency-free apart from the reference data types and does no I/O, so it
// can be tested exhaustively without a database or network.
package scoring

// ─── THRESHOLD LADDERS ────────────────────────────────────────────────────────
//
// Every banded term is an ordered list of (predicate, value) rungs evaluated
// top to bottom; the first rung whose predicate holds wins. Keeping the rungs
// as data makes each boundary visible and testable on its own.

type band[T any] struct {
	match func(v float64) bool
	value T
}

type ladder[T any] []band[T]

// eval returns the value of the first matching rung, or the zero value when
// no rung matches.
func (l ladder[T]) eval(v float64) T {
	for _, b := range l {
		if b.match(v) {
			return b.value
		}
	}
	var zero T
	return zero
}

func above(n float64) func(float64) bool { return func(v float64) bool { return v > n } }

func atLeast(n float64) func(float64) bool { return func(v float64) bool { return v >= n } }

func always(float64) bool { return true }

// ageLadder: no rung for age <= 30, which contributes nothing.
var ageLadder = ladder[int]{
	{above(60), 20},
	{above(50), 15},
	{above(40), 10},
	{above(30), 5},
}

var aqiLadder = ladder[int]{
	{above(200), 25},
	{above(150), 20},
	{above(100), 15},
	{above(50), 10},
	{always, 5},
}

var crimeStressLadder = ladder[int]{
	{above(1000), 20},
	{above(500), 15},
	{above(300), 10},
	{always, 5},
}

var levelLadder = ladder[Level]{
	{atLeast(80), LevelCritical},
	{atLeast(60), LevelHigh},
	{atLeast(40), LevelMedium},
	{always, LevelLow},
}

// ─── FLAT WEIGHTS ─────────────────────────────────────────────────────────────

const (
	baseRisk        = 10
	conditionWeight = 15
	addictionWeight = 10
	surgeryWeight   = 5
	nightShiftRisk  = 5
	rotatingShift   = 3

	// occupationScale maps an occupation riskScore (0-100) onto 0-20.
	occupationScale = 5

	// crimeStressCap bounds the crime-stress tier's contribution to the total.
	// The factor list reports the uncapped tier.
	crimeStressCap = 10

	maxScore = 100
)
