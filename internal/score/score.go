// Package score computes the Zentra financial health score.
package score

import "math"

// Inputs are the raw figures supplied by a user.
type Inputs struct {
	Income   float64
	Expenses float64
	Savings  float64
	Debt     float64
}

// Result holds the clamped inputs alongside the score so callers persist exactly
// what was computed.
type Result struct {
	Inputs
	Score float64
}

// Compute is a pure function of its inputs. Negative inputs count as zero. The
// score is 50, plus a savings bonus of up to 30, minus a debt penalty of up to 40
// and an expense penalty of up to 20, clamped to [0,100] with one decimal.
func Compute(in Inputs) Result {
	c := Inputs{
		Income:   math.Max(0, in.Income),
		Expenses: math.Max(0, in.Expenses),
		Savings:  math.Max(0, in.Savings),
		Debt:     math.Max(0, in.Debt),
	}

	var savingsRate, expenseRate float64
	if c.Income > 0 {
		savingsRate = c.Savings / c.Income
		expenseRate = c.Expenses / c.Income
	}

	s := 50 +
		math.Min(30, savingsRate*60) -
		math.Min(40, (c.Debt/math.Max(c.Income, 1))*40) -
		math.Min(20, expenseRate*20)
	s = math.Max(0, math.Min(100, s))
	s = math.Round(s*10) / 10

	return Result{Inputs: c, Score: s}
}
