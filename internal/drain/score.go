package drain

import (
	"math"

	"github.com/shopspring/decimal"
)

// Score weights. They sum to 100 so a fully saturated subscription scores 100.
const (
	CostWeightPoints    = 35
	RecencyWeightPoints = 40
	UsageWeightPoints   = 25
)

const (
	// StudentCapFactor scales the budget cap when student mode is on.
	StudentCapFactor = 0.6
	// RecencySaturationDays is the idle time at which the recency weight maxes out.
	RecencySaturationDays = 30
	// UsageSaturationCount is the use count at which the usage weight reaches zero.
	UsageSaturationCount = 20
	// MinBudgetCap floors the cap denominator.
	MinBudgetCap = 1
)

// Input is a single score request. Settings travel with the request so that
// callers never depend on ambient user state.
type Input struct {
	MonthlyCost  decimal.Decimal
	Frequency    int
	DaysSinceUse float64
	BudgetCap    decimal.Decimal
	StudentMode  bool
}

// Weights are the three normalized components of a score, each in [0, 1].
type Weights struct {
	Cost    float64
	Recency float64
	Usage   float64
}

// Result is a computed score and its tier.
type Result struct {
	Score int  `json:"score"`
	Tier  Tier `json:"tier"`
}

// EffectiveCap returns the budget cap after the student discount.
func EffectiveCap(budgetCap decimal.Decimal, studentMode bool) float64 {
	c := budgetCap.InexactFloat64()
	if studentMode {
		c *= StudentCapFactor
	}
	return c
}

// CostWeight is the monthly cost relative to the effective cap.
func CostWeight(monthlyCost decimal.Decimal, effectiveCap float64) float64 {
	return Clamp(monthlyCost.InexactFloat64()/math.Max(effectiveCap, MinBudgetCap), 0, 1)
}

// RecencyWeight grows linearly with idle days and saturates at 30.
func RecencyWeight(daysSinceUse float64) float64 {
	return Clamp(daysSinceUse/RecencySaturationDays, 0, 1)
}

// UsageWeight falls linearly with use count and reaches zero at 20 uses.
func UsageWeight(frequency int) float64 {
	return Clamp(1-float64(frequency)/UsageSaturationCount, 0, 1)
}

// ComputeWeights evaluates the three components for in.
func ComputeWeights(in Input) Weights {
	return Weights{
		Cost:    CostWeight(in.MonthlyCost, EffectiveCap(in.BudgetCap, in.StudentMode)),
		Recency: RecencyWeight(in.DaysSinceUse),
		Usage:   UsageWeight(in.Frequency),
	}
}

// ScoreOf combines weights into a score in [0, 100].
func ScoreOf(w Weights) int {
	// Explicit conversions stop the compiler fusing multiply-add, which would
	// change the last bit on some architectures.
	sum := float64(w.Cost*CostWeightPoints) +
		float64(w.Recency*RecencyWeightPoints) +
		float64(w.Usage*UsageWeightPoints)
	return int(math.Round(sum))
}

// Calculate computes the Drain Score for in. It never fails; out-of-range
// inputs are clamped.
func Calculate(in Input) Result {
	score := ScoreOf(ComputeWeights(in))
	return Result{Score: score, Tier: Classify(score)}
}
