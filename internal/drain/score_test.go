package drain

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestClamp(t *testing.T) {
	t.Parallel()

	require.InDelta(t, 0.5, Clamp(0.5, 0, 1), 0)
	require.InDelta(t, 0.0, Clamp(-3, 0, 1), 0)
	require.InDelta(t, 1.0, Clamp(7, 0, 1), 0)
	require.InDelta(t, 0.0, Clamp(math.NaN(), 0, 1), 0)
	require.InDelta(t, 1.0, Clamp(math.Inf(1), 0, 1), 0)
	require.InDelta(t, 0.0, Clamp(math.Inf(-1), 0, 1), 0)
}

func TestWeights(t *testing.T) {
	t.Parallel()

	t.Run("cost weight saturates at the cap", func(t *testing.T) {
		t.Parallel()
		require.InDelta(t, 1.0, CostWeight(dec("50"), 50), 0)
		require.InDelta(t, 1.0, CostWeight(dec("500"), 50), 0)
		require.InDelta(t, 0.5, CostWeight(dec("25"), 50), 1e-12)
	})

	t.Run("cost weight floors the cap at one", func(t *testing.T) {
		t.Parallel()
		require.InDelta(t, 0.5, CostWeight(dec("0.5"), 0), 1e-12)
		require.InDelta(t, 1.0, CostWeight(dec("3"), -10), 0)
	})

	t.Run("negative cost clamps to zero", func(t *testing.T) {
		t.Parallel()
		require.InDelta(t, 0.0, CostWeight(dec("-5"), 50), 0)
	})

	t.Run("recency boundaries", func(t *testing.T) {
		t.Parallel()
		require.InDelta(t, 0.0, RecencyWeight(0), 0)
		require.InDelta(t, 0.5, RecencyWeight(15), 1e-12)
		require.InDelta(t, 1.0, RecencyWeight(30), 0)
		require.InDelta(t, 1.0, RecencyWeight(45), 0)
		require.InDelta(t, 0.0, RecencyWeight(-4), 0)
	})

	t.Run("usage boundaries", func(t *testing.T) {
		t.Parallel()
		require.InDelta(t, 1.0, UsageWeight(0), 0)
		require.InDelta(t, 0.5, UsageWeight(10), 1e-12)
		require.InDelta(t, 0.0, UsageWeight(20), 0)
		require.InDelta(t, 0.0, UsageWeight(25), 0)
		require.InDelta(t, 1.0, UsageWeight(-3), 0)
	})

	t.Run("student mode scales the cap", func(t *testing.T) {
		t.Parallel()
		require.InDelta(t, 30.0, EffectiveCap(dec("50"), true), 1e-12)
		require.InDelta(t, 50.0, EffectiveCap(dec("50"), false), 0)
	})
}

func TestCalculate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   Input
		want Result
	}{
		{
			name: "expensive annual plan never used",
			in:   Input{MonthlyCost: ToMonthly(dec("999"), Annual), Frequency: 0, DaysSinceUse: 30, BudgetCap: dec("50")},
			want: Result{Score: 100, Tier: Critical},
		},
		{
			name: "free and heavily used",
			in:   Input{MonthlyCost: decimal.Zero, Frequency: 20, DaysSinceUse: 0, BudgetCap: dec("50")},
			want: Result{Score: 0, Tier: Healthy},
		},
		{
			name: "half of everything",
			in:   Input{MonthlyCost: dec("25"), Frequency: 10, DaysSinceUse: 15, BudgetCap: dec("50")},
			want: Result{Score: 50, Tier: Warning},
		},
		{
			name: "student mode pushes cost weight up",
			in:   Input{MonthlyCost: dec("30"), Frequency: 20, DaysSinceUse: 0, BudgetCap: dec("50"), StudentMode: true},
			want: Result{Score: 35, Tier: Healthy},
		},
		{
			name: "zero cap does not divide by zero",
			in:   Input{MonthlyCost: dec("9.99"), Frequency: 0, DaysSinceUse: 30, BudgetCap: decimal.Zero},
			want: Result{Score: 100, Tier: Critical},
		},
		{
			name: "negative inputs are clamped",
			in:   Input{MonthlyCost: dec("-10"), Frequency: -5, DaysSinceUse: -3, BudgetCap: dec("50")},
			want: Result{Score: 25, Tier: Healthy},
		},
		{
			name: "NaN days counts as zero",
			in:   Input{MonthlyCost: dec("0"), Frequency: 20, DaysSinceUse: math.NaN(), BudgetCap: dec("50")},
			want: Result{Score: 0, Tier: Healthy},
		},
		{
			name: "rounds half up",
			// 0.1*35 = 3.5 rounds to 4.
			in:   Input{MonthlyCost: dec("5"), Frequency: 20, DaysSinceUse: 0, BudgetCap: dec("50")},
			want: Result{Score: 4, Tier: Healthy},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, Calculate(tt.in))
		})
	}
}

func TestCalculateStudentModeNeverLowersScore(t *testing.T) {
	t.Parallel()

	for _, cost := range []string{"0", "5", "17.5", "29.99", "30", "49", "80"} {
		for _, freq := range []int{0, 5, 19} {
			in := Input{MonthlyCost: dec(cost), Frequency: freq, DaysSinceUse: 10, BudgetCap: dec("50")}
			off := Calculate(in).Score
			in.StudentMode = true
			require.GreaterOrEqual(t, Calculate(in).Score, off, "cost=%s freq=%d", cost, freq)
		}
	}
}
