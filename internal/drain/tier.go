package drain

// Tier is the severity bucket of a Drain Score.
type Tier string

// Tiers, from least to most severe.
const (
	Healthy  Tier = "healthy"
	Warning  Tier = "warning"
	Critical Tier = "critical"
)

// Tier boundaries. A score strictly above CriticalAbove is critical, a score of
// at least WarningFrom is warning. 70 is warning and 40 is warning.
const (
	CriticalAbove = 70
	WarningFrom   = 40
)

var tierLabels = map[Tier]string{
	Critical: "🔴 Critical Drain",
	Warning:  "🟡 Warning",
	Healthy:  "🟢 Healthy",
}

// Classify maps a score to its tier.
func Classify(score int) Tier {
	switch {
	case score > CriticalAbove:
		return Critical
	case score >= WarningFrom:
		return Warning
	default:
		return Healthy
	}
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	_, ok := tierLabels[t]
	return ok
}

// Label returns the display label with its badge.
func (t Tier) Label() string {
	if l, ok := tierLabels[t]; ok {
		return l
	}
	return string(t)
}

// Emoji returns just the tier badge.
func (t Tier) Emoji() string {
	switch t {
	case Critical:
		return "🔴"
	case Warning:
		return "🟡"
	case Healthy:
		return "🟢"
	default:
		return "⚪"
	}
}
