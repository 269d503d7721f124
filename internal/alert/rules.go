package alert

import (
	"fmt"
	"time"
)

// Severity ranks an alert
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// AlertType names the metric an alert fires on
type AlertType string

const (
	TypeZScore      AlertType = "zscore"
	TypeSpread      AlertType = "spread"
	TypeCorrelation AlertType = "correlation"
	TypeCustom      AlertType = "custom"
)

// Alert is a fired rule instance
type Alert struct {
	ID        string    `json:"id"`
	Rule      string    `json:"rule"`
	Type      AlertType `json:"type"`
	Severity  Severity  `json:"severity"`
	Symbol    string    `json:"symbol,omitempty"`
	Value     float64   `json:"value"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Op is a comparison operator for threshold predicates
type Op string

const (
	OpGT Op = ">"
	OpLT Op = "<"
	OpGE Op = ">="
	OpLE Op = "<="
)

// Predicate decides whether a value triggers. Exactly one of the three
// variants is set; Matches dispatches on whichever it finds.
type Predicate struct {
	Threshold *Threshold
	Range     *Range
	Custom    *Custom
}

// Threshold compares the value against a single bound
type Threshold struct {
	Op    Op
	Value float64
}

// Range triggers when the value leaves [Lo, Hi]
type Range struct {
	Lo, Hi float64
}

// Custom wraps an arbitrary condition
type Custom struct {
	Fn func(value float64) bool
}

// Matches evaluates the predicate against a value
func (p Predicate) Matches(value float64) bool {
	switch {
	case p.Threshold != nil:
		switch p.Threshold.Op {
		case OpGT:
			return value > p.Threshold.Value
		case OpLT:
			return value < p.Threshold.Value
		case OpGE:
			return value >= p.Threshold.Value
		case OpLE:
			return value <= p.Threshold.Value
		}
		return false
	case p.Range != nil:
		return value < p.Range.Lo || value > p.Range.Hi
	case p.Custom != nil && p.Custom.Fn != nil:
		return p.Custom.Fn(value)
	}
	return false
}

// Rule binds a predicate to a severity, a cooldown and a message template.
// The template is a fmt format string receiving the triggering value.
type Rule struct {
	Name     string
	Type     AlertType
	Severity Severity
	Pred     Predicate
	Cooldown time.Duration
	Message  string
}

// Render formats the rule message for a triggering value
func (r Rule) Render(value float64) string {
	return fmt.Sprintf(r.Message, value)
}

// DefaultZScoreRules returns the standard divergence rules: warnings at the
// configured thresholds, criticals one sigma beyond them with a longer
// cooldown
func DefaultZScoreRules(upper, lower float64, cooldown time.Duration) []Rule {
	return []Rule{
		{
			Name:     "zscore_upper",
			Type:     TypeZScore,
			Severity: SeverityWarning,
			Pred:     Predicate{Threshold: &Threshold{Op: OpGT, Value: upper}},
			Cooldown: cooldown,
			Message:  "Z-score exceeded upper threshold: %.2f",
		},
		{
			Name:     "zscore_lower",
			Type:     TypeZScore,
			Severity: SeverityWarning,
			Pred:     Predicate{Threshold: &Threshold{Op: OpLT, Value: lower}},
			Cooldown: cooldown,
			Message:  "Z-score exceeded lower threshold: %.2f",
		},
		{
			Name:     "zscore_extreme_upper",
			Type:     TypeZScore,
			Severity: SeverityCritical,
			Pred:     Predicate{Threshold: &Threshold{Op: OpGT, Value: upper + 1}},
			Cooldown: 2 * cooldown,
			Message:  "Z-score at extreme level: %.2f",
		},
		{
			Name:     "zscore_extreme_lower",
			Type:     TypeZScore,
			Severity: SeverityCritical,
			Pred:     Predicate{Threshold: &Threshold{Op: OpLT, Value: lower - 1}},
			Cooldown: 2 * cooldown,
			Message:  "Z-score at extreme level: %.2f",
		},
	}
}
