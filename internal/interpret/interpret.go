// Package interpret maps scores onto a template's interpretation bands.
package interpret

import (
	"math"
	"sort"

	"github.com/dotcommander/clinscale/internal/scale"
)

// Undetermined is the label reported when no band contains the score.
const Undetermined = "undetermined"

// Interpretation is the band a total score falls in. When Determined is
// false, Label is Undetermined and NearestRuleID names the closest band.
type Interpretation struct {
	Score         float64 `json:"score"`
	Determined    bool    `json:"determined"`
	Label         string  `json:"label"`
	Severity      string  `json:"severity,omitempty"`
	RuleID        string  `json:"ruleId,omitempty"`
	Description   string  `json:"description,omitempty"`
	NearestRuleID string  `json:"nearestRuleId,omitempty"`
}

// InterpretScore finds the rule with minScore <= score <= maxScore. Rules
// come pre-sorted from the compiled template and are non-overlapping once
// validated, so a binary search on minScore suffices. Scores outside every
// band return Undetermined; this never guesses a band.
func InterpretScore(t *scale.Template, score float64) Interpretation {
	rules := t.Rules()
	out := Interpretation{Score: score, Label: Undetermined}
	if len(rules) == 0 || math.IsNaN(score) {
		return out
	}

	// Last rule whose minScore <= score.
	i := sort.Search(len(rules), func(i int) bool { return rules[i].MinScore > score }) - 1
	if i >= 0 && score <= rules[i].MaxScore {
		r := rules[i]
		out.Determined = true
		out.Label = r.Label
		out.Severity = r.Severity
		out.RuleID = r.ID
		out.Description = r.Description
		return out
	}

	out.NearestRuleID = nearest(rules, score).ID
	return out
}

// nearest picks the rule whose nearer bound is closest to score. Ties go to
// the lower band.
func nearest(rules []scale.InterpretationRule, score float64) scale.InterpretationRule {
	best := rules[0]
	bestDist := distance(best, score)
	for _, r := range rules[1:] {
		if d := distance(r, score); d < bestDist {
			best, bestDist = r, d
		}
	}
	return best
}

func distance(r scale.InterpretationRule, score float64) float64 {
	return math.Min(math.Abs(score-r.MinScore), math.Abs(score-r.MaxScore))
}

// SubscaleStatus reports where a subscale score sits relative to the
// subscale's declared range.
type SubscaleStatus struct {
	SubscaleID string            `json:"subscaleId"`
	Score      float64           `json:"score"`
	Range      *scale.ScoreRange `json:"range,omitempty"`
	InRange    bool              `json:"inRange"`
}

// InterpretSubscales checks every subscale score against its declared range.
// Subscales without a declared range are reported in range. Output follows
// the template's subscale order.
func InterpretSubscales(t *scale.Template, scores map[string]float64) []SubscaleStatus {
	out := make([]SubscaleStatus, 0, len(t.Scale.Subscales))
	for _, sub := range t.Scale.Subscales {
		score, ok := scores[sub.ID]
		if !ok {
			continue
		}
		st := SubscaleStatus{SubscaleID: sub.ID, Score: score, InRange: true}
		if r, ok := t.Scale.SubscaleRange(sub); ok {
			st.Range = &r
			st.InRange = score >= r.Min && score <= r.Max
		}
		out = append(out, st)
	}
	return out
}
