// Package alerts detects clinically significant responses: items whose
// resolved score meets their alert condition, and totals crossing the
// scale's declared cutoff.
package alerts

import (
	"fmt"

	"github.com/dotcommander/clinscale/internal/scale"
	"github.com/dotcommander/clinscale/internal/scoring"
)

// Scope distinguishes item alerts from the scale-level total alert.
type Scope string

const (
	ScopeItem  Scope = "item"
	ScopeScale Scope = "scale"
)

// Alert is one triggered alert. For scale-scope alerts ItemID is empty and
// Score is the total.
type Alert struct {
	Scope      Scope   `json:"scope"`
	ItemID     string  `json:"itemId,omitempty"`
	ItemNumber int     `json:"itemNumber,omitempty"`
	ItemText   string  `json:"itemText,omitempty"`
	Condition  string  `json:"condition"`
	Value      string  `json:"value,omitempty"`
	Score      float64 `json:"score"`
}

// DetectAlerts evaluates every alert-triggering item against its resolved
// (post-reverse) score, then the scale-level condition against total when
// total is non-nil. A template with an unparseable condition is a
// configuration error and is returned as such.
func DetectAlerts(t *scale.Template, responses []scale.Response, total *float64) ([]Alert, error) {
	if err := t.ConditionErr(); err != nil {
		return nil, fmt.Errorf("alert configuration: %w", err)
	}

	items, _ := scoring.Resolve(t, responses)
	alerts := []Alert{}
	for _, is := range items {
		item, ok := t.Item(is.ItemID)
		if !ok || !item.AlertTrigger {
			continue
		}
		cond, ok := t.Condition(item)
		if !ok || !cond.Matches(is.Effective) {
			continue
		}
		alerts = append(alerts, Alert{
			Scope:      ScopeItem,
			ItemID:     is.ItemID,
			ItemNumber: is.ItemNumber,
			ItemText:   item.Text,
			Condition:  cond.Raw,
			Value:      is.Value,
			Score:      is.Effective,
		})
	}

	if cond, ok := t.TotalCondition(); ok && total != nil && cond.Matches(*total) {
		alerts = append(alerts, Alert{
			Scope:     ScopeScale,
			Condition: cond.Raw,
			Score:     *total,
		})
	}
	return alerts, nil
}
