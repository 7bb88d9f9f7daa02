// Package scoring turns a response set into total and subscale scores.
package scoring

import (
	"fmt"

	"github.com/dotcommander/clinscale/internal/scale"
)

// Calculator computes scores. It is stateless apart from the hook registry,
// which it only reads.
type Calculator struct {
	hooks *HookRegistry
}

// NewCalculator creates a Calculator. hooks may be nil when no template uses
// the custom method.
func NewCalculator(hooks *HookRegistry) *Calculator {
	return &Calculator{hooks: hooks}
}

// CalculateScores resolves every response and aggregates per the template's
// scoring method. Unscorable responses are excluded and listed, never fatal.
// The only error is a custom method whose hook is missing or fails.
func (c *Calculator) CalculateScores(t *scale.Template, responses []scale.Response) (*ScoreResult, error) {
	items, excluded := Resolve(t, responses)
	res := &ScoreResult{
		SubscaleScores: map[string]float64{},
		ValidResponses: len(items),
		ItemScores:     items,
		Excluded:       excluded,
	}

	method := t.Scale.Scoring.Method
	if method == "" {
		method = scale.MethodSum
	}

	switch method {
	case scale.MethodSum:
		res.TotalScore = total(items, false)
		res.SubscaleScores = subscaleSums(t, items, false)
	case scale.MethodWeighted:
		res.TotalScore = total(items, true)
		res.SubscaleScores = subscaleSums(t, items, true)
	case scale.MethodSumBySubscale:
		res.SubscaleScores = subscaleSums(t, items, false)
		if t.Scale.Scoring.ReportsTotal() {
			res.TotalScore = total(items, false)
		}
	case scale.MethodCustom:
		hook, err := c.hooks.Get(t.Scale.Scoring.CustomHook)
		if err != nil {
			return nil, err
		}
		out, err := hook.Score(t, responses)
		if err != nil {
			return nil, fmt.Errorf("custom hook %q: %w", t.Scale.Scoring.CustomHook, err)
		}
		res.TotalScore = out.TotalScore
		if out.SubscaleScores != nil {
			res.SubscaleScores = out.SubscaleScores
		}
	default:
		return nil, fmt.Errorf("unsupported scoring method %q", method)
	}
	return res, nil
}

func total(items []ItemScore, weighted bool) *float64 {
	var sum float64
	for _, is := range items {
		sum += contribution(is, weighted)
	}
	return &sum
}

// subscaleSums sums item contributions per subscale. Every declared subscale
// gets an entry, zero when none of its items were answered.
func subscaleSums(t *scale.Template, items []ItemScore, weighted bool) map[string]float64 {
	out := make(map[string]float64, len(t.Scale.Subscales))
	if len(t.Scale.Subscales) == 0 {
		return out
	}
	byNumber := make(map[int]ItemScore, len(items))
	for _, is := range items {
		byNumber[is.ItemNumber] = is
	}
	for _, sub := range t.Scale.Subscales {
		var sum float64
		for _, n := range sub.Items {
			if is, ok := byNumber[n]; ok {
				sum += contribution(is, weighted)
			}
		}
		out[sub.ID] = sum
	}
	return out
}

func contribution(is ItemScore, weighted bool) float64 {
	if weighted {
		return is.Effective * is.Weight
	}
	return is.Effective
}
