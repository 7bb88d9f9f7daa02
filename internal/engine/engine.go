// Package engine composes the scoring pipeline for one completed
// administration: response validation, scoring, then interpretation, alerts
// and consistency over the same inputs.
package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/dotcommander/clinscale/internal/alerts"
	"github.com/dotcommander/clinscale/internal/consistency"
	"github.com/dotcommander/clinscale/internal/interpret"
	"github.com/dotcommander/clinscale/internal/scale"
	"github.com/dotcommander/clinscale/internal/scoring"
	"github.com/dotcommander/clinscale/internal/validator"
)

// ErrTemplateInvalid is returned by LoadTemplate when validation finds errors.
var ErrTemplateInvalid = errors.New("template is not valid")

// Options configures an Engine.
type Options struct {
	Responses   validator.ResponseOptions
	Consistency consistency.Options
}

// DefaultOptions returns skips disallowed and every consistency heuristic on.
func DefaultOptions() Options {
	return Options{Consistency: consistency.DefaultOptions()}
}

// Engine runs administrations. It is safe for concurrent use.
type Engine struct {
	validator *validator.Validator
	calc      *scoring.Calculator
	checker   *consistency.Checker
	opts      Options
}

// New creates an Engine. v validates templates in LoadTemplate; hooks serve
// templates using the custom scoring method.
func New(v *validator.Validator, hooks *scoring.HookRegistry, opts Options) *Engine {
	return &Engine{
		validator: v,
		calc:      scoring.NewCalculator(hooks),
		checker:   consistency.NewChecker(opts.Consistency),
		opts:      opts,
	}
}

// Report is the combined payload for one administration.
type Report struct {
	TemplateID           string                     `json:"templateId"`
	TotalScore           *float64                   `json:"totalScore"`
	SubscaleScores       map[string]float64         `json:"subscaleScores"`
	Subscales            []interpret.SubscaleStatus `json:"subscales,omitempty"`
	Interpretation       *interpret.Interpretation  `json:"interpretation,omitempty"`
	Alerts               []alerts.Alert             `json:"alerts"`
	Consistency          consistency.Result         `json:"consistency"`
	CompletionPercentage float64                    `json:"completionPercentage"`
	ValidResponses       int                        `json:"validResponses"`
	Excluded             []scoring.Exclusion        `json:"excluded,omitempty"`
	ResponseValidation   validator.ResponseResult   `json:"responseValidation"`
}

// LoadTemplate validates a serialized template and returns its compiled form.
// An invalid template returns ErrTemplateInvalid alongside the result so the
// caller can report the issues.
func (e *Engine) LoadTemplate(data []byte, format scale.Format) (*scale.Template, *validator.Result, error) {
	res, err := e.validator.ValidateTemplate(data, format)
	if err != nil {
		return nil, nil, err
	}
	if !res.IsValid {
		return nil, res, fmt.Errorf("%w: %d errors", ErrTemplateInvalid, res.Summary.TotalErrors)
	}
	return res.Template, res, nil
}

// Administer scores one response set. Response validation problems are
// reported in the result, not returned: scoring degrades gracefully and the
// caller decides whether an incomplete administration is acceptable.
func (e *Engine) Administer(t *scale.Template, responses []scale.Response) (*Report, error) {
	rv := validator.ValidateResponses(t, responses, e.opts.Responses)

	scores, err := e.calc.CalculateScores(t, responses)
	if err != nil {
		return nil, fmt.Errorf("calculate scores: %w", err)
	}

	found, err := alerts.DetectAlerts(t, responses, scores.TotalScore)
	if err != nil {
		return nil, err
	}

	report := &Report{
		TemplateID:           t.Scale.Metadata.ID,
		TotalScore:           scores.TotalScore,
		SubscaleScores:       scores.SubscaleScores,
		Subscales:            interpret.InterpretSubscales(t, scores.SubscaleScores),
		Alerts:               found,
		Consistency:          e.checker.Check(t, responses),
		CompletionPercentage: completion(t, scores.ValidResponses),
		ValidResponses:       scores.ValidResponses,
		Excluded:             scores.Excluded,
		ResponseValidation:   rv,
	}
	if scores.TotalScore != nil {
		in := interpret.InterpretScore(t, *scores.TotalScore)
		report.Interpretation = &in
	}
	return report, nil
}

// completion is the share of scorable items with a valid response, as a
// percentage rounded to one decimal.
func completion(t *scale.Template, valid int) float64 {
	n := len(t.ScorableItems())
	if n == 0 {
		return 0
	}
	pct := float64(valid) / float64(n) * 100
	return math.Round(pct*10) / 10
}
