// Package validator checks scale templates for structural and clinical
// consistency and checks response sets against a validated template.
//
// Template validation runs in two stages. The schema pass inspects the raw
// document: required fields, then CUE unification for types and formats.
// When the schema pass finds nothing critical, the template is decoded and
// compiled and the business-rule checks run against the compiled form.
package validator

import (
	"fmt"

	"github.com/dotcommander/clinscale/internal/scale"
	"github.com/dotcommander/clinscale/internal/schema"
	"github.com/dotcommander/clinscale/internal/scoring"
	"github.com/dotcommander/clinscale/internal/types"
)

// HookLookup reports whether a custom scoring hook is registered.
type HookLookup interface {
	Has(name string) bool
}

// Validator validates templates. It holds no per-call state and is safe for
// concurrent use.
type Validator struct {
	schemas *schema.Registry
	hooks   HookLookup
	checks  []check
}

// check is one business-rule pass over a compiled template.
type check struct {
	name string
	run  func(t *scale.Template) []types.Issue
}

// Summary counts the issues in a Result.
type Summary struct {
	TotalErrors    int `json:"totalErrors"`
	TotalWarnings  int `json:"totalWarnings"`
	CriticalErrors int `json:"criticalErrors"`
}

// Result is the outcome of validating one template.
type Result struct {
	TemplateID      string        `json:"templateId"`
	File            string        `json:"file,omitempty"`
	IsValid         bool          `json:"isValid"`
	Errors          []types.Issue `json:"errors"`
	Warnings        []types.Issue `json:"warnings"`
	Summary         Summary       `json:"summary"`
	ValidationScore int           `json:"validationScore"`
	Tier            string        `json:"tier"`

	// Template is the compiled template when decoding got that far, even if
	// the template is invalid. Callers must check IsValid before scoring.
	Template *scale.Template `json:"-"`
}

// New creates a Validator. hooks may be nil, in which case custom scoring
// hooks are not checked for registration.
func New(schemas *schema.Registry, hooks HookLookup) *Validator {
	v := &Validator{schemas: schemas, hooks: hooks}
	v.checks = []check{
		{"score-range", checkScoreRange},
		{"interpretation", checkInterpretation},
		{"subscales", checkSubscales},
		{"response-groups", checkResponseGroups},
		{"items", checkItems},
		{"scoring-method", v.checkScoringMethod},
		{"consistency-pairs", checkConsistencyPairs},
	}
	return v
}

// ValidateTemplate validates a serialized template. Only input that is not a
// template-shaped document at all returns an error (*types.ValidationError).
func (v *Validator) ValidateTemplate(data []byte, format scale.Format) (*Result, error) {
	doc, err := scale.ParseDocument(data, format)
	if err != nil {
		return nil, err
	}
	return v.ValidateDocument(doc)
}

// ValidateScale validates a template built in code.
func (v *Validator) ValidateScale(s *scale.Scale) (*Result, error) {
	doc, err := scale.ToDocument(s)
	if err != nil {
		return nil, err
	}
	return v.ValidateDocument(doc)
}

// ValidateDocument validates a template already decoded into raw form.
func (v *Validator) ValidateDocument(doc map[string]any) (*Result, error) {
	if doc == nil {
		return nil, &types.ValidationError{Input: "template", Reason: "nil document"}
	}

	issues, err := v.schemaPass(doc)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	if id, ok := lookupPath(doc, "metadata.id").(string); ok {
		res.TemplateID = id
	}

	if !hasCritical(issues) {
		s, err := scale.FromDocument(doc)
		if err != nil {
			return nil, err
		}
		t, err := scale.Compile(s)
		if err != nil {
			return nil, err
		}
		res.Template = t
		for _, c := range v.checks {
			issues = append(issues, c.run(t)...)
		}
	}

	res.finish(issues)
	return res, nil
}

func (r *Result) finish(issues []types.Issue) {
	r.Errors = []types.Issue{}
	r.Warnings = []types.Issue{}
	for _, is := range issues {
		if is.IsError() {
			r.Errors = append(r.Errors, is)
			if is.Severity == types.SeverityCritical {
				r.Summary.CriticalErrors++
			}
		} else {
			r.Warnings = append(r.Warnings, is)
		}
	}
	r.Summary.TotalErrors = len(r.Errors)
	r.Summary.TotalWarnings = len(r.Warnings)
	r.IsValid = r.Summary.TotalErrors == 0
	r.ValidationScore = ValidationScore(r.Summary)
	r.Tier = scoring.TierFromScore(r.ValidationScore)
}

// ValidationScore is 100 less 25 per critical error, 10 per other error and
// 2 per warning, floored at zero.
func ValidationScore(s Summary) int {
	nonCritical := s.TotalErrors - s.CriticalErrors
	score := 100 - 25*s.CriticalErrors - 10*nonCritical - 2*s.TotalWarnings
	if score < 0 {
		return 0
	}
	return score
}

func hasCritical(issues []types.Issue) bool {
	for _, is := range issues {
		if is.Severity == types.SeverityCritical {
			return true
		}
	}
	return false
}

func errorf(code, field, format string, args ...any) types.Issue {
	return types.Issue{Code: code, Field: field, Message: fmt.Sprintf(format, args...), Severity: types.SeverityError}
}

func warnf(code, field, format string, args ...any) types.Issue {
	return types.Issue{Code: code, Field: field, Message: fmt.Sprintf(format, args...), Severity: types.SeverityWarning}
}
