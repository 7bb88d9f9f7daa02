package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/dotcommander/clinscale/internal/scale"
	"github.com/dotcommander/clinscale/internal/scale/scaletest"
	"github.com/dotcommander/clinscale/internal/schema"
	"github.com/dotcommander/clinscale/internal/scoring"
	"github.com/dotcommander/clinscale/internal/types"
)

// newValidator wires the validator the way the CLI does: embedded schema
// registry plus a hook registry, extended by hooks.
func newValidator(t *testing.T, hooks ...string) *Validator {
	t.Helper()
	reg, err := schema.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	hr := scoring.NewHookRegistry()
	for _, name := range hooks {
		noop := scoring.HookFunc(func(*scale.Template, []scale.Response) (scoring.HookResult, error) {
			return scoring.HookResult{}, nil
		})
		if err := hr.Register(name, noop); err != nil {
			t.Fatalf("Register(%q) error = %v", name, err)
		}
	}
	return New(reg, hr)
}

func codes(issues []types.Issue) []string {
	out := make([]string, 0, len(issues))
	for _, is := range issues {
		out = append(out, is.Code)
	}
	return out
}

func findIssue(issues []types.Issue, code string) (types.Issue, bool) {
	for _, is := range issues {
		if is.Code == code {
			return is, true
		}
	}
	return types.Issue{}, false
}

func mustValidateScale(t *testing.T, v *Validator, s *scale.Scale) *Result {
	t.Helper()
	res, err := v.ValidateScale(s)
	if err != nil {
		t.Fatalf("ValidateScale() error = %v", err)
	}
	return res
}

func TestValidateScale_Valid(t *testing.T) {
	res := mustValidateScale(t, newValidator(t), scaletest.Depression())

	if !res.IsValid || len(res.Errors) > 0 || len(res.Warnings) > 0 {
		t.Fatalf("want a clean result, got errors %v warnings %v", res.Errors, res.Warnings)
	}
	if res.TemplateID != "bdi-ii" {
		t.Errorf("TemplateID = %q, want bdi-ii", res.TemplateID)
	}
	if res.ValidationScore != 100 || res.Tier != "A" {
		t.Errorf("score = %d tier %q, want 100 A", res.ValidationScore, res.Tier)
	}
	if res.Template == nil {
		t.Fatal("Template is nil for a valid scale")
	}
	item, ok := res.Template.Item("q1")
	if !ok {
		t.Fatal("q1 not found in compiled template")
	}
	if got := res.Template.Options(item).Source; got != scale.SourceGroup {
		t.Errorf("q1 option source = %v, want group", got)
	}
}

func TestValidateScale_GroupBoundByItemReference(t *testing.T) {
	s := scaletest.Likert(5)
	g := s.ResponseGroups["freq"]
	g.Items = nil
	s.ResponseGroups["freq"] = g
	for i := range s.Items {
		s.Items[i].ResponseGroup = "freq"
	}
	v := newValidator(t)

	res := mustValidateScale(t, v, s)
	if !res.IsValid {
		t.Fatalf("ValidateScale: want valid, got errors %v", res.Errors)
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	fromFile, err := v.ValidateTemplate(data, scale.FormatJSON)
	if err != nil {
		t.Fatalf("ValidateTemplate() error = %v", err)
	}
	if fromFile.IsValid != res.IsValid || fromFile.ValidationScore != res.ValidationScore {
		t.Errorf("ValidateTemplate = (%v, %d), ValidateScale = (%v, %d); entry points disagree",
			fromFile.IsValid, fromFile.ValidationScore, res.IsValid, res.ValidationScore)
	}
}

func TestValidateScale_Interpretation(t *testing.T) {
	tests := []struct {
		name     string
		top      float64
		rules    [][2]float64
		wantCode string
		wantMsg  string
		valid    bool
	}{
		{"overlap", 20, [][2]float64{{0, 10}, {8, 20}}, types.CodeInterpretationOverlap, "overlap on [8, 10]", false},
		{"nested overlap", 20, [][2]float64{{0, 20}, {5, 6}}, types.CodeInterpretationOverlap, "overlap on [5, 6]", false},
		{"interior gap", 63, [][2]float64{{0, 9}, {20, 63}}, types.CodeInterpretationGap, "[10, 19]", true},
		{"gap below", 63, [][2]float64{{5, 63}}, types.CodeInterpretationGap, "[0, 4]", true},
		{"gap above", 63, [][2]float64{{0, 60}}, types.CodeInterpretationGap, "[61, 63]", true},
		{"inverted rule", 63, [][2]float64{{0, 63}, {30, 20}}, types.CodeInvalidRuleRange, "greater than maxScore", false},
		{"rule outside range", 63, [][2]float64{{0, 70}}, types.CodeRuleOutsideScoreRange, "beyond scoreRange [0, 63]", true},
		{"fractional gap", 10, [][2]float64{{0, 4.5}, {5, 10}}, types.CodeInterpretationGap, "(4.5, 5)", true},
	}
	v := newValidator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := scaletest.Likert(21)
			s.Scoring.ScoreRange = scale.ScoreRange{Min: 0, Max: tt.top}
			s.Interpretation.Rules = nil
			for i, r := range tt.rules {
				s.Interpretation.Rules = append(s.Interpretation.Rules, scale.InterpretationRule{
					ID: fmt.Sprintf("r%d", i), MinScore: r[0], MaxScore: r[1], Label: "band", Severity: "none",
				})
			}

			res := mustValidateScale(t, v, s)
			if res.IsValid != tt.valid {
				t.Errorf("IsValid = %v, want %v (errors %v)", res.IsValid, tt.valid, codes(res.Errors))
			}

			all := append(res.Errors, res.Warnings...)
			is, ok := findIssue(all, tt.wantCode)
			if !ok {
				t.Fatalf("want %s, got %v", tt.wantCode, codes(all))
			}
			if !strings.Contains(is.Message, tt.wantMsg) {
				t.Errorf("message %q does not contain %q", is.Message, tt.wantMsg)
			}
			if is.Field != "interpretation.rules" {
				t.Errorf("Field = %q, want interpretation.rules", is.Field)
			}
		})
	}
}

func TestValidateScale_BusinessRules(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(s *scale.Scale)
		wantCode string
		isError  bool
	}{
		{"inverted score range", func(s *scale.Scale) {
			s.Scoring.ScoreRange = scale.ScoreRange{Min: 9, Max: 9}
		}, types.CodeInvalidScoreRange, true},
		{"negative minimum", func(s *scale.Scale) {
			s.Scoring.ScoreRange.Min = -3
			s.Interpretation.Rules[0].MinScore = -3
		}, types.CodeNegativeMinScore, false},
		{"subscales declared but empty", func(s *scale.Scale) {
			s.Structure.HasSubscales = true
		}, types.CodeSubscalesDeclaredEmpty, true},
		{"subscale count without flag", func(s *scale.Scale) {
			s.Structure.SubscaleCount = 1
			s.Subscales = []scale.Subscale{{ID: "a", Items: []int{1}}}
		}, types.CodeSubscaleCountNoFlag, false},
		{"subscale count mismatch", func(s *scale.Scale) {
			s.Structure.HasSubscales = true
			s.Structure.SubscaleCount = 2
			s.Subscales = []scale.Subscale{{ID: "a", Items: []int{1}}}
		}, types.CodeSubscaleCountMismatch, false},
		{"sum by subscale without subscales", func(s *scale.Scale) {
			s.Scoring.Method = scale.MethodSumBySubscale
		}, types.CodeSubscalesRequired, true},
		{"subscale unknown item", func(s *scale.Scale) {
			s.Structure = scale.Structure{TotalItems: 4, HasSubscales: true, SubscaleCount: 1}
			s.Subscales = []scale.Subscale{{ID: "a", Items: []int{1, 40}}}
		}, types.CodeSubscaleUnknownItem, true},
		{"invalid subscale range", func(s *scale.Scale) {
			s.Structure = scale.Structure{TotalItems: 4, HasSubscales: true, SubscaleCount: 1}
			s.Subscales = []scale.Subscale{{ID: "a", Items: []int{1}, MinScore: scaletest.Float(3), MaxScore: scaletest.Float(1)}}
		}, types.CodeInvalidSubscaleRange, true},
		{"empty response group", func(s *scale.Scale) {
			s.ResponseGroups["empty"] = scale.ResponseGroup{ID: "empty"}
		}, types.CodeEmptyResponseGroup, true},
		{"duplicate option values", func(s *scale.Scale) {
			g := s.ResponseGroups["freq"]
			g.Options = append(scaletest.Options(4), scale.ResponseOption{Value: "1", Label: "again", Score: 7})
			s.ResponseGroups["freq"] = g
		}, types.CodeDuplicateResponseValues, true},
		{"duplicate option scores", func(s *scale.Scale) {
			g := s.ResponseGroups["freq"]
			g.Options = append(scaletest.Options(4), scale.ResponseOption{Value: "x", Label: "also three", Score: 3})
			s.ResponseGroups["freq"] = g
		}, types.CodeDuplicateResponseScores, false},
		{"unused response group", func(s *scale.Scale) {
			s.ResponseGroups["spare"] = scale.ResponseGroup{ID: "spare", Options: scaletest.Options(2)}
		}, types.CodeUnusedResponseGroup, false},
		{"unknown response group", func(s *scale.Scale) {
			s.Items[0].ResponseGroup = "nope"
		}, types.CodeUnknownResponseGroup, true},
		{"group lists unknown item", func(s *scale.Scale) {
			g := s.ResponseGroups["freq"]
			g.Items = append(g.Items, 99)
			s.ResponseGroups["freq"] = g
		}, types.CodeGroupUnknownItem, true},
		{"total items mismatch", func(s *scale.Scale) {
			s.Structure.TotalItems = 9
		}, types.CodeTotalItemsMismatch, false},
		{"duplicate item number", func(s *scale.Scale) {
			s.Items[1].Number = 1
		}, types.CodeDuplicateItemNumber, true},
		{"duplicate item id", func(s *scale.Scale) {
			s.Items[1].ID = "q1"
		}, types.CodeDuplicateItemID, true},
		{"item id shadows another number", func(s *scale.Scale) {
			s.Items[0].ID = "3"
		}, types.CodeItemIDShadowsNumber, false},
		{"no option source", func(s *scale.Scale) {
			s.ResponseGroups = nil
			s.Items[0].ResponseOptions = scaletest.Options(2)
			s.Items[1].ResponseOptions = scaletest.Options(2)
			s.Items[2].ResponseOptions = scaletest.Options(2)
		}, types.CodeNoOptionSource, true},
		{"invalid alert condition", func(s *scale.Scale) {
			s.Items[0].AlertTrigger = true
			s.Items[0].AlertCondition = "three"
		}, types.CodeInvalidAlertCondition, true},
		{"invalid scale alert condition", func(s *scale.Scale) {
			s.Scoring.AlertCondition = "~3"
		}, types.CodeInvalidAlertCondition, true},
		{"alert without condition", func(s *scale.Scale) {
			s.Items[0].AlertTrigger = true
		}, types.CodeAlertWithoutCondition, false},
		{"custom without hook name", func(s *scale.Scale) {
			s.Scoring.Method = scale.MethodCustom
		}, types.CodeUnknownCustomHook, true},
		{"custom with unregistered hook", func(s *scale.Scale) {
			s.Scoring.Method = scale.MethodCustom
			s.Scoring.CustomHook = "phq-custom"
		}, types.CodeUnknownCustomHook, true},
		{"reverse without span", func(s *scale.Scale) {
			s.Items = append(s.Items, scale.Item{ID: "n", Number: 5, Text: "Count", QuestionType: scale.TypeNumeric, ReverseScored: true})
			s.Structure.TotalItems = 5
		}, types.CodeReverseWithoutSpan, false},
		{"pair with unknown item", func(s *scale.Scale) {
			s.ConsistencyPairs = []scale.ItemPair{{ItemA: 1, ItemB: 50}}
		}, types.CodePairUnknownItem, true},
		{"pair with itself", func(s *scale.Scale) {
			s.ConsistencyPairs = []scale.ItemPair{{ItemA: 2, ItemB: 2}}
		}, types.CodePairUnknownItem, true},
	}
	v := newValidator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := scaletest.Likert(4)
			tt.mutate(s)

			res := mustValidateScale(t, v, s)

			pool := res.Warnings
			if tt.isError {
				pool = res.Errors
				if res.IsValid {
					t.Error("IsValid = true, want false")
				}
			}
			if _, ok := findIssue(pool, tt.wantCode); !ok {
				t.Errorf("want %s, errors %v, warnings %v", tt.wantCode, codes(res.Errors), codes(res.Warnings))
			}
		})
	}
}

func TestValidateScale_ItemOptionsSatisfyOptionSource(t *testing.T) {
	s := scaletest.Likert(2)
	s.ResponseGroups = nil
	for i := range s.Items {
		s.Items[i].ResponseOptions = scaletest.Options(4)
	}
	if res := mustValidateScale(t, newValidator(t), s); !res.IsValid {
		t.Errorf("want valid, got errors %v", res.Errors)
	}
}

func TestValidateScale_RegisteredCustomHook(t *testing.T) {
	s := scaletest.Likert(2)
	s.Scoring.Method = scale.MethodCustom
	s.Scoring.CustomHook = "phq-custom"

	if res := mustValidateScale(t, newValidator(t, "phq-custom"), s); !res.IsValid {
		t.Errorf("want valid, got errors %v", res.Errors)
	}
}

func TestValidateTemplate_MissingFields(t *testing.T) {
	const doc = `{
  "metadata": {"name": "No id", "abbreviation": "NI"},
  "structure": {"totalItems": 1},
  "scoring": {"method": "sum", "scoreRange": {"min": 0, "max": 3}},
  "responseOptions": [{"value": 0, "label": "No", "score": 0}, {"value": 3, "label": "Yes", "score": 3}],
  "items": [{"id": "q1", "number": 1, "text": "Q", "questionType": "dichotomous"}],
  "interpretation": {"rules": [{"id": "all", "minScore": 0, "maxScore": 3, "label": "Any", "severity": "none"}]}
}`
	res, err := newValidator(t).ValidateTemplate([]byte(doc), scale.FormatJSON)
	if err != nil {
		t.Fatalf("ValidateTemplate() error = %v", err)
	}

	if res.IsValid || len(res.Errors) == 0 {
		t.Fatalf("want errors, got valid result")
	}
	first := res.Errors[0]
	if first.Code != types.CodeMissingField || first.Field != "metadata.id" || first.Severity != types.SeverityCritical {
		t.Errorf("first error = %+v, want critical %s on metadata.id", first, types.CodeMissingField)
	}
	if res.Summary.CriticalErrors < 1 {
		t.Errorf("CriticalErrors = %d, want >= 1", res.Summary.CriticalErrors)
	}
	if res.ValidationScore > 75 {
		t.Errorf("ValidationScore = %d, want <= 75", res.ValidationScore)
	}
	if res.Template != nil {
		t.Error("business checks should be skipped after a critical issue")
	}
}

func TestValidateTemplate_NoOptionSourceAtAll(t *testing.T) {
	const doc = `
metadata: {id: x1, name: X, abbreviation: X}
structure: {totalItems: 1}
scoring: {method: sum, scoreRange: {min: 0, max: 3}}
items:
  - {id: q1, number: 1, text: Q, questionType: likert}
interpretation:
  rules:
    - {id: all, minScore: 0, maxScore: 3, label: Any, severity: none}
`
	res, err := newValidator(t).ValidateTemplate([]byte(doc), scale.FormatYAML)
	if err != nil {
		t.Fatalf("ValidateTemplate() error = %v", err)
	}
	if res.IsValid {
		t.Error("IsValid = true, want false")
	}
	is, ok := findIssue(res.Errors, types.CodeMissingField)
	if !ok {
		t.Fatalf("want %s, got %v", types.CodeMissingField, codes(res.Errors))
	}
	if is.Field != "responseGroups|responseOptions" {
		t.Errorf("Field = %q", is.Field)
	}
	if _, ok := findIssue(res.Errors, types.CodeNoOptionSource); !ok {
		t.Errorf("want %s, got %v", types.CodeNoOptionSource, codes(res.Errors))
	}
}

func TestValidateTemplate_SchemaViolation(t *testing.T) {
	const doc = `{
  "metadata": {"id": "bad id!", "name": "X", "abbreviation": "X"},
  "structure": {"totalItems": 1},
  "scoring": {"scoreRange": {"min": 0, "max": 1}},
  "responseOptions": [{"value": "0", "label": "No", "score": 0}, {"value": "1", "label": "Yes", "score": 1}],
  "items": [{"id": "q1", "number": 1, "text": "Q", "questionType": "dichotomous"}],
  "interpretation": {"rules": [{"id": "all", "minScore": 0, "maxScore": 1, "label": "Any", "severity": "none"}]}
}`
	res, err := newValidator(t).ValidateTemplate([]byte(doc), scale.FormatJSON)
	if err != nil {
		t.Fatalf("ValidateTemplate() error = %v", err)
	}
	if res.IsValid {
		t.Error("IsValid = true, want false")
	}
	is, ok := findIssue(res.Errors, types.CodeSchemaViolation)
	if !ok {
		t.Fatalf("want %s, got %v", types.CodeSchemaViolation, res.Errors)
	}
	if is.Field != "metadata.id" || is.Severity != types.SeverityCritical {
		t.Errorf("violation = %+v, want critical on metadata.id", is)
	}
}

func TestValidateTemplate_Malformed(t *testing.T) {
	v := New(nil, nil)
	tests := []struct {
		name  string
		input string
	}{
		{"array", `[1, 2]`},
		{"scalar", `42`},
		{"syntax error", `{"metadata": `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidateTemplate([]byte(tt.input), scale.FormatJSON)
			var verr *types.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("error = %v, want *types.ValidationError", err)
			}
		})
	}

	if _, err := v.ValidateDocument(nil); err == nil {
		t.Error("ValidateDocument(nil) should fail")
	}
}

func TestValidationScore(t *testing.T) {
	tests := []struct {
		name string
		in   Summary
		want int
	}{
		{"clean", Summary{}, 100},
		{"warnings only", Summary{TotalWarnings: 3}, 94},
		{"mixed", Summary{TotalErrors: 3, CriticalErrors: 1, TotalWarnings: 1}, 100 - 25 - 20 - 2},
		{"floored", Summary{TotalErrors: 5, CriticalErrors: 5}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidationScore(tt.in); got != tt.want {
				t.Errorf("ValidationScore(%+v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidateTemplates_Batch(t *testing.T) {
	validJSON, err := json.Marshal(scaletest.Likert(3))
	if err != nil {
		t.Fatal(err)
	}
	broken := scaletest.Likert(3)
	broken.Items[1].Number = 1
	brokenJSON, err := json.Marshal(broken)
	if err != nil {
		t.Fatal(err)
	}

	docs := []Document{
		{Name: "a.json", Data: validJSON, Format: scale.FormatJSON},
		{Name: "b.json", Data: brokenJSON, Format: scale.FormatJSON},
		{Name: "c.json", Data: []byte(`[]`), Format: scale.FormatJSON},
		{Name: "d.json", Data: validJSON, Format: scale.FormatJSON},
	}
	v := newValidator(t)

	batch := v.ValidateTemplates(docs, 3)
	want := BatchTotals{Templates: 4, Valid: 2, Malformed: 1}
	if batch.Totals.Templates != want.Templates || batch.Totals.Valid != want.Valid || batch.Totals.Malformed != want.Malformed {
		t.Errorf("Totals = %+v, want %+v", batch.Totals, want)
	}
	if _, ok := batch.Failures["c.json"]; !ok {
		t.Errorf("Failures = %v, want c.json", batch.Failures)
	}
	wantOrder := []string{"likert-3", "likert-3 (b.json)", "likert-3 (d.json)"}
	if !reflect.DeepEqual(batch.Order, wantOrder) {
		t.Errorf("Order = %v, want %v", batch.Order, wantOrder)
	}
	if batch.Results["likert-3 (b.json)"].IsValid {
		t.Error("b.json should be invalid")
	}
	if !batch.Results["likert-3 (d.json)"].IsValid {
		t.Error("d.json should be valid")
	}

	// Scheduling never changes the outcome.
	serial := v.ValidateTemplates(docs, 1)
	if !reflect.DeepEqual(serial.Order, batch.Order) || serial.Totals != batch.Totals {
		t.Errorf("serial run differs: %v %+v vs %v %+v", serial.Order, serial.Totals, batch.Order, batch.Totals)
	}
}

func TestValidateScales(t *testing.T) {
	bound := scaletest.Likert(2)
	g := bound.ResponseGroups["freq"]
	g.Items = nil
	bound.ResponseGroups["freq"] = g
	bound.Metadata.ID = "bound"
	for i := range bound.Items {
		bound.Items[i].ResponseGroup = "freq"
	}

	batch, err := newValidator(t).ValidateScales([]*scale.Scale{scaletest.Likert(2), scaletest.Depression(), bound})
	if err != nil {
		t.Fatalf("ValidateScales() error = %v", err)
	}
	if want := []string{"likert-2", "bdi-ii", "bound"}; !reflect.DeepEqual(batch.Order, want) {
		t.Errorf("Order = %v, want %v", batch.Order, want)
	}
	if batch.Totals.Valid != 3 {
		for key, res := range batch.Results {
			t.Logf("%s: %v", key, res.Errors)
		}
		t.Errorf("Valid = %d, want 3", batch.Totals.Valid)
	}
}
