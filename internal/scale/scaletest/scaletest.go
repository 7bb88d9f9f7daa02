// Package scaletest builds scale templates and response sets for tests.
package scaletest

import (
	"fmt"
	"strconv"

	"github.com/dotcommander/clinscale/internal/scale"
)

// Options returns n options valued "0".."n-1", each scoring its own value.
func Options(n int) []scale.ResponseOption {
	opts := make([]scale.ResponseOption, n)
	for i := range opts {
		opts[i] = scale.ResponseOption{
			Value:      scale.FlexString(strconv.Itoa(i)),
			Label:      fmt.Sprintf("option %d", i),
			Score:      float64(i),
			OrderIndex: i,
		}
	}
	return opts
}

// Likert returns a sum-scored scale of n likert items q1..qn, all bound to
// response group "freq" with options scored 0..3. The score range is
// [0, 3n] and a single rule covers it.
func Likert(n int) *scale.Scale {
	nums := make([]int, n)
	items := make([]scale.Item, n)
	for i := range items {
		nums[i] = i + 1
		items[i] = scale.Item{
			ID:           fmt.Sprintf("q%d", i+1),
			Number:       i + 1,
			Text:         fmt.Sprintf("Item %d", i+1),
			QuestionType: scale.TypeLikert,
			Required:     true,
		}
	}
	top := float64(3 * n)
	return &scale.Scale{
		Metadata:  scale.Metadata{ID: "likert-" + strconv.Itoa(n), Name: "Likert fixture", Abbreviation: "LF"},
		Structure: scale.Structure{TotalItems: n},
		Scoring: scale.Scoring{
			Method:     scale.MethodSum,
			ScoreRange: scale.ScoreRange{Min: 0, Max: top},
		},
		Items: items,
		ResponseGroups: map[string]scale.ResponseGroup{
			"freq": {ID: "freq", Items: nums, Options: Options(4)},
		},
		Interpretation: scale.Interpretation{Rules: []scale.InterpretationRule{
			{ID: "all", MinScore: 0, MaxScore: top, Label: "Any", Severity: "none"},
		}},
	}
}

// Depression returns a 21-item, 0..63 depression inventory with four bands:
// minimal [0, 13], mild [14, 19], moderate [20, 28] and severe [29, 63].
// Item 9 alerts at a score of 1 or more.
func Depression() *scale.Scale {
	s := Likert(21)
	s.Metadata = scale.Metadata{ID: "bdi-ii", Name: "Depression Inventory", Abbreviation: "BDI-II"}
	s.Interpretation.Rules = []scale.InterpretationRule{
		{ID: "minimal", MinScore: 0, MaxScore: 13, Label: "Minimal depression", Severity: "minimal"},
		{ID: "mild", MinScore: 14, MaxScore: 19, Label: "Mild depression", Severity: "mild"},
		{ID: "moderate", MinScore: 20, MaxScore: 28, Label: "Moderate depression", Severity: "moderate"},
		{ID: "severe", MinScore: 29, MaxScore: 63, Label: "Severe depression", Severity: "severe"},
	}
	s.Items[8].AlertTrigger = true
	s.Items[8].AlertCondition = ">=1"
	return s
}

// Compile compiles s, panicking on error. Compile only fails on a nil scale.
func Compile(s *scale.Scale) *scale.Template {
	t, err := scale.Compile(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Uniform answers every item of s with value.
func Uniform(s *scale.Scale, value string) []scale.Response {
	out := make([]scale.Response, 0, len(s.Items))
	for _, item := range s.Items {
		out = append(out, scale.Response{ItemID: scale.FlexString(item.Key()), Value: scale.FlexString(value)})
	}
	return out
}

// Answers builds responses from item key to value pairs, in argument order.
func Answers(pairs ...string) []scale.Response {
	out := make([]scale.Response, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, scale.Response{ItemID: scale.FlexString(pairs[i]), Value: scale.FlexString(pairs[i+1])})
	}
	return out
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
