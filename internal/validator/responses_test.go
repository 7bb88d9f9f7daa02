package validator

import (
	"reflect"
	"testing"

	"github.com/dotcommander/clinscale/internal/scale"
	"github.com/dotcommander/clinscale/internal/scale/scaletest"
)

func responseFixture() *scale.Template {
	s := scaletest.Likert(3)
	s.Items[2].Required = false
	s.Items = append(s.Items,
		scale.Item{ID: "hdr", Number: 4, Text: "Part two", QuestionType: scale.TypeSectionHeader, Required: true},
		scale.Item{ID: "age", Number: 5, Text: "Age", QuestionType: scale.TypeNumeric, NumericRange: &scale.ScoreRange{Min: 18, Max: 99}},
	)
	return scaletest.Compile(s)
}

func TestValidateResponses(t *testing.T) {
	tpl := responseFixture()

	tests := []struct {
		name      string
		responses []scale.Response
		opts      ResponseOptions
		wantErrs  []ResponseError
	}{
		{
			name:      "complete",
			responses: scaletest.Answers("q1", "0", "q2", "3", "age", "40"),
		},
		{
			name:      "by item number",
			responses: scaletest.Answers("1", "0", "2", "3"),
		},
		{
			name:      "missing required",
			responses: scaletest.Answers("q1", "0"),
			wantErrs:  []ResponseError{{FieldID: "q2", ItemNumber: 2, Error: "required response is missing"}},
		},
		{
			name:      "blank counts as missing",
			responses: scaletest.Answers("q1", "0", "q2", " "),
			wantErrs:  []ResponseError{{FieldID: "q2", ItemNumber: 2, Error: "required response is missing"}},
		},
		{
			name:      "unknown option",
			responses: scaletest.Answers("q1", "0", "q2", "7"),
			wantErrs:  []ResponseError{{FieldID: "q2", ItemNumber: 2, Error: `value "7" is not one of the item's options`}},
		},
		{
			name:      "unknown item",
			responses: scaletest.Answers("q1", "0", "q2", "1", "zz", "1"),
			wantErrs:  []ResponseError{{FieldID: "zz", Error: "response references an unknown item"}},
		},
		{
			name:      "duplicate",
			responses: scaletest.Answers("q1", "0", "q2", "1", "q1", "2"),
			wantErrs:  []ResponseError{{FieldID: "q1", ItemNumber: 1, Error: "duplicate response for item"}},
		},
		{
			name:      "duplicate after blank",
			responses: scaletest.Answers("q1", "0", "q2", " ", "q2", "1"),
			wantErrs: []ResponseError{
				{FieldID: "q2", ItemNumber: 2, Error: "duplicate response for item"},
				{FieldID: "q2", ItemNumber: 2, Error: "required response is missing"},
			},
		},
		{
			name:      "numeric out of range",
			responses: scaletest.Answers("q1", "0", "q2", "1", "age", "12"),
			wantErrs:  []ResponseError{{FieldID: "age", ItemNumber: 5, Error: "value 12 is outside the allowed range [18, 99]"}},
		},
		{
			name:      "numeric not a number",
			responses: scaletest.Answers("q1", "0", "q2", "1", "age", "old"),
			wantErrs:  []ResponseError{{FieldID: "age", ItemNumber: 5, Error: `value "old" is not a number`}},
		},
		{
			name:      "skip not permitted",
			responses: []scale.Response{{ItemID: "q1", Value: "0"}, {ItemID: "q2", WasSkipped: true}},
			wantErrs:  []ResponseError{{FieldID: "q2", ItemNumber: 2, Error: "required item was skipped and skipping is not permitted"}},
		},
		{
			name:      "skip permitted",
			responses: []scale.Response{{ItemID: "q1", Value: "0"}, {ItemID: "q2", WasSkipped: true}},
			opts:      ResponseOptions{AllowSkips: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateResponses(tpl, tt.responses, tt.opts)
			want := tt.wantErrs
			if want == nil {
				want = []ResponseError{}
			}
			if !reflect.DeepEqual(got.Errors, want) {
				t.Errorf("Errors = %+v, want %+v", got.Errors, want)
			}
			if got.IsValid != (len(tt.wantErrs) == 0) {
				t.Errorf("IsValid = %v with %d errors", got.IsValid, len(got.Errors))
			}
		})
	}
}
