package validator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dotcommander/clinscale/internal/scale"
)

// ResponseOptions configures response validation for an administration mode.
type ResponseOptions struct {
	// AllowSkips accepts wasSkipped=true in place of an answer to a required
	// item. A skip is never the same as a missing response.
	AllowSkips bool
}

// ResponseError describes one problem with a response set.
type ResponseError struct {
	FieldID    string `json:"fieldId"`
	ItemNumber int    `json:"itemNumber"`
	Error      string `json:"error"`
}

// ResponseResult is the outcome of ValidateResponses.
type ResponseResult struct {
	IsValid bool            `json:"isValid"`
	Errors  []ResponseError `json:"errors"`
}

// ValidateResponses checks responses against a compiled template before
// scoring: every required item is answered (or skipped, when allowed),
// enumerated answers match an option value, numeric answers parse and fall in
// range.
func ValidateResponses(t *scale.Template, responses []scale.Response, opts ResponseOptions) ResponseResult {
	res := ResponseResult{Errors: []ResponseError{}}
	seen := make(map[string]bool, len(responses))
	answered := make(map[string]bool, len(responses))

	for _, r := range responses {
		ref := string(r.ItemID)
		item, ok := t.Item(ref)
		if !ok {
			res.Errors = append(res.Errors, ResponseError{FieldID: ref, Error: "response references an unknown item"})
			continue
		}
		key := item.Key()
		if seen[key] {
			res.Errors = append(res.Errors, ResponseError{FieldID: key, ItemNumber: item.Number, Error: "duplicate response for item"})
			continue
		}
		seen[key] = true
		if item.QuestionType.IsPresentational() {
			continue
		}

		if r.WasSkipped {
			if item.Required && !opts.AllowSkips {
				res.Errors = append(res.Errors, ResponseError{FieldID: key, ItemNumber: item.Number, Error: "required item was skipped and skipping is not permitted"})
			}
			answered[key] = true
			continue
		}

		value := strings.TrimSpace(string(r.Value))
		if value == "" {
			// Seen but unanswered: reported below as missing if required.
			continue
		}
		answered[key] = true
		if msg := checkValue(t, item, value); msg != "" {
			res.Errors = append(res.Errors, ResponseError{FieldID: key, ItemNumber: item.Number, Error: msg})
		}
	}

	for i := range t.Scale.Items {
		item := &t.Scale.Items[i]
		if !item.Required || item.QuestionType.IsPresentational() || answered[item.Key()] {
			continue
		}
		res.Errors = append(res.Errors, ResponseError{FieldID: item.Key(), ItemNumber: item.Number, Error: "required response is missing"})
	}

	res.IsValid = len(res.Errors) == 0
	return res
}

func checkValue(t *scale.Template, item *scale.Item, value string) string {
	ro := t.Options(item)
	switch {
	case item.QuestionType.IsEnumerated():
		if _, ok := ro.Lookup(value); !ok {
			return fmt.Sprintf("value %q is not one of the item's options", value)
		}
	case item.QuestionType == scale.TypeNumeric:
		if ro != nil && ro.Source != scale.SourceNone {
			if _, ok := ro.Lookup(value); ok {
				return ""
			}
		}
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Sprintf("value %q is not a number", value)
		}
		if r := item.NumericRange; r != nil && (n < r.Min || n > r.Max) {
			return fmt.Sprintf("value %s is outside the allowed range %s", value, *r)
		}
	}
	return ""
}
