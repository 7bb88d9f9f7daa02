package validator

import (
	"strings"

	"github.com/dotcommander/clinscale/internal/schema"
	"github.com/dotcommander/clinscale/internal/types"
)

// requiredFields must be present (non-null) in every template.
var requiredFields = []string{
	"metadata.id",
	"metadata.name",
	"metadata.abbreviation",
	"structure.totalItems",
	"scoring.scoreRange",
	"items",
	"interpretation.rules",
}

// criticalFields escalate any violation at or below them to critical: without
// them nothing downstream can be checked or scored.
var criticalFields = []string{
	"metadata.id",
	"scoring.scoreRange",
	"interpretation.rules",
	"items",
}

func (v *Validator) schemaPass(doc map[string]any) ([]types.Issue, error) {
	var issues []types.Issue
	missing := make(map[string]bool)

	for _, field := range requiredFields {
		if lookupPath(doc, field) == nil {
			missing[field] = true
			issues = append(issues, types.Issue{
				Code:     types.CodeMissingField,
				Field:    field,
				Message:  "required field " + field + " is missing",
				Severity: severityFor(field),
			})
		}
	}

	if lookupPath(doc, "responseGroups") == nil && lookupPath(doc, "responseOptions") == nil && !allItemsCarryOptions(doc) {
		issues = append(issues, types.Issue{
			Code:     types.CodeMissingField,
			Field:    "responseGroups|responseOptions",
			Message:  "template declares neither responseGroups nor responseOptions and not every enumerated item has its own options",
			Severity: types.SeverityError,
		})
	}

	if v.schemas == nil {
		return issues, nil
	}
	violations, err := v.schemas.Validate(schema.DefScale, doc)
	if err != nil {
		return nil, err
	}
	for _, viol := range violations {
		if underAny(viol.Path, missing) {
			continue
		}
		field := viol.Path
		msg := viol.Message
		if field != "" {
			msg = field + ": " + msg
		}
		issues = append(issues, types.Issue{
			Code:     types.CodeSchemaViolation,
			Field:    field,
			Message:  msg,
			Severity: severityFor(field),
		})
	}
	return issues, nil
}

func severityFor(field string) string {
	for _, c := range criticalFields {
		if field == c || strings.HasPrefix(field, c+".") {
			return types.SeverityCritical
		}
	}
	return types.SeverityError
}

// underAny reports whether path equals or lies below one of the paths in set.
func underAny(path string, set map[string]bool) bool {
	for p := range set {
		if path == p || strings.HasPrefix(path, p+".") {
			return true
		}
	}
	return false
}

func allItemsCarryOptions(doc map[string]any) bool {
	items, ok := doc["items"].([]any)
	if !ok || len(items) == 0 {
		return false
	}
	for _, el := range items {
		item, ok := el.(map[string]any)
		if !ok {
			return false
		}
		switch item["questionType"] {
		case "likert", "dichotomous", "multiple_choice", "checklist":
			opts, _ := item["responseOptions"].([]any)
			if len(opts) == 0 {
				return false
			}
		}
	}
	return true
}

// lookupPath walks a dotted path through nested objects. It returns nil when
// any segment is absent or null.
func lookupPath(doc map[string]any, path string) any {
	var cur any = doc
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[seg]
		if !ok || cur == nil {
			return nil
		}
	}
	return cur
}
