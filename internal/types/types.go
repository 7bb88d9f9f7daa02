// Package types provides shared types used across the clinscale codebase.
// This package is at the bottom of the dependency graph and should not import
// any other internal packages to avoid circular dependencies.
package types

import "fmt"

// Issue represents a validation error or warning raised against a template.
type Issue struct {
	Code     string `json:"code"`
	Field    string `json:"field,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // critical, error, warning
	File     string `json:"file,omitempty"`
}

// Severity level constants.
const (
	SeverityCritical = "critical"
	SeverityError    = "error"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// IsError reports whether the issue makes a template unusable.
func (i Issue) IsError() bool {
	return i.Severity == SeverityCritical || i.Severity == SeverityError
}

// Issue codes emitted by the template validator.
const (
	CodeMissingField            = "MISSING_REQUIRED_FIELD"
	CodeSchemaViolation         = "SCHEMA_VIOLATION"
	CodeInvalidScoreRange       = "INVALID_SCORE_RANGE"
	CodeNegativeMinScore        = "NEGATIVE_MIN_SCORE"
	CodeInvalidSubscaleRange    = "INVALID_SUBSCALE_RANGE"
	CodeInterpretationGap       = "INTERPRETATION_GAP"
	CodeInterpretationOverlap   = "INTERPRETATION_OVERLAP"
	CodeInvalidRuleRange        = "INVALID_RULE_RANGE"
	CodeRuleOutsideScoreRange   = "RULE_OUTSIDE_SCORE_RANGE"
	CodeSubscalesDeclaredEmpty  = "SUBSCALES_DECLARED_BUT_EMPTY"
	CodeSubscaleCountNoFlag     = "SUBSCALE_COUNT_WITHOUT_FLAG"
	CodeSubscaleCountMismatch   = "SUBSCALE_COUNT_MISMATCH"
	CodeSubscaleUnknownItem     = "SUBSCALE_UNKNOWN_ITEM"
	CodeSubscalesRequired       = "SUBSCALES_REQUIRED"
	CodeEmptyResponseGroup      = "EMPTY_RESPONSE_GROUP"
	CodeDuplicateResponseValues = "DUPLICATE_RESPONSE_VALUES"
	CodeDuplicateResponseScores = "DUPLICATE_RESPONSE_SCORES"
	CodeUnusedResponseGroup     = "UNUSED_RESPONSE_GROUP"
	CodeUnknownResponseGroup    = "UNKNOWN_RESPONSE_GROUP"
	CodeGroupUnknownItem        = "GROUP_UNKNOWN_ITEM"
	CodeTotalItemsMismatch      = "TOTAL_ITEMS_MISMATCH"
	CodeDuplicateItemNumber     = "DUPLICATE_ITEM_NUMBER"
	CodeDuplicateItemID         = "DUPLICATE_ITEM_ID"
	CodeItemIDShadowsNumber     = "ITEM_ID_SHADOWS_NUMBER"
	CodeNoOptionSource          = "NO_OPTION_SOURCE"
	CodeInvalidAlertCondition   = "INVALID_ALERT_CONDITION"
	CodeAlertWithoutCondition   = "ALERT_WITHOUT_CONDITION"
	CodeUnknownCustomHook       = "UNKNOWN_CUSTOM_HOOK"
	CodeReverseWithoutSpan      = "REVERSE_WITHOUT_SCORE_SPAN"
	CodePairUnknownItem         = "CONSISTENCY_PAIR_UNKNOWN_ITEM"
)

// ValidationError is returned when input is not even shaped like a template
// or response set (non-object template, non-array responses). It is the one
// failure the engine raises instead of reporting in a result object.
type ValidationError struct {
	Input  string // "template" or "responses"
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("malformed %s: %s", e.Input, e.Reason)
}
