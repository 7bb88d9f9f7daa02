// Package scale holds the in-memory Scale Template Model: the declarative
// definition of a clinical instrument, its decoding from JSON or YAML, and the
// compiled Template every scoring component reads from.
package scale

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ScoringMethod selects how item scores aggregate into a total.
type ScoringMethod string

const (
	MethodSum           ScoringMethod = "sum"
	MethodSumBySubscale ScoringMethod = "sum_by_subscale"
	MethodWeighted      ScoringMethod = "weighted"
	MethodCustom        ScoringMethod = "custom"
)

// Known reports whether m is one of the supported scoring methods.
func (m ScoringMethod) Known() bool {
	switch m {
	case MethodSum, MethodSumBySubscale, MethodWeighted, MethodCustom:
		return true
	}
	return false
}

// QuestionType is the presentation/response kind of an item.
type QuestionType string

const (
	TypeLikert         QuestionType = "likert"
	TypeDichotomous    QuestionType = "dichotomous"
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeNumeric        QuestionType = "numeric"
	TypeText           QuestionType = "text"
	TypeChecklist      QuestionType = "checklist"
	TypeSectionHeader  QuestionType = "section_header"
	TypeInfoText       QuestionType = "info_text"
)

// IsEnumerated reports whether responses must match one of a fixed option set.
func (q QuestionType) IsEnumerated() bool {
	switch q {
	case TypeLikert, TypeDichotomous, TypeMultipleChoice, TypeChecklist:
		return true
	}
	return false
}

// IsPresentational reports whether the item only displays content and never
// collects a response.
func (q QuestionType) IsPresentational() bool {
	return q == TypeSectionHeader || q == TypeInfoText
}

// IsScorable reports whether responses to this type contribute to scores.
func (q QuestionType) IsScorable() bool {
	return q.IsEnumerated() || q == TypeNumeric
}

// Scale is a complete scale template. It is decoded once and never mutated.
type Scale struct {
	Metadata         Metadata                 `json:"metadata"`
	Structure        Structure                `json:"structure"`
	Scoring          Scoring                  `json:"scoring"`
	Items            []Item                   `json:"items"`
	ResponseGroups   map[string]ResponseGroup `json:"responseGroups,omitempty"`
	ResponseOptions  []ResponseOption         `json:"responseOptions,omitempty"`
	Subscales        []Subscale               `json:"subscales,omitempty"`
	Interpretation   Interpretation           `json:"interpretation"`
	ConsistencyPairs []ItemPair               `json:"consistencyPairs,omitempty"`
}

type Metadata struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
	Category     string `json:"category,omitempty"`
	Version      string `json:"version,omitempty"`
	Description  string `json:"description,omitempty"`
}

type Structure struct {
	TotalItems    int  `json:"totalItems"`
	HasSubscales  bool `json:"hasSubscales"`
	SubscaleCount int  `json:"subscaleCount"`
}

type Scoring struct {
	Method         ScoringMethod         `json:"method,omitempty"`
	ScoreRange     ScoreRange            `json:"scoreRange"`
	SubscaleRanges map[string]ScoreRange `json:"subscaleRanges,omitempty"`
	HasTotalScore  *bool                 `json:"hasTotalScore,omitempty"` // sum_by_subscale only; nil means true
	CustomHook     string                `json:"customHook,omitempty"`
	AlertCondition string                `json:"alertCondition,omitempty"`
}

// ReportsTotal reports whether the template declares a top-level total.
func (s Scoring) ReportsTotal() bool {
	return s.HasTotalScore == nil || *s.HasTotalScore
}

type ScoreRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r ScoreRange) String() string {
	return fmt.Sprintf("[%s, %s]", formatScore(r.Min), formatScore(r.Max))
}

type Item struct {
	ID              string           `json:"id"`
	Number          int              `json:"number"`
	Text            string           `json:"text"`
	QuestionType    QuestionType     `json:"questionType"`
	ReverseScored   bool             `json:"reverseScored"`
	ResponseGroup   string           `json:"responseGroup,omitempty"`
	ResponseOptions []ResponseOption `json:"responseOptions,omitempty"`
	Required        bool             `json:"required"`
	AlertTrigger    bool             `json:"alertTrigger"`
	AlertCondition  string           `json:"alertCondition,omitempty"`
	Weight          *float64         `json:"weight,omitempty"`
	NumericRange    *ScoreRange      `json:"numericRange,omitempty"`
}

// Key is the identifier responses use to reference the item: its id, or its
// number when the template omits ids.
func (i Item) Key() string {
	if i.ID != "" {
		return i.ID
	}
	return strconv.Itoa(i.Number)
}

type ResponseGroup struct {
	ID      string           `json:"id"`
	Items   []int            `json:"items,omitempty"`
	Options []ResponseOption `json:"options"`
	Weight  *float64         `json:"weight,omitempty"`
}

type ResponseOption struct {
	Value      FlexString `json:"value"`
	Label      string     `json:"label"`
	Score      float64    `json:"score"`
	OrderIndex int        `json:"orderIndex"`
}

type Subscale struct {
	ID       string   `json:"id"`
	Name     string   `json:"name,omitempty"`
	Items    []int    `json:"items,omitempty"`
	MinScore *float64 `json:"minScore,omitempty"`
	MaxScore *float64 `json:"maxScore,omitempty"`
}

// SubscaleRange returns the subscale's declared range, preferring the
// subscale's own bounds over scoring.subscaleRanges.
func (s *Scale) SubscaleRange(sub Subscale) (ScoreRange, bool) {
	if sub.MinScore != nil && sub.MaxScore != nil {
		return ScoreRange{Min: *sub.MinScore, Max: *sub.MaxScore}, true
	}
	r, ok := s.Scoring.SubscaleRanges[sub.ID]
	return r, ok
}

type Interpretation struct {
	Rules []InterpretationRule `json:"rules"`
}

type InterpretationRule struct {
	ID          string  `json:"id"`
	MinScore    float64 `json:"minScore"`
	MaxScore    float64 `json:"maxScore"`
	Label       string  `json:"label"`
	Severity    string  `json:"severity"`
	Description string  `json:"description,omitempty"`
}

// ItemPair declares two items expected to move together. Inverse pairs are
// expected to move in opposite directions.
type ItemPair struct {
	ItemA         int      `json:"itemA"`
	ItemB         int      `json:"itemB"`
	MaxDifference *float64 `json:"maxDifference,omitempty"`
	Inverse       bool     `json:"inverse,omitempty"`
}

// Response is one answer collected during an administration.
type Response struct {
	ItemID         FlexString `json:"itemId"`
	Value          FlexString `json:"value"`
	ResponseTimeMs *int64     `json:"responseTimeMs,omitempty"`
	WasSkipped     bool       `json:"wasSkipped,omitempty"`
}

// FlexString accepts JSON strings, numbers and booleans, keeping the literal
// text. Templates in the wild write option values both as "1" and 1.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	switch data[0] {
	case '{', '[':
		// Left for the schema pass to report.
		*f = ""
		return nil
	}
	*f = FlexString(data)
	return nil
}

func (f FlexString) String() string { return string(f) }

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
