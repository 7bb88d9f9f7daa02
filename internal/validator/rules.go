package validator

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/dotcommander/clinscale/internal/scale"
	"github.com/dotcommander/clinscale/internal/types"
)

func checkScoreRange(t *scale.Template) []types.Issue {
	s := t.Scale
	var issues []types.Issue

	r := s.Scoring.ScoreRange
	if r.Min >= r.Max {
		issues = append(issues, errorf(types.CodeInvalidScoreRange, "scoring.scoreRange",
			"scoreRange.min (%s) must be less than scoreRange.max (%s)", fmtScore(r.Min), fmtScore(r.Max)))
	}
	if r.Min < 0 {
		issues = append(issues, warnf(types.CodeNegativeMinScore, "scoring.scoreRange.min",
			"scoreRange.min is negative (%s), which is unusual for a clinical scale", fmtScore(r.Min)))
	}

	declared := make(map[string]bool, len(s.Subscales))
	for i, sub := range s.Subscales {
		declared[sub.ID] = true
		sr, ok := s.SubscaleRange(sub)
		if !ok {
			continue
		}
		if sr.Min >= sr.Max {
			issues = append(issues, errorf(types.CodeInvalidSubscaleRange, fmt.Sprintf("subscales.%d", i),
				"subscale %q range %s: min must be less than max", sub.ID, sr))
		}
	}
	for _, id := range sortedKeys(s.Scoring.SubscaleRanges) {
		if declared[id] {
			continue
		}
		sr := s.Scoring.SubscaleRanges[id]
		if sr.Min >= sr.Max {
			issues = append(issues, errorf(types.CodeInvalidSubscaleRange, "scoring.subscaleRanges."+id,
				"subscale %q range %s: min must be less than max", id, sr))
		}
	}
	return issues
}

// checkInterpretation proves the interpretation bands partition the score
// range: overlaps are errors, uncovered spans are warnings.
func checkInterpretation(t *scale.Template) []types.Issue {
	const field = "interpretation.rules"
	var issues []types.Issue
	r := t.Scale.Scoring.ScoreRange

	var rules []scale.InterpretationRule
	for _, rule := range t.Rules() {
		if rule.MinScore > rule.MaxScore {
			issues = append(issues, errorf(types.CodeInvalidRuleRange, field,
				"rule %q has minScore %s greater than maxScore %s", rule.ID, fmtScore(rule.MinScore), fmtScore(rule.MaxScore)))
			continue
		}
		if rule.MinScore < r.Min || rule.MaxScore > r.Max {
			issues = append(issues, warnf(types.CodeRuleOutsideScoreRange, field,
				"rule %q %s extends beyond scoreRange %s", rule.ID, ruleSpan(rule), r))
		}
		rules = append(rules, rule)
	}

	if len(rules) == 0 {
		return append(issues, warnf(types.CodeInterpretationGap, field,
			"no interpretation rules cover scoreRange %s", r))
	}

	integral := isIntegral(r.Min) && isIntegral(r.Max)
	for _, rule := range rules {
		integral = integral && isIntegral(rule.MinScore) && isIntegral(rule.MaxScore)
	}
	sp := spanner{integral: integral}

	if first := rules[0]; first.MinScore > r.Min {
		issues = append(issues, warnf(types.CodeInterpretationGap, field,
			"scores %s below rule %q are not covered by any interpretation rule", sp.below(r.Min, first.MinScore), first.ID))
	}

	// reach is the rule extending furthest right so far; comparing against it
	// also catches a band nested inside an earlier, wider one.
	reach := rules[0]
	for _, next := range rules[1:] {
		switch {
		case reach.MaxScore >= next.MinScore:
			hi := math.Min(reach.MaxScore, next.MaxScore)
			issues = append(issues, errorf(types.CodeInterpretationOverlap, field,
				"rules %q %s and %q %s overlap on %s", reach.ID, ruleSpan(reach), next.ID, ruleSpan(next),
				scale.ScoreRange{Min: next.MinScore, Max: hi}))
		case sp.hasGap(reach.MaxScore, next.MinScore):
			issues = append(issues, warnf(types.CodeInterpretationGap, field,
				"scores %s between rules %q and %q are not covered by any interpretation rule",
				sp.between(reach.MaxScore, next.MinScore), reach.ID, next.ID))
		}
		if next.MaxScore > reach.MaxScore {
			reach = next
		}
	}

	if reach.MaxScore < r.Max {
		issues = append(issues, warnf(types.CodeInterpretationGap, field,
			"scores %s above rule %q are not covered by any interpretation rule", sp.above(reach.MaxScore, r.Max), reach.ID))
	}
	return issues
}

// spanner renders uncovered spans. On integer scales the span is closed and
// shrunk by one at each covered end; otherwise the covered ends are open.
type spanner struct {
	integral bool
}

func (s spanner) hasGap(coveredTo, coveredFrom float64) bool {
	if s.integral {
		return coveredFrom-coveredTo > 1
	}
	return coveredFrom > coveredTo
}

func (s spanner) below(min, coveredFrom float64) string {
	if s.integral {
		return scale.ScoreRange{Min: min, Max: coveredFrom - 1}.String()
	}
	return fmt.Sprintf("[%s, %s)", fmtScore(min), fmtScore(coveredFrom))
}

func (s spanner) between(coveredTo, coveredFrom float64) string {
	if s.integral {
		return scale.ScoreRange{Min: coveredTo + 1, Max: coveredFrom - 1}.String()
	}
	return fmt.Sprintf("(%s, %s)", fmtScore(coveredTo), fmtScore(coveredFrom))
}

func (s spanner) above(coveredTo, max float64) string {
	if s.integral {
		return scale.ScoreRange{Min: coveredTo + 1, Max: max}.String()
	}
	return fmt.Sprintf("(%s, %s]", fmtScore(coveredTo), fmtScore(max))
}

func checkSubscales(t *scale.Template) []types.Issue {
	s := t.Scale
	st := s.Structure
	var issues []types.Issue

	switch {
	case st.HasSubscales && st.SubscaleCount == 0:
		issues = append(issues, errorf(types.CodeSubscalesDeclaredEmpty, "structure.subscaleCount",
			"structure.hasSubscales is true but subscaleCount is 0"))
	case !st.HasSubscales && st.SubscaleCount > 0:
		issues = append(issues, warnf(types.CodeSubscaleCountNoFlag, "structure.hasSubscales",
			"structure.subscaleCount is %d but hasSubscales is false", st.SubscaleCount))
	}

	if st.SubscaleCount > 0 && st.SubscaleCount != len(s.Subscales) {
		issues = append(issues, warnf(types.CodeSubscaleCountMismatch, "structure.subscaleCount",
			"structure.subscaleCount is %d but %d subscales are declared", st.SubscaleCount, len(s.Subscales)))
	}
	if n := len(s.Scoring.SubscaleRanges); n > 0 && st.SubscaleCount != n {
		issues = append(issues, warnf(types.CodeSubscaleCountMismatch, "scoring.subscaleRanges",
			"structure.subscaleCount is %d but %d subscale ranges are declared", st.SubscaleCount, n))
	}

	if s.Scoring.Method == scale.MethodSumBySubscale && len(s.Subscales) == 0 {
		issues = append(issues, errorf(types.CodeSubscalesRequired, "subscales",
			"scoring method sum_by_subscale requires at least one subscale"))
	}

	for i, sub := range s.Subscales {
		var unknown []string
		for _, n := range sub.Items {
			if _, ok := t.ItemByNumber(n); !ok {
				unknown = append(unknown, strconv.Itoa(n))
			}
		}
		if len(unknown) > 0 {
			issues = append(issues, errorf(types.CodeSubscaleUnknownItem, fmt.Sprintf("subscales.%d.items", i),
				"subscale %q references items not in the scale: %s", sub.ID, strings.Join(unknown, ", ")))
		}
	}
	return issues
}

func checkResponseGroups(t *scale.Template) []types.Issue {
	s := t.Scale
	var issues []types.Issue

	for _, id := range sortedKeys(s.ResponseGroups) {
		g := s.ResponseGroups[id]
		field := "responseGroups." + id
		if len(g.Options) == 0 {
			issues = append(issues, errorf(types.CodeEmptyResponseGroup, field,
				"response group %q has no options", id))
			continue
		}
		issues = append(issues, optionSetIssues(field, fmt.Sprintf("response group %q", id), g.Options)...)

		var unknown []string
		for _, n := range g.Items {
			if _, ok := t.ItemByNumber(n); !ok {
				unknown = append(unknown, strconv.Itoa(n))
			}
		}
		if len(unknown) > 0 {
			issues = append(issues, errorf(types.CodeGroupUnknownItem, field+".items",
				"response group %q lists items not in the scale: %s", id, strings.Join(unknown, ", ")))
		}
		if len(t.GroupMembers(id)) == 0 {
			issues = append(issues, warnf(types.CodeUnusedResponseGroup, field,
				"response group %q is not used by any item", id))
		}
	}

	if len(s.ResponseOptions) > 0 {
		issues = append(issues, optionSetIssues("responseOptions", "global response options", s.ResponseOptions)...)
	}
	return issues
}

// optionSetIssues reports duplicate values (error) and duplicate scores
// (warning: two labels may intentionally share a score).
func optionSetIssues(field, what string, opts []scale.ResponseOption) []types.Issue {
	var issues []types.Issue
	values := make(map[string]int)
	scores := make(map[float64]int)
	for _, o := range opts {
		values[string(o.Value)]++
		scores[o.Score]++
	}

	var dupValues []string
	for v, n := range values {
		if n > 1 {
			dupValues = append(dupValues, strconv.Quote(v))
		}
	}
	if len(dupValues) > 0 {
		sort.Strings(dupValues)
		issues = append(issues, errorf(types.CodeDuplicateResponseValues, field,
			"%s has duplicate option values: %s", what, strings.Join(dupValues, ", ")))
	}

	var dupScores []float64
	for sc, n := range scores {
		if n > 1 {
			dupScores = append(dupScores, sc)
		}
	}
	if len(dupScores) > 0 {
		sort.Float64s(dupScores)
		parts := make([]string, len(dupScores))
		for i, sc := range dupScores {
			parts[i] = fmtScore(sc)
		}
		issues = append(issues, warnf(types.CodeDuplicateResponseScores, field,
			"%s maps several options to the same score: %s", what, strings.Join(parts, ", ")))
	}
	return issues
}

func checkItems(t *scale.Template) []types.Issue {
	s := t.Scale
	var issues []types.Issue

	numbers := make(map[int]bool, len(s.Items))
	ids := make(map[string]bool, len(s.Items))
	answerable := 0

	for i := range s.Items {
		item := &s.Items[i]
		field := fmt.Sprintf("items.%d", i)
		if !item.QuestionType.IsPresentational() {
			answerable++
		}

		if numbers[item.Number] {
			issues = append(issues, errorf(types.CodeDuplicateItemNumber, field+".number",
				"item number %d is used more than once", item.Number))
		}
		numbers[item.Number] = true
		if item.ID != "" {
			if ids[item.ID] {
				issues = append(issues, errorf(types.CodeDuplicateItemID, field+".id",
					"item id %q is used more than once", item.ID))
			}
			ids[item.ID] = true
			if n, err := strconv.Atoi(item.ID); err == nil && n != item.Number {
				if _, ok := t.ItemByNumber(n); ok {
					issues = append(issues, warnf(types.CodeItemIDShadowsNumber, field+".id",
						"item id %q matches the number of item %d; responses referencing %q resolve to item %d", item.ID, n, item.ID, item.Number))
				}
			}
		}

		if item.ResponseGroup != "" {
			if _, ok := s.ResponseGroups[item.ResponseGroup]; !ok {
				issues = append(issues, errorf(types.CodeUnknownResponseGroup, field+".responseGroup",
					"item %s references unknown response group %q", item.Key(), item.ResponseGroup))
			}
		}

		ro := t.Options(item)
		if item.QuestionType.IsEnumerated() && (ro == nil || ro.Source == scale.SourceNone) {
			issues = append(issues, errorf(types.CodeNoOptionSource, field,
				"item %s has no response options: no item options, response group or global options resolve", item.Key()))
		}
		if len(item.ResponseOptions) > 0 {
			issues = append(issues, optionSetIssues(field+".responseOptions",
				fmt.Sprintf("item %s options", item.Key()), item.ResponseOptions)...)
		}

		if item.ReverseScored && (ro == nil || ro.Source == scale.SourceNone) && item.NumericRange == nil {
			issues = append(issues, warnf(types.CodeReverseWithoutSpan, field,
				"item %s is reverse-scored but has no option set or numericRange to reverse within", item.Key()))
		}

		if item.AlertTrigger {
			if item.AlertCondition == "" {
				issues = append(issues, warnf(types.CodeAlertWithoutCondition, field+".alertCondition",
					"item %s has alertTrigger set but no alertCondition, so it can never fire", item.Key()))
			} else if _, err := scale.ParseCondition(item.AlertCondition); err != nil {
				issues = append(issues, errorf(types.CodeInvalidAlertCondition, field+".alertCondition",
					"item %s: %v", item.Key(), err))
			}
		}
	}

	if c := s.Scoring.AlertCondition; c != "" {
		if _, err := scale.ParseCondition(c); err != nil {
			issues = append(issues, errorf(types.CodeInvalidAlertCondition, "scoring.alertCondition", "%v", err))
		}
	}

	if n := s.Structure.TotalItems; n > 0 && n != len(s.Items) && n != answerable {
		issues = append(issues, warnf(types.CodeTotalItemsMismatch, "structure.totalItems",
			"structure.totalItems is %d but the template defines %d items", n, len(s.Items)))
	}
	return issues
}

func (v *Validator) checkScoringMethod(t *scale.Template) []types.Issue {
	sc := t.Scale.Scoring
	if sc.Method != scale.MethodCustom {
		return nil
	}
	if sc.CustomHook == "" {
		return []types.Issue{errorf(types.CodeUnknownCustomHook, "scoring.customHook",
			"scoring method custom requires scoring.customHook")}
	}
	if v.hooks != nil && !v.hooks.Has(sc.CustomHook) {
		return []types.Issue{errorf(types.CodeUnknownCustomHook, "scoring.customHook",
			"custom scoring hook %q is not registered", sc.CustomHook)}
	}
	return nil
}

func checkConsistencyPairs(t *scale.Template) []types.Issue {
	var issues []types.Issue
	for i, p := range t.Scale.ConsistencyPairs {
		field := fmt.Sprintf("consistencyPairs.%d", i)
		_, okA := t.ItemByNumber(p.ItemA)
		_, okB := t.ItemByNumber(p.ItemB)
		switch {
		case !okA || !okB:
			issues = append(issues, errorf(types.CodePairUnknownItem, field,
				"consistency pair (%d, %d) references an item not in the scale", p.ItemA, p.ItemB))
		case p.ItemA == p.ItemB:
			issues = append(issues, errorf(types.CodePairUnknownItem, field,
				"consistency pair pairs item %d with itself", p.ItemA))
		}
	}
	return issues
}

func ruleSpan(r scale.InterpretationRule) string {
	return scale.ScoreRange{Min: r.MinScore, Max: r.MaxScore}.String()
}

func isIntegral(v float64) bool {
	return v == math.Trunc(v)
}

func fmtScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
