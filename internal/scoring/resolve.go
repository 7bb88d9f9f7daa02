package scoring

import (
	"strconv"
	"strings"

	"github.com/dotcommander/clinscale/internal/scale"
)

// Exclusion reasons.
const (
	ReasonUnknownItem = "unknown item"
	ReasonNotScorable = "item is not scored"
	ReasonSkipped     = "skipped"
	ReasonEmpty       = "empty value"
	ReasonDuplicate   = "duplicate response for item"
	ReasonNoOptions   = "no option set resolves for item"
	ReasonNoMatch     = "value matches no option"
	ReasonNotNumeric  = "value is not a number"
	ReasonOutOfRange  = "value outside numericRange"
)

// Resolve maps each response to its item's score. Responses that cannot be
// scored are returned as exclusions in input order; nothing here fails.
func Resolve(t *scale.Template, responses []scale.Response) ([]ItemScore, []Exclusion) {
	scores := make([]ItemScore, 0, len(responses))
	var excluded []Exclusion
	seen := make(map[string]bool, len(responses))

	for _, r := range responses {
		ref := string(r.ItemID)
		item, ok := t.Item(ref)
		if !ok {
			excluded = append(excluded, Exclusion{ItemID: ref, Reason: ReasonUnknownItem})
			continue
		}
		key := item.Key()
		if seen[key] {
			excluded = append(excluded, Exclusion{ItemID: key, Reason: ReasonDuplicate})
			continue
		}
		seen[key] = true

		if !item.QuestionType.IsScorable() {
			excluded = append(excluded, Exclusion{ItemID: key, Reason: ReasonNotScorable})
			continue
		}
		if r.WasSkipped {
			excluded = append(excluded, Exclusion{ItemID: key, Reason: ReasonSkipped})
			continue
		}
		value := strings.TrimSpace(string(r.Value))
		if value == "" {
			excluded = append(excluded, Exclusion{ItemID: key, Reason: ReasonEmpty})
			continue
		}

		is, reason := scoreItem(t, item, value)
		if reason != "" {
			excluded = append(excluded, Exclusion{ItemID: key, Reason: reason})
			continue
		}
		scores = append(scores, is)
	}
	return scores, excluded
}

func scoreItem(t *scale.Template, item *scale.Item, value string) (ItemScore, string) {
	ro := t.Options(item)
	is := ItemScore{
		ItemID:     item.Key(),
		ItemNumber: item.Number,
		Value:      value,
		Weight:     weightFor(t, item, ro),
	}
	if ro != nil {
		is.GroupID = ro.GroupID
	}

	hasOptions := ro != nil && ro.Source != scale.SourceNone
	if hasOptions {
		if opt, ok := ro.Lookup(value); ok {
			is.Raw = opt.Score
			is.Effective = opt.Score
			if item.ReverseScored {
				is.Effective = ro.Reverse(opt.Score)
			}
			return is, ""
		}
	}

	if item.QuestionType != scale.TypeNumeric {
		if !hasOptions {
			return is, ReasonNoOptions
		}
		return is, ReasonNoMatch
	}

	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return is, ReasonNotNumeric
	}
	is.Raw = n
	is.Effective = n
	if r := item.NumericRange; r != nil {
		if n < r.Min || n > r.Max {
			return is, ReasonOutOfRange
		}
		if item.ReverseScored {
			is.Effective = r.Min + r.Max - n
		}
	}
	return is, ""
}

// weightFor resolves item weight > group weight > 1.
func weightFor(t *scale.Template, item *scale.Item, ro *scale.ResolvedOptions) float64 {
	if item.Weight != nil {
		return *item.Weight
	}
	if ro != nil && ro.Source == scale.SourceGroup {
		if g, ok := t.Scale.ResponseGroups[ro.GroupID]; ok && g.Weight != nil {
			return *g.Weight
		}
	}
	return 1
}
