package consistency

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/dotcommander/clinscale/internal/scale"
	"github.com/dotcommander/clinscale/internal/scoring"
)

// StraightLining flags a response group of at least MinItems items whose
// answered items all carry the same value.
type StraightLining struct {
	MinItems int
}

func (h *StraightLining) Name() string { return "straight-lining" }

func (h *StraightLining) Check(in *Input) []Flag {
	minItems := h.MinItems
	if minItems < 2 {
		minItems = 2
	}
	byGroup := make(map[string][]scoring.ItemScore)
	for _, is := range in.Scores {
		if is.GroupID != "" {
			byGroup[is.GroupID] = append(byGroup[is.GroupID], is)
		}
	}

	var flags []Flag
	for _, id := range in.Template.GroupIDs() {
		if len(in.Template.GroupMembers(id)) < minItems {
			continue
		}
		answered := byGroup[id]
		if len(answered) < minItems {
			continue
		}
		same := true
		for _, is := range answered[1:] {
			if is.Value != answered[0].Value {
				same = false
				break
			}
		}
		if same {
			flags = append(flags, Flag{
				Type:    FlagStraightLining,
				GroupID: id,
				Message: fmt.Sprintf("all %d answered items in group %q have value %q", len(answered), id, answered[0].Value),
			})
		}
	}
	return flags
}

// ItemPairs flags declared item pairs whose resolved scores diverge by more
// than the pair's maxDifference (or Threshold). For inverse pairs item B is
// reflected across its option span or numericRange before comparing.
type ItemPairs struct {
	Threshold float64
}

func (h *ItemPairs) Name() string { return "item-pairs" }

func (h *ItemPairs) Check(in *Input) []Flag {
	t := in.Template
	if len(t.Scale.ConsistencyPairs) == 0 {
		return nil
	}
	byNumber := make(map[int]scoring.ItemScore, len(in.Scores))
	for _, is := range in.Scores {
		byNumber[is.ItemNumber] = is
	}

	var flags []Flag
	for _, p := range t.Scale.ConsistencyPairs {
		a, okA := byNumber[p.ItemA]
		b, okB := byNumber[p.ItemB]
		if !okA || !okB {
			continue
		}
		bScore := b.Effective
		if p.Inverse {
			item, ok := t.ItemByNumber(p.ItemB)
			if !ok {
				continue
			}
			if bScore, ok = reflectScore(t, item, b.Effective); !ok {
				continue
			}
		}
		limit := h.Threshold
		if p.MaxDifference != nil {
			limit = *p.MaxDifference
		}
		if diff := math.Abs(a.Effective - bScore); diff > limit {
			flags = append(flags, Flag{
				Type:    FlagPairContradiction,
				ItemIDs: []string{a.ItemID, b.ItemID},
				Message: fmt.Sprintf("items %d and %d differ by %g, more than the expected %g", p.ItemA, p.ItemB, diff, limit),
			})
		}
	}
	return flags
}

// reflectScore mirrors score across the item's option span, or across its
// numericRange when it has no options. Items with neither cannot be reflected.
func reflectScore(t *scale.Template, item *scale.Item, score float64) (float64, bool) {
	if ro := t.Options(item); ro != nil && ro.Source != scale.SourceNone {
		return ro.Reverse(score), true
	}
	if r := item.NumericRange; r != nil {
		return r.Min + r.Max - score, true
	}
	return 0, false
}

// ResponseTime flags answers given faster than the item text could be read:
// below FloorMs plus MsPerChar for each character of the item text.
type ResponseTime struct {
	FloorMs   int64
	MsPerChar float64
}

func (h *ResponseTime) Name() string { return "response-time" }

func (h *ResponseTime) Check(in *Input) []Flag {
	var flags []Flag
	seen := make(map[string]bool)
	for _, r := range in.Responses {
		if r.ResponseTimeMs == nil || r.WasSkipped {
			continue
		}
		item, ok := in.Template.Item(string(r.ItemID))
		if !ok || item.QuestionType.IsPresentational() || seen[item.Key()] {
			continue
		}
		seen[item.Key()] = true

		floor := float64(h.FloorMs) + h.MsPerChar*float64(utf8.RuneCountInString(item.Text))
		if float64(*r.ResponseTimeMs) < floor {
			flags = append(flags, Flag{
				Type:    FlagSuspiciouslyFast,
				ItemID:  item.Key(),
				Message: fmt.Sprintf("answered in %dms, below the %.0fms plausible minimum", *r.ResponseTimeMs, floor),
			})
		}
	}
	return flags
}
