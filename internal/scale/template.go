package scale

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// OptionSource records where an item's response options came from.
type OptionSource int

const (
	SourceNone OptionSource = iota
	SourceItem
	SourceGroup
	SourceGlobal
)

func (s OptionSource) String() string {
	switch s {
	case SourceItem:
		return "item"
	case SourceGroup:
		return "group"
	case SourceGlobal:
		return "global"
	default:
		return "none"
	}
}

// MarshalText renders the source by name in JSON reports.
func (s OptionSource) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ResolvedOptions is the option set an item's responses are scored against.
type ResolvedOptions struct {
	Source   OptionSource     `json:"source"`
	GroupID  string           `json:"groupId,omitempty"`
	Options  []ResponseOption `json:"options"`
	MinScore float64          `json:"minScore"`
	MaxScore float64          `json:"maxScore"`
	byValue  map[string]int
}

// Lookup finds the option whose value equals value.
func (r *ResolvedOptions) Lookup(value string) (ResponseOption, bool) {
	if r == nil {
		return ResponseOption{}, false
	}
	i, ok := r.byValue[value]
	if !ok {
		return ResponseOption{}, false
	}
	return r.Options[i], true
}

// Reverse maps a raw score onto the opposite end of the option score span:
// min+max-raw. Applying it twice yields the raw score.
func (r *ResolvedOptions) Reverse(raw float64) float64 {
	return r.MinScore + r.MaxScore - raw
}

// Template is a compiled Scale: option sources resolved once per item, alert
// conditions parsed once, interpretation rules sorted once. It is read-only
// and safe for concurrent use.
type Template struct {
	Scale *Scale

	options        map[string]*ResolvedOptions
	itemsByKey     map[string]*Item
	itemsByNumber  map[int]*Item
	groupMembers   map[string][]int
	rules          []InterpretationRule
	conditions     map[string]Condition
	totalCondition *Condition
	conditionErrs  []error
}

// Compile runs the resolution pass over s. Problems in the template (missing
// option sources, unparseable conditions) are recorded rather than returned;
// the validator reports them and ConditionErr surfaces the latter.
func Compile(s *Scale) (*Template, error) {
	if s == nil {
		return nil, errors.New("compile: nil scale")
	}
	t := &Template{
		Scale:         s,
		options:       make(map[string]*ResolvedOptions, len(s.Items)),
		itemsByKey:    make(map[string]*Item, len(s.Items)*2),
		itemsByNumber: make(map[int]*Item, len(s.Items)),
		groupMembers:  make(map[string][]int),
		conditions:    make(map[string]Condition),
	}

	// Ids are registered before numbers, so an id that reads like another
	// item's number resolves to the item carrying the id.
	for i := range s.Items {
		key := s.Items[i].Key()
		if _, dup := t.itemsByKey[key]; !dup {
			t.itemsByKey[key] = &s.Items[i]
		}
	}

	membership := groupMembership(s)
	for i := range s.Items {
		item := &s.Items[i]
		key := item.Key()
		num := strconv.Itoa(item.Number)
		if _, dup := t.itemsByKey[num]; !dup {
			t.itemsByKey[num] = item
		}
		if _, dup := t.itemsByNumber[item.Number]; !dup {
			t.itemsByNumber[item.Number] = item
		}

		ro := resolve(s, item, membership)
		t.options[key] = ro
		if ro.Source == SourceGroup {
			t.groupMembers[ro.GroupID] = append(t.groupMembers[ro.GroupID], item.Number)
		}

		if item.AlertTrigger && item.AlertCondition != "" {
			cond, err := ParseCondition(item.AlertCondition)
			if err != nil {
				t.conditionErrs = append(t.conditionErrs, fmt.Errorf("item %s: %w", key, err))
			} else {
				t.conditions[key] = cond
			}
		}
	}

	if s.Scoring.AlertCondition != "" {
		cond, err := ParseCondition(s.Scoring.AlertCondition)
		if err != nil {
			t.conditionErrs = append(t.conditionErrs, fmt.Errorf("scoring.alertCondition: %w", err))
		} else {
			t.totalCondition = &cond
		}
	}

	t.rules = append([]InterpretationRule(nil), s.Interpretation.Rules...)
	sort.SliceStable(t.rules, func(i, j int) bool {
		if t.rules[i].MinScore != t.rules[j].MinScore {
			return t.rules[i].MinScore < t.rules[j].MinScore
		}
		return t.rules[i].MaxScore < t.rules[j].MaxScore
	})
	return t, nil
}

// groupMembership maps item numbers to the group listing them in its items
// array. Groups are visited in id order so the mapping is deterministic.
func groupMembership(s *Scale) map[int]string {
	ids := make([]string, 0, len(s.ResponseGroups))
	for id := range s.ResponseGroups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make(map[int]string)
	for _, id := range ids {
		for _, n := range s.ResponseGroups[id].Items {
			if _, taken := out[n]; !taken {
				out[n] = id
			}
		}
	}
	return out
}

// resolve applies the precedence item options > response group > global
// options.
func resolve(s *Scale, item *Item, membership map[int]string) *ResolvedOptions {
	if len(item.ResponseOptions) > 0 {
		return newResolved(SourceItem, "", item.ResponseOptions)
	}
	groupID := item.ResponseGroup
	if groupID == "" {
		groupID = membership[item.Number]
	}
	if groupID != "" {
		if g, ok := s.ResponseGroups[groupID]; ok && len(g.Options) > 0 {
			return newResolved(SourceGroup, groupID, g.Options)
		}
	}
	if len(s.ResponseOptions) > 0 {
		return newResolved(SourceGlobal, "", s.ResponseOptions)
	}
	return &ResolvedOptions{Source: SourceNone, byValue: map[string]int{}}
}

func newResolved(src OptionSource, groupID string, opts []ResponseOption) *ResolvedOptions {
	sorted := append([]ResponseOption(nil), opts...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].OrderIndex < sorted[j].OrderIndex })
	ro := &ResolvedOptions{
		Source:  src,
		GroupID: groupID,
		Options: sorted,
		byValue: make(map[string]int, len(sorted)),
	}
	for i, o := range sorted {
		if _, dup := ro.byValue[string(o.Value)]; !dup {
			ro.byValue[string(o.Value)] = i
		}
		if i == 0 || o.Score < ro.MinScore {
			ro.MinScore = o.Score
		}
		if i == 0 || o.Score > ro.MaxScore {
			ro.MaxScore = o.Score
		}
	}
	return ro
}

// Item finds an item by id or by its number rendered as a string.
func (t *Template) Item(ref string) (*Item, bool) {
	item, ok := t.itemsByKey[ref]
	return item, ok
}

// ItemByNumber finds an item by its number.
func (t *Template) ItemByNumber(n int) (*Item, bool) {
	item, ok := t.itemsByNumber[n]
	return item, ok
}

// Options returns the resolved option set for an item.
func (t *Template) Options(item *Item) *ResolvedOptions {
	return t.options[item.Key()]
}

// GroupMembers returns the item numbers whose options resolve to groupID, in
// template order.
func (t *Template) GroupMembers(groupID string) []int {
	return t.groupMembers[groupID]
}

// GroupIDs lists groups that at least one item resolves to, sorted.
func (t *Template) GroupIDs() []string {
	ids := make([]string, 0, len(t.groupMembers))
	for id := range t.groupMembers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Rules returns the interpretation rules sorted by minScore.
func (t *Template) Rules() []InterpretationRule {
	return t.rules
}

// Condition returns the parsed alert condition for an item.
func (t *Template) Condition(item *Item) (Condition, bool) {
	c, ok := t.conditions[item.Key()]
	return c, ok
}

// TotalCondition returns the scale-level alert cutoff, if any.
func (t *Template) TotalCondition() (Condition, bool) {
	if t.totalCondition == nil {
		return Condition{}, false
	}
	return *t.totalCondition, true
}

// ConditionErr joins every alert condition that failed to parse.
func (t *Template) ConditionErr() error {
	return errors.Join(t.conditionErrs...)
}

// ScorableItems returns the items that collect a scored response.
func (t *Template) ScorableItems() []*Item {
	var out []*Item
	for i := range t.Scale.Items {
		if t.Scale.Items[i].QuestionType.IsScorable() {
			out = append(out, &t.Scale.Items[i])
		}
	}
	return out
}
