// Package consistency flags implausible response patterns. Flags are advisory
// for the clinician; they never block scoring.
package consistency

import (
	"github.com/dotcommander/clinscale/internal/scale"
	"github.com/dotcommander/clinscale/internal/scoring"
)

// FlagType names the heuristic that raised a flag.
type FlagType string

const (
	FlagStraightLining    FlagType = "straight_lining"
	FlagPairContradiction FlagType = "item_pair_contradiction"
	FlagSuspiciouslyFast  FlagType = "suspiciously_fast"
)

// Flag is one consistency finding.
type Flag struct {
	Type    FlagType `json:"type"`
	GroupID string   `json:"groupId,omitempty"`
	ItemID  string   `json:"itemId,omitempty"`
	ItemIDs []string `json:"itemIds,omitempty"`
	Message string   `json:"message"`
}

// Result is the outcome of Check.
type Result struct {
	IsConsistent bool   `json:"isConsistent"`
	Flags        []Flag `json:"flags"`
}

// Input is what every heuristic sees: the template, the raw responses and
// their resolved scores.
type Input struct {
	Template  *scale.Template
	Responses []scale.Response
	Scores    []scoring.ItemScore
}

// Heuristic is one independently toggle-able plausibility check.
type Heuristic interface {
	Name() string
	Check(in *Input) []Flag
}

// Options toggles and tunes the built-in heuristics.
type Options struct {
	StraightLining bool
	MinGroupItems  int

	ItemPairs     bool
	PairThreshold float64 // used when a pair declares no maxDifference

	ResponseTime  bool
	MinResponseMs int64   // floor for any item
	MsPerChar     float64 // added per character of item text
}

// DefaultOptions enables every heuristic with conservative thresholds.
func DefaultOptions() Options {
	return Options{
		StraightLining: true,
		MinGroupItems:  5,
		ItemPairs:      true,
		PairThreshold:  2,
		ResponseTime:   true,
		MinResponseMs:  300,
		MsPerChar:      15,
	}
}

// Checker runs the enabled heuristics in a fixed order.
type Checker struct {
	heuristics []Heuristic
}

// NewChecker builds a Checker from opts.
func NewChecker(opts Options) *Checker {
	var hs []Heuristic
	if opts.StraightLining {
		hs = append(hs, &StraightLining{MinItems: opts.MinGroupItems})
	}
	if opts.ItemPairs {
		hs = append(hs, &ItemPairs{Threshold: opts.PairThreshold})
	}
	if opts.ResponseTime {
		hs = append(hs, &ResponseTime{FloorMs: opts.MinResponseMs, MsPerChar: opts.MsPerChar})
	}
	return &Checker{heuristics: hs}
}

// WithHeuristics replaces the heuristic set.
func (c *Checker) WithHeuristics(hs ...Heuristic) *Checker {
	c.heuristics = hs
	return c
}

// Check runs every heuristic and collects their flags.
func (c *Checker) Check(t *scale.Template, responses []scale.Response) Result {
	scores, _ := scoring.Resolve(t, responses)
	in := &Input{Template: t, Responses: responses, Scores: scores}

	res := Result{Flags: []Flag{}}
	for _, h := range c.heuristics {
		res.Flags = append(res.Flags, h.Check(in)...)
	}
	res.IsConsistent = len(res.Flags) == 0
	return res
}
