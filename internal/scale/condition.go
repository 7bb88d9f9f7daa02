package scale

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidCondition is wrapped by every alert-condition parse failure.
var ErrInvalidCondition = errors.New("invalid alert condition")

// decimal is the threshold grammar. strconv alone would also take NaN, Inf,
// hex floats and underscores.
var decimal = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// Comparator is the relational operator of an alert condition.
type Comparator int

const (
	CompGTE Comparator = iota + 1
	CompGT
	CompLTE
	CompLT
	CompEQ
)

func (c Comparator) String() string {
	switch c {
	case CompGTE:
		return ">="
	case CompGT:
		return ">"
	case CompLTE:
		return "<="
	case CompLT:
		return "<"
	case CompEQ:
		return "="
	default:
		return "?"
	}
}

// Condition is a parsed alert condition such as "≥3".
type Condition struct {
	Comparator Comparator
	Threshold  float64
	Raw        string
}

// Longest tokens first so ">=" is not read as ">" followed by "=3".
var comparatorTokens = []struct {
	token string
	comp  Comparator
}{
	{">=", CompGTE},
	{"<=", CompLTE},
	{"==", CompEQ},
	{"≥", CompGTE},
	{"≤", CompLTE},
	{">", CompGT},
	{"<", CompLT},
	{"=", CompEQ},
}

// ParseCondition parses a comparator followed by a numeric threshold.
func ParseCondition(raw string) (Condition, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Condition{}, fmt.Errorf("%w: empty", ErrInvalidCondition)
	}
	for _, ct := range comparatorTokens {
		if !strings.HasPrefix(s, ct.token) {
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(s, ct.token))
		if !decimal.MatchString(rest) {
			return Condition{}, fmt.Errorf("%w: %q: threshold %q is not a decimal number", ErrInvalidCondition, raw, rest)
		}
		threshold, err := strconv.ParseFloat(rest, 64)
		if err != nil {
			return Condition{}, fmt.Errorf("%w: %q: threshold %q is not a number", ErrInvalidCondition, raw, rest)
		}
		return Condition{Comparator: ct.comp, Threshold: threshold, Raw: raw}, nil
	}
	return Condition{}, fmt.Errorf("%w: %q: expected one of >=, >, <=, <, =", ErrInvalidCondition, raw)
}

// Matches reports whether score satisfies the condition.
func (c Condition) Matches(score float64) bool {
	switch c.Comparator {
	case CompGTE:
		return score >= c.Threshold
	case CompGT:
		return score > c.Threshold
	case CompLTE:
		return score <= c.Threshold
	case CompLT:
		return score < c.Threshold
	case CompEQ:
		return score == c.Threshold
	}
	return false
}

func (c Condition) String() string {
	return c.Comparator.String() + formatScore(c.Threshold)
}
