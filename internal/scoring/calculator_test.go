package scoring

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/dotcommander/clinscale/internal/scale"
	"github.com/dotcommander/clinscale/internal/scale/scaletest"
)

func mustCalculate(t *testing.T, c *Calculator, tpl *scale.Template, responses []scale.Response) *ScoreResult {
	t.Helper()
	res, err := c.CalculateScores(tpl, responses)
	if err != nil {
		t.Fatalf("CalculateScores() error = %v", err)
	}
	return res
}

func totalScore(t *testing.T, res *ScoreResult) float64 {
	t.Helper()
	if res.TotalScore == nil {
		t.Fatal("TotalScore is nil")
	}
	return *res.TotalScore
}

func TestCalculateScores_Sum(t *testing.T) {
	s := scaletest.Depression()
	res := mustCalculate(t, NewCalculator(nil), scaletest.Compile(s), scaletest.Uniform(s, "1"))

	if got := totalScore(t, res); got != 21 {
		t.Errorf("TotalScore = %v, want 21", got)
	}
	if res.ValidResponses != 21 {
		t.Errorf("ValidResponses = %d, want 21", res.ValidResponses)
	}
	if len(res.Excluded) != 0 {
		t.Errorf("Excluded = %v, want none", res.Excluded)
	}
}

func TestCalculateScores_EmptyMethodIsSum(t *testing.T) {
	s := scaletest.Likert(3)
	s.Scoring.Method = ""
	res := mustCalculate(t, NewCalculator(nil), scaletest.Compile(s), scaletest.Uniform(s, "2"))
	if got := totalScore(t, res); got != 6 {
		t.Errorf("TotalScore = %v, want 6", got)
	}
}

func TestCalculateScores_ReverseScored(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  float64
	}{
		{"lowest becomes highest", "0", 3},
		{"highest becomes lowest", "3", 0},
		{"middle", "1", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := scaletest.Likert(1)
			s.Items[0].ReverseScored = true
			res := mustCalculate(t, NewCalculator(nil), scaletest.Compile(s), scaletest.Answers("q1", tt.value))

			if got := totalScore(t, res); got != tt.want {
				t.Errorf("TotalScore = %v, want %v", got, tt.want)
			}
			if len(res.ItemScores) != 1 {
				t.Fatalf("ItemScores = %v, want one", res.ItemScores)
			}
			if raw := res.ItemScores[0].Raw; raw != 3-tt.want {
				t.Errorf("Raw = %v, want %v", raw, 3-tt.want)
			}
		})
	}
}

func TestCalculateScores_Monotonic(t *testing.T) {
	s := scaletest.Likert(4)
	tpl := scaletest.Compile(s)
	calc := NewCalculator(nil)

	base := mustCalculate(t, calc, tpl, scaletest.Answers("q1", "1", "q2", "1", "q3", "1", "q4", "1"))
	raised := mustCalculate(t, calc, tpl, scaletest.Answers("q1", "1", "q2", "3", "q3", "1", "q4", "1"))
	if totalScore(t, raised) <= totalScore(t, base) {
		t.Errorf("raising an answer did not raise the total: %v -> %v", totalScore(t, base), totalScore(t, raised))
	}
}

func TestCalculateScores_Idempotent(t *testing.T) {
	s := scaletest.Depression()
	tpl := scaletest.Compile(s)
	calc := NewCalculator(nil)
	responses := scaletest.Answers("q1", "2", "q2", "0", "q3", "3", "q9", "1", "q30", "1")

	first := mustCalculate(t, calc, tpl, responses)
	second := mustCalculate(t, calc, tpl, responses)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated calculation differs:\n%+v\n%+v", first, second)
	}
}

func TestCalculateScores_Exclusions(t *testing.T) {
	s := scaletest.Likert(4)
	s.Items = append(s.Items, scale.Item{ID: "note", Number: 5, Text: "Comments", QuestionType: scale.TypeText})
	tpl := scaletest.Compile(s)

	responses := []scale.Response{
		{ItemID: "q1", Value: "2"},
		{ItemID: "q1", Value: "3"},
		{ItemID: "q2", Value: "9"},
		{ItemID: "q3", WasSkipped: true},
		{ItemID: "q4", Value: "  "},
		{ItemID: "note", Value: "fine"},
		{ItemID: "q99", Value: "1"},
	}
	res := mustCalculate(t, NewCalculator(nil), tpl, responses)
	if got := totalScore(t, res); got != 2 {
		t.Errorf("TotalScore = %v, want 2", got)
	}
	if res.ValidResponses != 1 {
		t.Errorf("ValidResponses = %d, want 1", res.ValidResponses)
	}

	want := []Exclusion{
		{ItemID: "q1", Reason: ReasonDuplicate},
		{ItemID: "q2", Reason: ReasonNoMatch},
		{ItemID: "q3", Reason: ReasonSkipped},
		{ItemID: "q4", Reason: ReasonEmpty},
		{ItemID: "note", Reason: ReasonNotScorable},
		{ItemID: "q99", Reason: ReasonUnknownItem},
	}
	if !reflect.DeepEqual(res.Excluded, want) {
		t.Errorf("Excluded = %+v\nwant %+v", res.Excluded, want)
	}
}

func TestCalculateScores_Numeric(t *testing.T) {
	tests := []struct {
		name    string
		reverse bool
		value   string
		total   float64
		reason  string
	}{
		{"in range", false, "7", 7, ""},
		{"reversed", true, "7", 3, ""},
		{"out of range", false, "11", 0, ReasonOutOfRange},
		{"not a number", false, "seven", 0, ReasonNotNumeric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := scaletest.Likert(0)
			s.Items = []scale.Item{{
				ID: "pain", Number: 1, QuestionType: scale.TypeNumeric,
				ReverseScored: tt.reverse, NumericRange: &scale.ScoreRange{Min: 0, Max: 10},
			}}
			s.ResponseGroups = nil
			res := mustCalculate(t, NewCalculator(nil), scaletest.Compile(s), scaletest.Answers("pain", tt.value))

			if got := totalScore(t, res); got != tt.total {
				t.Errorf("TotalScore = %v, want %v", got, tt.total)
			}
			if tt.reason == "" {
				if len(res.Excluded) != 0 {
					t.Errorf("Excluded = %v, want none", res.Excluded)
				}
				return
			}
			if len(res.Excluded) != 1 || res.Excluded[0].Reason != tt.reason {
				t.Errorf("Excluded = %v, want one with reason %q", res.Excluded, tt.reason)
			}
		})
	}
}

func TestCalculateScores_Weighted(t *testing.T) {
	s := scaletest.Likert(3)
	s.Scoring.Method = scale.MethodWeighted
	g := s.ResponseGroups["freq"]
	g.Weight = scaletest.Float(2)
	s.ResponseGroups["freq"] = g
	s.Items[2].Weight = scaletest.Float(0.5)

	// q1, q2 at group weight 2; q3 at its own weight 0.5.
	res := mustCalculate(t, NewCalculator(nil), scaletest.Compile(s), scaletest.Uniform(s, "2"))
	if got, want := totalScore(t, res), 2*2+2*2+2*0.5; got != want {
		t.Errorf("TotalScore = %v, want %v", got, want)
	}
}

func TestCalculateScores_SumBySubscale(t *testing.T) {
	s := scaletest.Likert(4)
	s.Scoring.Method = scale.MethodSumBySubscale
	s.Subscales = []scale.Subscale{
		{ID: "somatic", Items: []int{1, 2}},
		{ID: "cognitive", Items: []int{3, 4}},
	}
	responses := scaletest.Answers("q1", "1", "q2", "2", "q3", "3")

	t.Run("with total", func(t *testing.T) {
		res := mustCalculate(t, NewCalculator(nil), scaletest.Compile(s), responses)
		want := map[string]float64{"somatic": 3, "cognitive": 3}
		if !reflect.DeepEqual(res.SubscaleScores, want) {
			t.Errorf("SubscaleScores = %v, want %v", res.SubscaleScores, want)
		}
		if got := totalScore(t, res); got != 6 {
			t.Errorf("TotalScore = %v, want 6", got)
		}
	})

	t.Run("without total", func(t *testing.T) {
		noTotal := false
		s.Scoring.HasTotalScore = &noTotal
		res := mustCalculate(t, NewCalculator(nil), scaletest.Compile(s), responses)
		if res.TotalScore != nil {
			t.Errorf("TotalScore = %v, want nil", *res.TotalScore)
		}
		if got := res.SubscaleScores["somatic"]; got != 3 {
			t.Errorf("somatic = %v, want 3", got)
		}
	})
}

func TestCalculateScores_Custom(t *testing.T) {
	hooks := NewHookRegistry()
	double := HookFunc(func(tpl *scale.Template, responses []scale.Response) (HookResult, error) {
		items, _ := Resolve(tpl, responses)
		var sum float64
		for _, is := range items {
			sum += 2 * is.Effective
		}
		return HookResult{TotalScore: &sum}, nil
	})
	broken := HookFunc(func(*scale.Template, []scale.Response) (HookResult, error) {
		return HookResult{}, errors.New("boom")
	})
	if err := hooks.Register("double", double); err != nil {
		t.Fatal(err)
	}
	if err := hooks.Register("broken", broken); err != nil {
		t.Fatal(err)
	}

	s := scaletest.Likert(2)
	s.Scoring.Method = scale.MethodCustom
	calc := NewCalculator(hooks)

	t.Run("registered hook", func(t *testing.T) {
		s.Scoring.CustomHook = "double"
		res := mustCalculate(t, calc, scaletest.Compile(s), scaletest.Uniform(s, "1"))
		if got := totalScore(t, res); got != 4 {
			t.Errorf("TotalScore = %v, want 4", got)
		}
		if res.SubscaleScores == nil {
			t.Error("SubscaleScores is nil, want an empty map")
		}
	})

	t.Run("failing hook", func(t *testing.T) {
		s.Scoring.CustomHook = "broken"
		_, err := calc.CalculateScores(scaletest.Compile(s), scaletest.Uniform(s, "1"))
		if err == nil || !strings.Contains(err.Error(), "boom") {
			t.Errorf("error = %v, want the hook's error", err)
		}
	})

	t.Run("unknown hook", func(t *testing.T) {
		s.Scoring.CustomHook = "missing"
		_, err := calc.CalculateScores(scaletest.Compile(s), scaletest.Uniform(s, "1"))
		if !errors.Is(err, ErrUnknownHook) {
			t.Errorf("error = %v, want ErrUnknownHook", err)
		}
	})

	t.Run("nil registry", func(t *testing.T) {
		s.Scoring.CustomHook = "double"
		_, err := NewCalculator(nil).CalculateScores(scaletest.Compile(s), scaletest.Uniform(s, "1"))
		if !errors.Is(err, ErrUnknownHook) {
			t.Errorf("error = %v, want ErrUnknownHook", err)
		}
	})
}

func TestCalculateScores_UnsupportedMethod(t *testing.T) {
	s := scaletest.Likert(1)
	s.Scoring.Method = "median"
	_, err := NewCalculator(nil).CalculateScores(scaletest.Compile(s), nil)
	if err == nil || !strings.Contains(err.Error(), "median") {
		t.Errorf("error = %v, want it to name the method", err)
	}
}
