package alerts

import (
	"testing"

	"github.com/dotcommander/clinscale/internal/scale/scaletest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectAlerts_ItemCondition(t *testing.T) {
	s := scaletest.Likert(3)
	s.Items[1].AlertTrigger = true
	s.Items[1].AlertCondition = "≥3"
	tpl := scaletest.Compile(s)

	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"meets threshold", "3", 1},
		{"below threshold", "2", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectAlerts(tpl, scaletest.Answers("q1", "3", "q2", tt.value, "q3", "3"), nil)
			require.NoError(t, err)
			require.Len(t, got, tt.want)
			if tt.want == 0 {
				return
			}
			assert.Equal(t, Alert{
				Scope:      ScopeItem,
				ItemID:     "q2",
				ItemNumber: 2,
				ItemText:   "Item 2",
				Condition:  "≥3",
				Value:      tt.value,
				Score:      3,
			}, got[0])
		})
	}
}

func TestDetectAlerts_UsesReversedScore(t *testing.T) {
	s := scaletest.Likert(1)
	s.Items[0].ReverseScored = true
	s.Items[0].AlertTrigger = true
	s.Items[0].AlertCondition = ">=3"
	tpl := scaletest.Compile(s)

	got, err := DetectAlerts(tpl, scaletest.Answers("q1", "0"), nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3.0, got[0].Score)

	got, err = DetectAlerts(tpl, scaletest.Answers("q1", "3"), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDetectAlerts_ConditionWithoutTrigger(t *testing.T) {
	s := scaletest.Likert(1)
	s.Items[0].AlertCondition = ">=0"
	got, err := DetectAlerts(scaletest.Compile(s), scaletest.Answers("q1", "3"), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDetectAlerts_ScaleCondition(t *testing.T) {
	s := scaletest.Likert(2)
	s.Scoring.AlertCondition = ">= 4"
	tpl := scaletest.Compile(s)

	total := 5.0
	got, err := DetectAlerts(tpl, nil, &total)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ScopeScale, got[0].Scope)
	assert.Equal(t, 5.0, got[0].Score)

	low := 3.0
	got, err = DetectAlerts(tpl, nil, &low)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = DetectAlerts(tpl, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDetectAlerts_InvalidCondition(t *testing.T) {
	s := scaletest.Likert(1)
	s.Items[0].AlertTrigger = true
	s.Items[0].AlertCondition = "about 3"

	_, err := DetectAlerts(scaletest.Compile(s), scaletest.Answers("q1", "3"), nil)
	assert.ErrorContains(t, err, "alert configuration")
}
