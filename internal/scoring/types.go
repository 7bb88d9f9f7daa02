package scoring

// TierFromScore maps a 0-100 quality score to a letter tier. Template
// validation scores are reported with it.
func TierFromScore(score int) string {
	switch {
	case score >= 85:
		return "A"
	case score >= 70:
		return "B"
	case score >= 50:
		return "C"
	case score >= 30:
		return "D"
	default:
		return "F"
	}
}

// ItemScore is one response resolved to a score.
type ItemScore struct {
	ItemID     string  `json:"itemId"`
	ItemNumber int     `json:"itemNumber"`
	Value      string  `json:"value"`     // response value as submitted
	Raw        float64 `json:"raw"`       // option score before reversal
	Effective  float64 `json:"effective"` // after reverse scoring
	Weight     float64 `json:"weight"`
	GroupID    string  `json:"groupId,omitempty"`
}

// Exclusion records a response that did not contribute to scoring.
type Exclusion struct {
	ItemID string `json:"itemId"`
	Reason string `json:"reason"`
}

// ScoreResult is the output of CalculateScores. TotalScore is nil when the
// template declares no top-level total.
type ScoreResult struct {
	TotalScore     *float64           `json:"totalScore"`
	SubscaleScores map[string]float64 `json:"subscaleScores"`
	ValidResponses int                `json:"validResponses"`
	ItemScores     []ItemScore        `json:"itemScores,omitempty"`
	Excluded       []Exclusion        `json:"excluded,omitempty"`
}
