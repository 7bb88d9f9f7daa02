package baseline

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dotcommander/clinscale/internal/types"
	"github.com/dotcommander/clinscale/internal/validator"
)

// DefaultPath is where validate --create-baseline writes when no path is given.
const DefaultPath = ".clinscale-baseline.json"

// Baseline represents a snapshot of accepted template issues that should be
// ignored on later runs
type Baseline struct {
	Version      string   `json:"version"`
	CreatedAt    string   `json:"created_at"`
	Fingerprints []string `json:"fingerprints"`
	index        map[string]bool // For fast lookup
}

// CreateBaseline creates a new baseline from a list of issues
func CreateBaseline(issues []types.Issue) *Baseline {
	fingerprints := make([]string, 0, len(issues))
	index := make(map[string]bool)

	for _, issue := range issues {
		fp := fingerprint(issue)
		if !index[fp] {
			fingerprints = append(fingerprints, fp)
			index[fp] = true
		}
	}

	// Sort for deterministic output
	sort.Strings(fingerprints)

	return &Baseline{
		Version:      "1.0",
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
		Fingerprints: fingerprints,
		index:        index,
	}
}

// FromBatch creates a baseline from every issue in a batch.
func FromBatch(batch *validator.BatchResult) *Baseline {
	var issues []types.Issue
	for _, key := range batch.Order {
		res := batch.Results[key]
		issues = append(issues, res.Errors...)
		issues = append(issues, res.Warnings...)
	}
	return CreateBaseline(issues)
}

// LoadBaseline loads a baseline from a JSON file
func LoadBaseline(path string) (*Baseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline file: %w", err)
	}

	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse baseline file: %w", err)
	}

	b.index = make(map[string]bool, len(b.Fingerprints))
	for _, fp := range b.Fingerprints {
		b.index[fp] = true
	}

	return &b, nil
}

// SaveBaseline saves the baseline to a JSON file
func (b *Baseline) SaveBaseline(path string) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal baseline: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write baseline file: %w", err)
	}

	return nil
}

// IsKnown checks if an issue is in the baseline
func (b *Baseline) IsKnown(issue types.Issue) bool {
	if b == nil || b.index == nil {
		return false
	}
	return b.index[fingerprint(issue)]
}

// Filter removes known issues from every result in batch and recounts it.
// It returns the number of errors and warnings suppressed.
func (b *Baseline) Filter(batch *validator.BatchResult) (errorsIgnored, warningsIgnored int) {
	if b == nil {
		return 0, 0
	}
	for _, key := range batch.Order {
		res := batch.Results[key]
		var dropped int
		res.Errors, dropped = b.keepUnknown(res.Errors)
		errorsIgnored += dropped
		res.Warnings, dropped = b.keepUnknown(res.Warnings)
		warningsIgnored += dropped
		res.Recount()
	}
	batch.Recount()
	return errorsIgnored, warningsIgnored
}

func (b *Baseline) keepUnknown(issues []types.Issue) ([]types.Issue, int) {
	kept := make([]types.Issue, 0, len(issues))
	for _, is := range issues {
		if !b.IsKnown(is) {
			kept = append(kept, is)
		}
	}
	return kept, len(issues) - len(kept)
}

// fingerprint creates a stable hash of an issue for comparison
// Uses: file path + code + normalized message pattern
func fingerprint(issue types.Issue) string {
	msg := normalizeMessage(issue.Message)

	data := fmt.Sprintf("%s|%s|%s", issue.File, issue.Code, msg)

	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

var (
	doubleQuoted = regexp.MustCompile(`"[^"]+"`)
	singleQuoted = regexp.MustCompile(`(^|\s)'([^']+)'(\s|$)`)
	numbers      = regexp.MustCompile(`\b\d+(\.\d+)?\b`)
)

// normalizeMessage normalizes messages to create stable patterns.
// Replaces specific values with placeholders to match similar issues
func normalizeMessage(msg string) string {
	msg = doubleQuoted.ReplaceAllString(msg, `"*"`)

	// Match only when surrounded by whitespace/start/end to avoid contractions
	msg = singleQuoted.ReplaceAllString(msg, `$1'*'$3`)

	msg = numbers.ReplaceAllString(msg, `N`)

	msg = strings.Join(strings.Fields(msg), " ")

	return msg
}
