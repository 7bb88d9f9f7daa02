// Package output renders validation batches, administration reports and
// option resolution as console text, JSON or Markdown.
package output

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/dotcommander/clinscale/internal/scale"
)

// writeOrPrint writes content to path, or to stdout when path is empty.
func writeOrPrint(path string, content []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(content)
		return err
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("error writing to file %s: %w", path, err)
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatNumber drops the fraction from whole scores.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// resolutionRow is one item in a resolution listing.
type resolutionRow struct {
	number int
	key    string
	source string
	group  string
	scores string
}

func resolutionRows(t *scale.Template) []resolutionRow {
	rows := make([]resolutionRow, 0, len(t.Scale.Items))
	for i := range t.Scale.Items {
		item := &t.Scale.Items[i]
		ro := t.Options(item)
		row := resolutionRow{number: item.Number, key: item.Key(), source: scale.SourceNone.String()}
		if ro != nil {
			row.source = ro.Source.String()
			row.group = ro.GroupID
			if len(ro.Options) > 0 {
				row.scores = fmt.Sprintf("%s-%s (%d options)", formatNumber(ro.MinScore), formatNumber(ro.MaxScore), len(ro.Options))
			}
		}
		if row.group == "" {
			row.group = "-"
		}
		rows = append(rows, row)
	}
	return rows
}
