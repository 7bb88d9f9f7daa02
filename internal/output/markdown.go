package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/dotcommander/clinscale/internal/engine"
	"github.com/dotcommander/clinscale/internal/scale"
	"github.com/dotcommander/clinscale/internal/types"
	"github.com/dotcommander/clinscale/internal/validator"
)

// MarkdownFormatter formats output as Markdown
type MarkdownFormatter struct {
	verbose    bool
	outputFile string
	now        func() time.Time
}

// NewMarkdownFormatter creates a new MarkdownFormatter
func NewMarkdownFormatter(verbose bool, outputFile string) *MarkdownFormatter {
	return &MarkdownFormatter{
		verbose:    verbose,
		outputFile: outputFile,
		now:        time.Now,
	}
}

// Format formats a validation batch as Markdown
func (f *MarkdownFormatter) Format(batch *validator.BatchResult) error {
	var b strings.Builder
	t := batch.Totals

	b.WriteString("# Clinscale Validation Report\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n\n", f.now().Format("2006-01-02 15:04:05"))

	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Count |\n")
	b.WriteString("|--------|-------|\n")
	fmt.Fprintf(&b, "| Templates | %d |\n", t.Templates)
	fmt.Fprintf(&b, "| Valid | %d |\n", t.Valid)
	fmt.Fprintf(&b, "| Malformed | %d |\n", t.Malformed)
	fmt.Fprintf(&b, "| Errors | %d |\n", t.TotalErrors)
	fmt.Fprintf(&b, "| Critical | %d |\n", t.CriticalErrors)
	fmt.Fprintf(&b, "| Warnings | %d |\n", t.TotalWarnings)
	b.WriteString("\n")

	b.WriteString("## Detailed Results\n\n")
	if t.Templates == 0 {
		b.WriteString("*No templates found to validate.*\n\n")
	}

	for _, key := range batch.Order {
		res := batch.Results[key]
		if !f.verbose && len(res.Errors) == 0 && len(res.Warnings) == 0 {
			continue
		}

		fmt.Fprintf(&b, "### %s\n\n", key)
		fmt.Fprintf(&b, "Status: %s\n\n", getStatusEmoji(res.IsValid))
		if res.File != "" {
			fmt.Fprintf(&b, "File: `%s`\n\n", res.File)
		}
		fmt.Fprintf(&b, "Score: %d (tier %s)\n\n", res.ValidationScore, res.Tier)

		writeIssues(&b, "Errors", res.Errors)
		writeIssues(&b, "Warnings", res.Warnings)
	}

	if len(batch.Failures) > 0 {
		b.WriteString("## Malformed Documents\n\n")
		for _, name := range sortedKeys(batch.Failures) {
			fmt.Fprintf(&b, "- **%s** - %s\n", name, batch.Failures[name])
		}
		b.WriteString("\n")
	}

	b.WriteString("## Conclusion\n\n")
	if t.Valid == t.Templates {
		b.WriteString("✓ All templates passed validation!\n")
	} else {
		fmt.Fprintf(&b, "✗ %d templates failed validation\n", t.Templates-t.Valid)
	}

	return writeOrPrint(f.outputFile, []byte(b.String()))
}

func writeIssues(b *strings.Builder, title string, issues []types.Issue) {
	if len(issues) == 0 {
		return
	}
	fmt.Fprintf(b, "#### %s\n\n", title)
	for _, is := range issues {
		fmt.Fprintf(b, "- `%s` %s", is.Code, is.Message)
		if is.Field != "" {
			fmt.Fprintf(b, " (`%s`)", is.Field)
		}
		if is.Severity == types.SeverityCritical {
			b.WriteString(" **critical**")
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// FormatReport formats an administration report as Markdown
func (f *MarkdownFormatter) FormatReport(r *engine.Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s Administration Report\n\n", r.TemplateID)
	fmt.Fprintf(&b, "**Generated:** %s\n\n", f.now().Format("2006-01-02 15:04:05"))

	b.WriteString("## Scores\n\n")
	b.WriteString("| Scale | Score | Interpretation |\n")
	b.WriteString("|-------|-------|----------------|\n")
	if r.TotalScore != nil {
		label := ""
		if r.Interpretation != nil {
			label = r.Interpretation.Label
		}
		fmt.Fprintf(&b, "| Total | %s | %s |\n", formatNumber(*r.TotalScore), label)
	}
	for _, sub := range r.Subscales {
		label := "in range"
		if !sub.InRange {
			label = "out of range"
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", sub.SubscaleID, formatNumber(sub.Score), label)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "**Completion:** %.1f%% (%d valid responses)\n\n", r.CompletionPercentage, r.ValidResponses)

	if len(r.Alerts) > 0 {
		b.WriteString("## Alerts\n\n")
		for _, a := range r.Alerts {
			if a.ItemID != "" {
				fmt.Fprintf(&b, "- 🚨 item `%s` (%s) %s\n", a.ItemID, a.Value, a.Condition)
			} else {
				fmt.Fprintf(&b, "- 🚨 total score %s %s\n", formatNumber(a.Score), a.Condition)
			}
		}
		b.WriteString("\n")
	}

	if len(r.Consistency.Flags) > 0 {
		b.WriteString("## Consistency\n\n")
		for _, flag := range r.Consistency.Flags {
			fmt.Fprintf(&b, "- `%s` %s\n", flag.Type, flag.Message)
		}
		b.WriteString("\n")
	}

	if len(r.ResponseValidation.Errors) > 0 {
		b.WriteString("## Response Errors\n\n")
		for _, e := range r.ResponseValidation.Errors {
			fmt.Fprintf(&b, "- **%s** - %s\n", e.FieldID, e.Error)
		}
		b.WriteString("\n")
	}

	return writeOrPrint(f.outputFile, []byte(b.String()))
}

// FormatResolution formats the option resolution of a template as a table
func (f *MarkdownFormatter) FormatResolution(t *scale.Template) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s Option Sources\n\n", t.Scale.Metadata.ID)
	b.WriteString("| # | Item | Source | Group | Scores |\n")
	b.WriteString("|---|------|--------|-------|--------|\n")
	for _, row := range resolutionRows(t) {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n", row.number, row.key, row.source, row.group, row.scores)
	}
	return writeOrPrint(f.outputFile, []byte(b.String()))
}

// getStatusEmoji returns an emoji for the status
func getStatusEmoji(success bool) string {
	if success {
		return "✅"
	}
	return "❌"
}
