package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
	"github.com/dotcommander/clinscale/internal/engine"
	"github.com/dotcommander/clinscale/internal/scale"
	"github.com/dotcommander/clinscale/internal/types"
	"github.com/dotcommander/clinscale/internal/validator"
)

var (
	redStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	yellowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	greenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	boldStyle   = lipgloss.NewStyle().Bold(true)
)

// ConsoleFormatter formats output for console display
type ConsoleFormatter struct {
	quiet     bool
	verbose   bool
	colorize  bool
	celebrate bool
	startTime time.Time
	out       io.Writer
}

// NewConsoleFormatter creates a new ConsoleFormatter writing to stdout.
// Colors and the success animation are enabled only on a terminal.
func NewConsoleFormatter(quiet, verbose bool) *ConsoleFormatter {
	tty := term.IsTerminal(os.Stdout.Fd())
	return &ConsoleFormatter{
		quiet:     quiet,
		verbose:   verbose,
		colorize:  tty,
		celebrate: tty,
		startTime: time.Now(),
		out:       os.Stdout,
	}
}

func (f *ConsoleFormatter) style(s lipgloss.Style, text string) string {
	if !f.colorize {
		return text
	}
	return s.Render(text)
}

// Format prints template validation results
func (f *ConsoleFormatter) Format(batch *validator.BatchResult) error {
	if f.quiet {
		// Only the exit code matters in quiet mode
		return nil
	}

	for _, key := range batch.Order {
		f.printResult(key, batch.Results[key])
	}
	for _, name := range sortedKeys(batch.Failures) {
		fmt.Fprintf(f.out, "%s %s\n", f.style(redStyle, "✗"), name)
		fmt.Fprintf(f.out, "    ✘ %s\n", batch.Failures[name])
	}

	f.printSummary(batch)
	return nil
}

// printResult prints one template, skipping clean templates unless verbose
func (f *ConsoleFormatter) printResult(key string, res *validator.Result) {
	hasIssues := len(res.Errors) > 0 || len(res.Warnings) > 0
	if !hasIssues && !f.verbose {
		return
	}

	status, style := "✓", greenStyle
	if !res.IsValid {
		status, style = "✗", redStyle
	} else if len(res.Warnings) > 0 {
		status, style = "⚠", yellowStyle
	}

	label := key
	if res.File != "" && res.File != key {
		label = fmt.Sprintf("%s %s", key, f.style(dimStyle, "("+res.File+")"))
	}
	fmt.Fprintf(f.out, "%s %s %s\n", f.style(style, status), label,
		f.style(dimStyle, fmt.Sprintf("[%d %s]", res.ValidationScore, res.Tier)))

	for _, is := range res.Errors {
		f.printIssue(is)
	}
	for _, is := range res.Warnings {
		f.printIssue(is)
	}
}

// printIssue prints an issue with severity styling
func (f *ConsoleFormatter) printIssue(is types.Issue) {
	prefix, style := "    ⚠ ", yellowStyle
	if is.IsError() {
		prefix, style = "    ✘ ", redStyle
	}

	code := is.Code
	if is.Field != "" {
		code = fmt.Sprintf("%s %s", is.Code, is.Field)
	}
	fmt.Fprintf(f.out, "%s%s: %s\n", prefix, f.style(style, code), is.Message)
}

// printSummary prints the totals line and the conclusion
func (f *ConsoleFormatter) printSummary(batch *validator.BatchResult) {
	t := batch.Totals
	if t.Templates == 0 {
		fmt.Fprintln(f.out, "No templates found")
		return
	}

	if t.TotalErrors == 0 && t.TotalWarnings == 0 && t.Malformed == 0 {
		msg := fmt.Sprintf("✓ All %d templates valid", t.Templates)
		if f.celebrate && !f.verbose {
			printCelebration(f.out, msg)
			return
		}
		fmt.Fprintln(f.out, f.style(boldStyle.Foreground(lipgloss.Color("10")), msg))
		return
	}

	duration := time.Since(f.startTime)
	fmt.Fprintf(f.out, "\n%d/%d valid, %d errors (%d critical), %d warnings, %d malformed (%v)\n",
		t.Valid, t.Templates, t.TotalErrors, t.CriticalErrors, t.TotalWarnings, t.Malformed,
		duration.Round(time.Millisecond))
}

// FormatReport prints the outcome of one administration
func (f *ConsoleFormatter) FormatReport(r *engine.Report) error {
	if f.quiet {
		return nil
	}

	fmt.Fprintf(f.out, "%s %s\n", f.style(boldStyle, "Template"), r.TemplateID)

	if r.TotalScore != nil {
		line := fmt.Sprintf("Total score: %s", formatNumber(*r.TotalScore))
		if in := r.Interpretation; in != nil {
			if in.Determined {
				line += fmt.Sprintf(" (%s)", in.Label)
			} else {
				line += f.style(yellowStyle, fmt.Sprintf(" (%s, nearest %s)", in.Label, in.NearestRuleID))
			}
		}
		fmt.Fprintln(f.out, line)
	} else {
		fmt.Fprintln(f.out, "Total score: n/a")
	}

	for _, sub := range r.Subscales {
		status := ""
		if !sub.InRange {
			status = f.style(redStyle, " out of range")
		}
		fmt.Fprintf(f.out, "  %s: %s%s\n", sub.SubscaleID, formatNumber(sub.Score), status)
	}

	fmt.Fprintf(f.out, "Completion: %.1f%% (%d valid responses)\n", r.CompletionPercentage, r.ValidResponses)

	for _, a := range r.Alerts {
		subject := "total score"
		if a.ItemID != "" {
			subject = fmt.Sprintf("item %s", a.ItemID)
		}
		fmt.Fprintf(f.out, "%s %s %s (score %s)\n",
			f.style(redStyle, "! ALERT"), subject, a.Condition, formatNumber(a.Score))
	}

	for _, flag := range r.Consistency.Flags {
		fmt.Fprintf(f.out, "%s %s\n", f.style(yellowStyle, "⚠"), flag.Message)
	}

	for _, e := range r.ResponseValidation.Errors {
		fmt.Fprintf(f.out, "%s %s: %s\n", f.style(redStyle, "✘"), e.FieldID, e.Error)
	}

	if f.verbose {
		for _, ex := range r.Excluded {
			fmt.Fprintf(f.out, "%s\n", f.style(dimStyle, fmt.Sprintf("  excluded %s: %s", ex.ItemID, ex.Reason)))
		}
	}
	return nil
}

// FormatResolution prints the option source each item resolved to
func (f *ConsoleFormatter) FormatResolution(t *scale.Template) error {
	if f.quiet {
		return nil
	}
	for _, row := range resolutionRows(t) {
		source := row.source
		if row.source == scale.SourceNone.String() {
			source = f.style(redStyle, source)
		}
		fmt.Fprintf(f.out, "%3d %-12s %-7s %-12s %s\n", row.number, row.key, source, row.group,
			f.style(dimStyle, row.scores))
	}
	return nil
}
