package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/dotcommander/clinscale/internal/engine"
	"github.com/dotcommander/clinscale/internal/outputters"
	"github.com/dotcommander/clinscale/internal/scale"
	"github.com/spf13/cobra"
)

var (
	templatePath  string
	responsesPath string
)

var scoreCmd = &cobra.Command{
	Use:   "score --template FILE --responses FILE",
	Short: "Score a response set against a template",
	Long: `Score validates the template, then runs one administration: response
validation, total and subscale scores, interpretation, clinical alerts and
response consistency flags.

The response file is a JSON or YAML array of {itemId, value} objects with
optional responseTimeMs and wasSkipped fields. Response problems are
reported, not fatal; the command exits non-zero on them unless --fail-on is
critical.`,
	Run: func(cmd *cobra.Command, args []string) {
		failed, err := runScore()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitFunc(1)
			return
		}
		if failed {
			exitFunc(1)
		}
	},
}

func init() {
	scoreCmd.Flags().StringVarP(&templatePath, "template", "t", "", "Template file (required)")
	scoreCmd.Flags().StringVar(&responsesPath, "responses", "", "Response set file (required)")
	_ = scoreCmd.MarkFlagRequired("template")
	_ = scoreCmd.MarkFlagRequired("responses")
	rootCmd.AddCommand(scoreCmd)
}

func runScore() (bool, error) {
	cfg, err := loadConfig()
	if err != nil {
		return false, err
	}

	eng, _, err := newEngine(cfg)
	if err != nil {
		return false, err
	}

	tdoc, err := readDocument(templatePath)
	if err != nil {
		return false, err
	}
	t, res, err := eng.LoadTemplate(tdoc.Data, tdoc.Format)
	if err != nil {
		if errors.Is(err, engine.ErrTemplateInvalid) && res != nil {
			for _, is := range res.Errors {
				fmt.Fprintf(os.Stderr, "  %s %s: %s\n", is.Code, is.Field, is.Message)
			}
		}
		return false, fmt.Errorf("%s: %w", templatePath, err)
	}

	rdoc, err := readDocument(responsesPath)
	if err != nil {
		return false, err
	}
	responses, err := scale.ParseResponses(rdoc.Data, rdoc.Format)
	if err != nil {
		return false, fmt.Errorf("%s: %w", responsesPath, err)
	}
	if cfg.Verbose {
		log.Printf("scoring %d responses against %s", len(responses), t.Scale.Metadata.ID)
	}

	report, err := eng.Administer(t, responses)
	if err != nil {
		return false, err
	}

	if err := outputters.NewOutputter(cfg).FormatReport(report); err != nil {
		return false, fmt.Errorf("error formatting output: %w", err)
	}

	return !report.ResponseValidation.IsValid && cfg.FailOn != "critical", nil
}
