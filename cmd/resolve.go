package cmd

import (
	"fmt"
	"os"

	"github.com/dotcommander/clinscale/internal/outputters"
	"github.com/dotcommander/clinscale/internal/scale"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve --template FILE",
	Short: "Show where each item's response options come from",
	Long: `Resolve prints, for every item, the option set its responses are scored
against: the item's own options, its response group, the template's global
options, or none. The template is not validated first, so resolve also works
on templates validate rejects.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runResolve(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitFunc(1)
		}
	},
}

func init() {
	resolveCmd.Flags().StringVarP(&templatePath, "template", "t", "", "Template file (required)")
	_ = resolveCmd.MarkFlagRequired("template")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	doc, err := readDocument(templatePath)
	if err != nil {
		return err
	}
	s, err := scale.Decode(doc.Data, doc.Format)
	if err != nil {
		return fmt.Errorf("%s: %w", templatePath, err)
	}
	t, err := scale.Compile(s)
	if err != nil {
		return err
	}

	return outputters.NewOutputter(cfg).FormatResolution(t)
}
