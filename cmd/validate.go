package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/dotcommander/clinscale/internal/baseline"
	"github.com/dotcommander/clinscale/internal/config"
	"github.com/dotcommander/clinscale/internal/discovery"
	"github.com/dotcommander/clinscale/internal/git"
	"github.com/dotcommander/clinscale/internal/outputters"
	"github.com/dotcommander/clinscale/internal/validator"
	"github.com/spf13/cobra"
)

var (
	baselinePath   string
	useBaseline    bool
	createBaseline bool
	stagedOnly     bool
	changedOnly    bool
)

var validateCmd = &cobra.Command{
	Use:   "validate [paths...]",
	Short: "Validate scale templates",
	Long: `Validate checks scale templates for structural and clinical consistency:
required fields, schema types, score and subscale ranges, interpretation
coverage, response option sources, alert conditions and scoring methods.

Without arguments every template under the root is validated. Arguments may
be template files or directories to search.

Accepted issues can be recorded with --create-baseline and suppressed on later
runs with --baseline.`,
	Run: func(cmd *cobra.Command, args []string) {
		failed, err := runValidate(args)
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
	validateCmd.Flags().StringVar(&baselinePath, "baseline-path", "", "Baseline file (default "+baseline.DefaultPath+" under the root)")
	validateCmd.Flags().BoolVar(&useBaseline, "baseline", false, "Suppress issues recorded in the baseline file")
	validateCmd.Flags().BoolVar(&createBaseline, "create-baseline", false, "Record all current issues in the baseline file and exit 0")
	validateCmd.Flags().BoolVar(&stagedOnly, "staged", false, "Only validate templates staged in git")
	validateCmd.Flags().BoolVar(&changedOnly, "changed", false, "Only validate templates with uncommitted git changes")
	rootCmd.AddCommand(validateCmd)
}

// runValidate validates the selected templates and reports whether the
// configured fail-on level was reached.
func runValidate(args []string) (bool, error) {
	cfg, err := loadConfig()
	if err != nil {
		return false, err
	}

	docs, err := collectDocuments(cfg, args)
	if err != nil {
		return false, err
	}
	if cfg.Verbose {
		log.Printf("validating %d templates", len(docs))
	}

	_, v, err := newEngine(cfg)
	if err != nil {
		return false, err
	}
	batch := v.ValidateTemplates(docs, cfg.Concurrency)

	baselineFile := resolveBaselinePath(cfg)
	if createBaseline {
		b := baseline.FromBatch(batch)
		if err := b.SaveBaseline(baselineFile); err != nil {
			return false, fmt.Errorf("failed to save baseline: %w", err)
		}
		if !cfg.Quiet {
			fmt.Fprintf(os.Stderr, "Baseline created: %s (%d issues)\n", baselineFile, len(b.Fingerprints))
		}
		return false, nil
	}

	var errorsIgnored, warningsIgnored int
	if useBaseline || cfg.Baseline != "" {
		b, err := baseline.LoadBaseline(baselineFile)
		if err != nil {
			if !cfg.Quiet {
				fmt.Fprintf(os.Stderr, "Warning: Failed to load baseline: %v\n", err)
			}
		} else {
			errorsIgnored, warningsIgnored = b.Filter(batch)
		}
	}

	if err := outputters.NewOutputter(cfg).Format(batch); err != nil {
		return false, fmt.Errorf("error formatting output: %w", err)
	}

	if ignored := errorsIgnored + warningsIgnored; ignored > 0 && !cfg.Quiet {
		fmt.Fprintf(os.Stderr, "%d baseline issues ignored (%d errors, %d warnings)\n",
			ignored, errorsIgnored, warningsIgnored)
	}

	return shouldFail(batch.Totals, cfg.FailOn), nil
}

// collectDocuments reads the templates named by args, or every template
// under the configured root when args is empty. Directory arguments are
// searched; file arguments are read as given.
func collectDocuments(cfg *config.Config, args []string) ([]validator.Document, error) {
	if stagedOnly || changedOnly {
		return gitDocuments(cfg)
	}
	if len(args) == 0 {
		args = []string{cfg.Root}
	}

	var docs []validator.Document
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if info.IsDir() {
			files, err := discovery.NewFileDiscovery(arg, cfg.FollowSymlinks, cfg.Exclude...).DiscoverTemplates()
			if err != nil {
				return nil, err
			}
			for _, f := range files {
				docs = append(docs, validator.Document{Name: f.RelPath, Data: f.Contents, Format: f.Format()})
			}
			continue
		}

		doc, err := readDocument(arg)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// gitDocuments reads the templates git reports as staged or changed.
func gitDocuments(cfg *config.Config) ([]validator.Document, error) {
	var (
		paths []string
		err   error
	)
	if stagedOnly {
		paths, err = git.StagedTemplates(cfg.Root)
	} else {
		paths, err = git.ChangedTemplates(cfg.Root)
	}
	if err != nil {
		return nil, err
	}

	docs := make([]validator.Document, 0, len(paths))
	for _, p := range paths {
		doc, err := readDocument(p)
		if err != nil {
			return nil, err
		}
		if rel, err := filepath.Rel(cfg.Root, p); err == nil {
			doc.Name = filepath.ToSlash(rel)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// readDocument reads one template or response file after checking it is a
// readable, non-empty text file.
func readDocument(path string) (validator.Document, error) {
	absPath, err := discovery.ValidateFilePath(path)
	if err != nil {
		return validator.Document{}, err
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return validator.Document{}, fmt.Errorf("error reading %s: %w", path, err)
	}
	return validator.Document{
		Name:   filepath.ToSlash(path),
		Data:   data,
		Format: discovery.File{Path: path}.Format(),
	}, nil
}

// resolveBaselinePath picks --baseline-path, then the configured baseline,
// then the default file. Relative paths resolve against the root.
func resolveBaselinePath(cfg *config.Config) string {
	path := baselinePath
	if path == "" {
		path = cfg.Baseline
	}
	if path == "" {
		path = baseline.DefaultPath
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.Root, path)
	}
	return path
}

// shouldFail reports whether totals reach the fail-on level. Malformed
// documents always fail.
func shouldFail(t validator.BatchTotals, failOn string) bool {
	if t.Malformed > 0 {
		return true
	}
	switch failOn {
	case "critical":
		return t.CriticalErrors > 0
	case "warning":
		return t.TotalErrors > 0 || t.TotalWarnings > 0
	default:
		return t.TotalErrors > 0
	}
}
