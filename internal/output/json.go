package output

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dotcommander/clinscale/internal/engine"
	"github.com/dotcommander/clinscale/internal/scale"
	"github.com/dotcommander/clinscale/internal/types"
	"github.com/dotcommander/clinscale/internal/validator"
)

// Version is reported in JSON headers. It is set by the cmd package.
var Version = "dev"

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	indent     bool
	outputFile string
	now        func() time.Time
}

// NewJSONFormatter creates a new JSONFormatter. An empty outputFile writes to
// stdout.
func NewJSONFormatter(indent bool, outputFile string) *JSONFormatter {
	return &JSONFormatter{
		indent:     indent,
		outputFile: outputFile,
		now:        time.Now,
	}
}

// JSONReport represents the complete validation report
type JSONReport struct {
	Header   JSONHeader            `json:"header"`
	Summary  validator.BatchTotals `json:"summary"`
	Results  []JSONResult          `json:"results"`
	Failures map[string]string     `json:"failures,omitempty"`
}

// JSONHeader contains report metadata
type JSONHeader struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// JSONResult is one template's validation result
type JSONResult struct {
	Key             string            `json:"key"`
	TemplateID      string            `json:"templateId"`
	File            string            `json:"file,omitempty"`
	IsValid         bool              `json:"isValid"`
	ValidationScore int               `json:"validationScore"`
	Tier            string            `json:"tier"`
	Summary         validator.Summary `json:"summary"`
	Errors          []types.Issue     `json:"errors"`
	Warnings        []types.Issue     `json:"warnings"`
}

// JSONScoreReport wraps an administration report
type JSONScoreReport struct {
	Header JSONHeader     `json:"header"`
	Report *engine.Report `json:"report"`
}

// JSONResolution lists the option source of every item
type JSONResolution struct {
	Header     JSONHeader                        `json:"header"`
	TemplateID string                            `json:"templateId"`
	Items      map[string]*scale.ResolvedOptions `json:"items"`
}

func (f *JSONFormatter) header() JSONHeader {
	return JSONHeader{
		Tool:      "clinscale",
		Version:   Version,
		Timestamp: f.now().Format(time.RFC3339),
	}
}

// Format formats a validation batch as JSON
func (f *JSONFormatter) Format(batch *validator.BatchResult) error {
	report := JSONReport{
		Header:   f.header(),
		Summary:  batch.Totals,
		Results:  make([]JSONResult, 0, len(batch.Order)),
		Failures: batch.Failures,
	}
	for _, key := range batch.Order {
		res := batch.Results[key]
		report.Results = append(report.Results, JSONResult{
			Key:             key,
			TemplateID:      res.TemplateID,
			File:            res.File,
			IsValid:         res.IsValid,
			ValidationScore: res.ValidationScore,
			Tier:            res.Tier,
			Summary:         res.Summary,
			Errors:          res.Errors,
			Warnings:        res.Warnings,
		})
	}
	return f.write(report)
}

// FormatReport formats an administration report as JSON
func (f *JSONFormatter) FormatReport(r *engine.Report) error {
	return f.write(JSONScoreReport{Header: f.header(), Report: r})
}

// FormatResolution formats the option resolution of a template as JSON
func (f *JSONFormatter) FormatResolution(t *scale.Template) error {
	items := make(map[string]*scale.ResolvedOptions, len(t.Scale.Items))
	for i := range t.Scale.Items {
		item := &t.Scale.Items[i]
		items[item.Key()] = t.Options(item)
	}
	return f.write(JSONResolution{Header: f.header(), TemplateID: t.Scale.Metadata.ID, Items: items})
}

func (f *JSONFormatter) write(v any) error {
	var (
		data []byte
		err  error
	)
	if f.indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}
	return writeOrPrint(f.outputFile, append(data, '\n'))
}
