package outputters

import (
	"fmt"

	"github.com/dotcommander/clinscale/internal/config"
	"github.com/dotcommander/clinscale/internal/engine"
	"github.com/dotcommander/clinscale/internal/output"
	"github.com/dotcommander/clinscale/internal/scale"
	"github.com/dotcommander/clinscale/internal/validator"
)

// Formatter renders every result kind the CLI produces.
type Formatter interface {
	Format(batch *validator.BatchResult) error
	FormatReport(r *engine.Report) error
	FormatResolution(t *scale.Template) error
}

// FormatterFactory creates a Formatter for a format name.
type FormatterFactory interface {
	CreateFormatter(format string) (Formatter, error)
}

// DefaultFormatterFactory builds the output package formatters from config.
type DefaultFormatterFactory struct {
	config *config.Config
}

// CreateFormatter returns the formatter for console, json or markdown.
func (f *DefaultFormatterFactory) CreateFormatter(format string) (Formatter, error) {
	switch format {
	case "console":
		return output.NewConsoleFormatter(f.config.Quiet, f.config.Verbose), nil
	case "json":
		return output.NewJSONFormatter(true, f.config.Output), nil
	case "markdown":
		return output.NewMarkdownFormatter(f.config.Verbose, f.config.Output), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// Outputter handles output formatting
type Outputter struct {
	config  *config.Config
	factory FormatterFactory
}

// NewOutputter creates a new Outputter
func NewOutputter(cfg *config.Config) *Outputter {
	return &Outputter{
		config:  cfg,
		factory: &DefaultFormatterFactory{config: cfg},
	}
}

// NewOutputterWithFactory creates an Outputter with a custom factory.
func NewOutputterWithFactory(cfg *config.Config, factory FormatterFactory) *Outputter {
	return &Outputter{config: cfg, factory: factory}
}

func (o *Outputter) formatter() (Formatter, error) {
	return o.factory.CreateFormatter(o.config.Format)
}

// Format renders a validation batch in the configured format
func (o *Outputter) Format(batch *validator.BatchResult) error {
	f, err := o.formatter()
	if err != nil {
		return err
	}
	return f.Format(batch)
}

// FormatReport renders an administration report in the configured format
func (o *Outputter) FormatReport(r *engine.Report) error {
	f, err := o.formatter()
	if err != nil {
		return err
	}
	return f.FormatReport(r)
}

// FormatResolution renders a template's option resolution in the configured
// format
func (o *Outputter) FormatResolution(t *scale.Template) error {
	f, err := o.formatter()
	if err != nil {
		return err
	}
	return f.FormatResolution(t)
}
