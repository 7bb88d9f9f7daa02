package validator

import (
	"fmt"

	"github.com/dotcommander/clinscale/internal/scale"
	"github.com/dotcommander/clinscale/internal/types"
	"github.com/sourcegraph/conc/pool"
)

// Document is one serialized template handed to ValidateTemplates.
type Document struct {
	Name   string // file path or caller-chosen label
	Data   []byte
	Format scale.Format
}

// BatchResult aggregates per-template results keyed by metadata.id.
type BatchResult struct {
	Results  map[string]*Result `json:"results"`
	Failures map[string]string  `json:"failures,omitempty"`
	Totals   BatchTotals        `json:"totals"`

	// Order lists Results keys in input order.
	Order []string `json:"-"`
}

// BatchTotals sums the summaries of every template in a batch.
type BatchTotals struct {
	Templates      int `json:"templates"`
	Valid          int `json:"valid"`
	Malformed      int `json:"malformed"`
	TotalErrors    int `json:"totalErrors"`
	TotalWarnings  int `json:"totalWarnings"`
	CriticalErrors int `json:"criticalErrors"`
}

// ValidateTemplates validates docs with up to workers concurrent validations.
// Output does not depend on scheduling: results are collected by input index
// and keyed afterwards. Documents that are not templates at all are recorded
// under Failures by name.
func (v *Validator) ValidateTemplates(docs []Document, workers int) *BatchResult {
	if workers < 1 {
		workers = 1
	}

	results := make([]*Result, len(docs))
	errs := make([]error, len(docs))
	p := pool.New().WithMaxGoroutines(workers)
	for i := range docs {
		i := i
		p.Go(func() {
			results[i], errs[i] = v.ValidateTemplate(docs[i].Data, docs[i].Format)
			if errs[i] == nil {
				results[i].setFile(docs[i].Name)
			}
		})
	}
	p.Wait()

	batch := &BatchResult{
		Results:  make(map[string]*Result, len(docs)),
		Failures: make(map[string]string),
	}
	for i, doc := range docs {
		batch.Totals.Templates++
		if errs[i] != nil {
			batch.Failures[doc.Name] = errs[i].Error()
			batch.Totals.Malformed++
			continue
		}
		batch.add(keyFor(results[i], doc.Name, batch.Results), results[i])
	}
	return batch
}

// ValidateScales validates templates built in code, keyed by metadata.id.
func (v *Validator) ValidateScales(scales []*scale.Scale) (*BatchResult, error) {
	batch := &BatchResult{
		Results:  make(map[string]*Result, len(scales)),
		Failures: make(map[string]string),
	}
	for i, s := range scales {
		res, err := v.ValidateScale(s)
		if err != nil {
			return nil, fmt.Errorf("scale %d: %w", i, err)
		}
		batch.Totals.Templates++
		batch.add(keyFor(res, fmt.Sprintf("scale[%d]", i), batch.Results), res)
	}
	return batch, nil
}

// setFile records the source document on the result and its issues.
func (r *Result) setFile(name string) {
	r.File = name
	for i := range r.Errors {
		r.Errors[i].File = name
	}
	for i := range r.Warnings {
		r.Warnings[i].File = name
	}
}

// Recount recomputes summary, validity and score after issues were removed,
// for example by a baseline.
func (r *Result) Recount() {
	issues := append(append([]types.Issue{}, r.Errors...), r.Warnings...)
	r.Summary = Summary{}
	r.finish(issues)
}

// Recount recomputes batch totals from the per-template results.
func (b *BatchResult) Recount() {
	t := BatchTotals{Templates: b.Totals.Templates, Malformed: b.Totals.Malformed}
	for _, key := range b.Order {
		res := b.Results[key]
		if res.IsValid {
			t.Valid++
		}
		t.TotalErrors += res.Summary.TotalErrors
		t.TotalWarnings += res.Summary.TotalWarnings
		t.CriticalErrors += res.Summary.CriticalErrors
	}
	b.Totals = t
}

func (b *BatchResult) add(key string, res *Result) {
	b.Results[key] = res
	b.Order = append(b.Order, key)
	if res.IsValid {
		b.Totals.Valid++
	}
	b.Totals.TotalErrors += res.Summary.TotalErrors
	b.Totals.TotalWarnings += res.Summary.TotalWarnings
	b.Totals.CriticalErrors += res.Summary.CriticalErrors
}

// keyFor picks metadata.id, falling back to the document name when the id is
// missing or already taken by an earlier template.
func keyFor(res *Result, name string, taken map[string]*Result) string {
	key := res.TemplateID
	if key == "" {
		return name
	}
	if _, dup := taken[key]; dup {
		return fmt.Sprintf("%s (%s)", key, name)
	}
	return key
}
