// Package schema holds the CUE schemas templates are checked against. A
// Registry compiles the embedded schemas once and is passed to whatever needs
// structural validation; there is no package-level instance.
package schema

import (
	"embed"
	"fmt"
	"path"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schemas/*.cue
var schemaFS embed.FS

// DefScale is the definition scale templates are unified with.
const DefScale = "#Scale"

// Violation is one structural problem found by unification.
type Violation struct {
	Path    string // dotted path into the document, e.g. "items.3.number"
	Message string
}

// Registry holds compiled schemas. Compilation happens in NewRegistry; after
// that the registry is read-only. cue.Context is not safe for concurrent use,
// so Validate serialises access.
type Registry struct {
	mu     sync.Mutex
	ctx    *cue.Context
	values map[string]cue.Value
}

// NewRegistry compiles every embedded schema file.
func NewRegistry() (*Registry, error) {
	r := &Registry{
		ctx:    cuecontext.New(),
		values: make(map[string]cue.Value),
	}

	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("read embedded schemas: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".cue" {
			continue
		}
		content, err := schemaFS.ReadFile(path.Join("schemas", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", entry.Name(), err)
		}
		inst := r.ctx.CompileBytes(content, cue.Filename(entry.Name()))
		if err := inst.Err(); err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", entry.Name(), err)
		}
		r.values[strings.TrimSuffix(entry.Name(), ".cue")] = inst
	}
	if len(r.values) == 0 {
		return nil, fmt.Errorf("no CUE schemas embedded")
	}
	return r, nil
}

// Has reports whether a definition such as "#Scale" exists in any schema.
func (r *Registry) Has(def string) bool {
	_, ok := r.lookup(def)
	return ok
}

func (r *Registry) lookup(def string) (cue.Value, bool) {
	p := cue.ParsePath(def)
	for _, v := range r.values {
		d := v.LookupPath(p)
		if d.Exists() {
			return d, true
		}
	}
	return cue.Value{}, false
}

// Validate unifies data with the named definition and returns every
// violation. The error return is reserved for problems with the registry or
// with encoding data, not for data that fails the schema.
func (r *Registry) Validate(def string, data any) ([]Violation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	schema, ok := r.lookup(def)
	if !ok {
		return nil, fmt.Errorf("schema definition %s not found", def)
	}

	dataValue := r.ctx.Encode(data)
	if err := dataValue.Err(); err != nil {
		return nil, fmt.Errorf("encode data: %w", err)
	}

	unified := schema.Unify(dataValue)
	if err := unified.Err(); err != nil {
		return violations(err), nil
	}
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return violations(err), nil
	}
	return nil, nil
}

// violations flattens a CUE error into one entry per distinct path.
func violations(err error) []Violation {
	var out []Violation
	seen := make(map[string]bool)
	for _, e := range cueerrors.Errors(err) {
		p := trimDefinition(e.Path())
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		key := p + "|" + msg
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Violation{Path: p, Message: msg})
	}
	return out
}

// trimDefinition drops leading definition selectors so paths read from the
// document root.
func trimDefinition(parts []string) string {
	for len(parts) > 0 && strings.HasPrefix(parts[0], "#") {
		parts = parts[1:]
	}
	return strings.Join(parts, ".")
}
