package scale

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/dotcommander/clinscale/internal/types"
	"gopkg.in/yaml.v3"
)

// Format is the serialization of a template or response document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the document format from a file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ParseDocument decodes a template into its raw object form. The raw form is
// what the schema pass inspects; Decode builds the typed Scale from it.
func ParseDocument(data []byte, format Format) (map[string]any, error) {
	v, err := decodeAny(data, format, "template")
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &types.ValidationError{
			Input:  "template",
			Reason: fmt.Sprintf("expected an object at the top level, got %s", KindOf(v)),
		}
	}
	return obj, nil
}

// FromDocument builds a Scale from a raw template object. Fields with the
// wrong JSON type are left zero-valued rather than failing the whole decode;
// the schema pass reports them.
func FromDocument(doc map[string]any) (*Scale, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("re-encode template: %w", err)
	}
	var s Scale
	if err := json.Unmarshal(data, &s); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return nil, fmt.Errorf("decode template: %w", err)
		}
	}
	return &s, nil
}

// Decode parses a template document into a Scale.
func Decode(data []byte, format Format) (*Scale, error) {
	doc, err := ParseDocument(data, format)
	if err != nil {
		return nil, err
	}
	return FromDocument(doc)
}

// ToDocument renders a Scale back into raw object form so templates built in
// code go through the same schema pass as decoded ones. Nil slices and maps
// are absent from the result, as they would be in a file that omits them.
func ToDocument(s *Scale) (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode scale: %w", err)
	}
	doc, err := ParseDocument(data, FormatJSON)
	if err != nil {
		return nil, err
	}
	dropNulls(doc)
	return doc, nil
}

// dropNulls removes null-valued keys from every object nested in v.
func dropNulls(v any) {
	switch t := v.(type) {
	case map[string]any:
		for k, el := range t {
			if el == nil {
				delete(t, k)
				continue
			}
			dropNulls(el)
		}
	case []any:
		for _, el := range t {
			dropNulls(el)
		}
	}
}

// ParseResponses decodes a response array. A document that is not an array
// yields a *types.ValidationError.
func ParseResponses(data []byte, format Format) ([]Response, error) {
	v, err := decodeAny(data, format, "responses")
	if err != nil {
		return nil, err
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, &types.ValidationError{
			Input:  "responses",
			Reason: fmt.Sprintf("expected an array, got %s", KindOf(v)),
		}
	}
	for i, el := range arr {
		if _, ok := el.(map[string]any); !ok {
			return nil, &types.ValidationError{
				Input:  "responses",
				Reason: fmt.Sprintf("element %d: expected an object, got %s", i, KindOf(el)),
			}
		}
	}
	raw, err := json.Marshal(arr)
	if err != nil {
		return nil, fmt.Errorf("re-encode responses: %w", err)
	}
	var responses []Response
	if err := json.Unmarshal(raw, &responses); err != nil {
		return nil, &types.ValidationError{Input: "responses", Reason: err.Error()}
	}
	return responses, nil
}

func decodeAny(data []byte, format Format, input string) (any, error) {
	var v any
	var err error
	if format == FormatYAML {
		err = yaml.Unmarshal(data, &v)
	} else {
		err = json.Unmarshal(data, &v)
	}
	if err != nil {
		return nil, &types.ValidationError{Input: input, Reason: err.Error()}
	}
	return normalize(v), nil
}

// normalize brings JSON and YAML decodes to one shape: string-keyed maps and
// int64 for integral numbers so schema unification sees ints as ints.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, el := range t {
			t[k] = normalize(el)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, el := range t {
			out[fmt.Sprint(k)] = normalize(el)
		}
		return out
	case []any:
		for i, el := range t {
			t[i] = normalize(el)
		}
		return t
	case int:
		return int64(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return int64(t)
		}
		return t
	default:
		return v
	}
}

// KindOf names the JSON kind of a decoded value for error messages.
func KindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int64, float64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
