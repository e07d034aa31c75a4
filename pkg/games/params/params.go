// Package params validates and applies runtime parameter patches
// against a schema reflected from the model's parameter struct.
package params

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
)

// ValidationError carries one message per rejected field.
// The patch it describes was not applied, not even partially.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	var sb strings.Builder
	sb.WriteString("invalid params: ")
	for i, f := range names {
		if i > 0 {
			sb.WriteString("; ")
		}
		fmt.Fprintf(&sb, "%s: %s", f, e.Fields[f])
	}
	return sb.String()
}

var reflector = jsonschema.Reflector{
	DoNotReference:             true,
	RequiredFromJSONSchemaTags: true,
}

// Schema reflects the JSON schema document of a parameter struct.
func Schema(v any) *jsonschema.Schema { return reflector.Reflect(v) }

// Apply validates a patch fully against the schema of current and,
// only if every field passes, returns a new parameter value with the
// patch merged in. current is never mutated, so the caller can keep
// serving it until the swap.
func Apply(current any, patch map[string]any) (any, error) {
	schema := Schema(current)
	if err := validate(schema, patch); err != nil {
		return nil, err
	}

	merged := map[string]any{}
	raw, err := json.Marshal(current)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &merged); err != nil {
		return nil, err
	}
	for k, v := range patch {
		merged[k] = v
	}

	out := reflect.New(reflect.TypeOf(current).Elem()).Interface()
	raw, err = json.Marshal(merged)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	return out, nil
}

func validate(schema *jsonschema.Schema, patch map[string]any) error {
	errs := map[string]string{}
	for name, value := range patch {
		prop, ok := schema.Properties.Get(name)
		if !ok {
			errs[name] = "unknown parameter"
			continue
		}
		if msg := checkValue(prop, value); msg != "" {
			errs[name] = msg
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func checkValue(prop *jsonschema.Schema, value any) string {
	switch prop.Type {
	case "number", "integer":
		n, ok := toFloat(value)
		if !ok {
			return fmt.Sprintf("expected a %s", prop.Type)
		}
		if prop.Type == "integer" && n != math.Trunc(n) {
			return "expected an integer"
		}
		if min, ok := bound(prop.Minimum); ok && n < min {
			return fmt.Sprintf("must be >= %v", prop.Minimum)
		}
		if max, ok := bound(prop.Maximum); ok && n > max {
			return fmt.Sprintf("must be <= %v", prop.Maximum)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return "expected a boolean"
		}
	case "string":
		if _, ok := value.(string); !ok {
			return "expected a string"
		}
	}
	if len(prop.Enum) > 0 && !inEnum(prop.Enum, value) {
		return fmt.Sprintf("must be one of %v", prop.Enum)
	}
	return ""
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

// bound parses a schema tag bound. An empty tag means unbounded.
func bound(n json.Number) (float64, bool) {
	if n == "" {
		return 0, false
	}
	f, err := n.Float64()
	return f, err == nil
}

func inEnum(enum []any, value any) bool {
	for _, e := range enum {
		if reflect.DeepEqual(e, value) {
			return true
		}
		// JSON numbers decode as float64 while enum tags may hold ints
		if a, ok := toFloat(e); ok {
			if b, ok := toFloat(value); ok && a == b {
				return true
			}
		}
	}
	return false
}
