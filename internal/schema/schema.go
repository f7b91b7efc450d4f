// Package schema defines declarative record schemas for extraction task
// outputs and a structural validator for JSON-decoded payloads.
package schema

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"
)

// Kind is the type of a schema field.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindRecord
	KindList
	KindAny
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindRecord:
		return "record"
	case KindList:
		return "list"
	case KindAny:
		return "any"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Field describes one named field of a record.
type Field struct {
	Name     string
	Kind     Kind
	Optional bool
	// Record is the nested record definition when Kind is KindRecord.
	Record *Record
	// Elem is the element definition when Kind is KindList.
	Elem *Field
}

// Record is a typed record definition: the output schema of one extraction
// task, or a nested shape within one. Records are declared once at process
// start and shared read-only across concurrent runs.
type Record struct {
	Name   string
	Fields []Field
}

// Validate checks a JSON-decoded payload against the record definition.
// Validation is structural and type-level only: required field presence,
// primitive types, and nested list/record shapes. Unknown fields are
// permitted; null is accepted only for optional fields.
func (r Record) Validate(data map[string]any) error {
	if data == nil {
		return eris.Errorf("schema %s: payload is nil", r.Name)
	}
	for _, f := range r.Fields {
		v, ok := data[f.Name]
		if !ok || v == nil {
			if f.Optional {
				continue
			}
			return eris.Errorf("schema %s: missing required field %q", r.Name, f.Name)
		}
		if err := validateValue(v, f, r.Name+"."+f.Name); err != nil {
			return err
		}
	}
	return nil
}

func validateValue(v any, f Field, path string) error {
	switch f.Kind {
	case KindAny:
		return nil
	case KindString:
		if _, ok := v.(string); !ok {
			return typeErr(path, "string", v)
		}
	case KindBool:
		if _, ok := v.(bool); !ok {
			return typeErr(path, "bool", v)
		}
	case KindFloat:
		if !isNumber(v) {
			return typeErr(path, "number", v)
		}
	case KindInt:
		n, ok := asFloat(v)
		if !ok {
			return typeErr(path, "integer", v)
		}
		if n != math.Trunc(n) {
			return eris.Errorf("schema: field %s: expected integer, got %v", path, v)
		}
	case KindRecord:
		m, ok := v.(map[string]any)
		if !ok {
			return typeErr(path, "object", v)
		}
		if f.Record == nil {
			return nil
		}
		if err := f.Record.Validate(m); err != nil {
			return eris.Wrapf(err, "field %s", path)
		}
	case KindList:
		items, ok := v.([]any)
		if !ok {
			return typeErr(path, "array", v)
		}
		if f.Elem == nil {
			return nil
		}
		for i, item := range items {
			if item == nil {
				return eris.Errorf("schema: field %s[%d]: null element", path, i)
			}
			if err := validateValue(item, *f.Elem, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	default:
		return eris.Errorf("schema: field %s: unsupported kind %s", path, f.Kind)
	}
	return nil
}

func typeErr(path, want string, got any) error {
	return eris.Errorf("schema: field %s: expected %s, got %T", path, want, got)
}

func isNumber(v any) bool {
	_, ok := asFloat(v)
	return ok
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Skeleton renders an example value shape for the record, suitable for
// embedding in a prompt so the model knows the exact JSON structure to
// produce. Lists are rendered with a single element.
func (r Record) Skeleton() map[string]any {
	out := make(map[string]any, len(r.Fields))
	for _, f := range r.Fields {
		out[f.Name] = fieldSkeleton(f)
	}
	return out
}

func fieldSkeleton(f Field) any {
	switch f.Kind {
	case KindString:
		return "string"
	case KindInt:
		return 0
	case KindFloat:
		return 0.0
	case KindBool:
		return false
	case KindRecord:
		if f.Record == nil {
			return map[string]any{}
		}
		return f.Record.Skeleton()
	case KindList:
		if f.Elem == nil {
			return []any{}
		}
		return []any{fieldSkeleton(*f.Elem)}
	default:
		return nil
	}
}
