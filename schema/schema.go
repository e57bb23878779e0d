// Package schema derives argument validators from the JSON Schema
// fragments a tool server publishes for its tools.
//
// The derivation is deliberately shallow: nested object schemas are not
// expanded into sub-validators, an object property is an open mapping.
// A schema the bridge cannot understand degrades to an unconstrained
// field rather than failing, so a misbehaving tool definition never
// prevents the tool from being callable.
package schema

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
)

// Kind is the tag of the variant type derived for a field.
type Kind int

const (
	// KindAny accepts any value. Used when the schema declares no
	// usable type.
	KindAny Kind = iota
	// KindText accepts a string.
	KindText
	// KindNumber accepts any JSON number.
	KindNumber
	// KindInteger accepts an integral JSON number.
	KindInteger
	// KindBool accepts a boolean.
	KindBool
	// KindNull accepts only null.
	KindNull
	// KindList accepts a list whose elements match Elem.
	KindList
	// KindObject accepts an open string-keyed mapping.
	KindObject
	// KindEnum accepts one of a closed set of literals. An enum in the
	// schema overrides the declared base type.
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "string"
	case KindNumber:
		return "number"
	case KindInteger:
		return "integer"
	case KindBool:
		return "boolean"
	case KindNull:
		return "null"
	case KindList:
		return "array"
	case KindObject:
		return "object"
	case KindEnum:
		return "enum"
	default:
		return "any"
	}
}

// FieldSpec describes one bound argument field.
type FieldSpec struct {
	Name        string
	Kind        Kind
	Description string
	// Elem is the element spec when Kind is KindList.
	Elem *FieldSpec
	// Enum is the closed set of literals when Kind is KindEnum.
	Enum []any
	// Required marks the field mandatory: it must be present unless a
	// default is declared.
	Required bool
	// Default is the schema-declared default, nil when absent.
	Default any
}

// ArgSpec is the validator derived from a top-level tool input schema.
type ArgSpec struct {
	Fields []*FieldSpec

	byName map[string]*FieldSpec
}

// Parse unmarshals a raw JSON Schema document. A document that cannot be
// parsed at all returns an error; callers are expected to fall back to
// unvalidated pass-through in that case.
func Parse(raw []byte) (*jsonschema.Schema, error) {
	if len(raw) == 0 {
		return &jsonschema.Schema{}, nil
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.Wrap(err, "failed to parse input schema")
	}
	return &s, nil
}

// FromJSONSchema derives the argument validator from a parsed schema.
// It never fails: unknown constructs degrade to KindAny fields.
//
// For an object schema, one field is bound per declared property, with
// properties named in `required` mandatory and everything else optional
// and nullable. A non-object top-level schema is wrapped as a single
// mandatory field named "value".
func FromJSONSchema(s *jsonschema.Schema) *ArgSpec {
	spec := &ArgSpec{
		byName: make(map[string]*FieldSpec),
	}
	if s == nil {
		return spec
	}

	if s.Type != "object" {
		f := fieldFrom("value", s)
		f.Required = true
		spec.add(f)
		return spec
	}

	required := make(map[string]bool, len(s.Required))
	for _, name := range s.Required {
		required[name] = true
	}

	if s.Properties != nil {
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			f := fieldFrom(pair.Key, pair.Value)
			f.Required = required[pair.Key]
			spec.add(f)
		}
	}
	return spec
}

func (a *ArgSpec) add(f *FieldSpec) {
	a.Fields = append(a.Fields, f)
	a.byName[f.Name] = f
}

// Field returns the spec for a declared field, or nil.
func (a *ArgSpec) Field(name string) *FieldSpec {
	return a.byName[name]
}

// fieldFrom derives a single field spec from a property schema.
// Only one level of structure is modeled: a nested object schema maps to
// an open mapping, not a sub-validator.
func fieldFrom(name string, s *jsonschema.Schema) *FieldSpec {
	f := &FieldSpec{
		Name: name,
		Kind: KindAny,
	}
	if s == nil {
		return f
	}
	f.Description = s.Description
	f.Default = s.Default

	// enum overrides the declared base type
	if len(s.Enum) > 0 {
		f.Kind = KindEnum
		f.Enum = s.Enum
		return f
	}

	switch s.Type {
	case "string":
		f.Kind = KindText
	case "number":
		f.Kind = KindNumber
	case "integer":
		f.Kind = KindInteger
	case "boolean":
		f.Kind = KindBool
	case "null":
		f.Kind = KindNull
	case "array":
		f.Kind = KindList
		if s.Items != nil {
			f.Elem = fieldFrom(name+"[]", s.Items)
		} else {
			f.Elem = &FieldSpec{Name: name + "[]", Kind: KindAny}
		}
	case "object":
		f.Kind = KindObject
	default:
		f.Kind = KindAny
	}
	return f
}

// Bind applies declared defaults for absent fields and validates the
// result. The returned map is a copy; the input is not mutated.
func (a *ArgSpec) Bind(args map[string]any) (map[string]any, error) {
	bound := make(map[string]any, len(args))
	for k, v := range args {
		bound[k] = v
	}
	for _, f := range a.Fields {
		if _, ok := bound[f.Name]; !ok && f.Default != nil {
			bound[f.Name] = f.Default
		}
	}
	if err := a.Validate(bound); err != nil {
		return nil, err
	}
	return bound, nil
}

// Validate checks the arguments against the derived field specs.
// Keys not declared in the schema are ignored; the remote server owns
// full correctness checking.
func (a *ArgSpec) Validate(args map[string]any) error {
	for _, f := range a.Fields {
		val, ok := args[f.Name]
		if !ok {
			if f.Required && f.Default == nil {
				return errors.Newf("missing required field %q", f.Name)
			}
			continue
		}
		if val == nil {
			if f.Required {
				return errors.Newf("required field %q is null", f.Name)
			}
			// optional fields are nullable
			continue
		}
		if err := f.check(val); err != nil {
			return err
		}
	}
	return nil
}

func (f *FieldSpec) check(val any) error {
	switch f.Kind {
	case KindAny:
		return nil
	case KindText:
		if _, ok := val.(string); !ok {
			return f.mismatch(val)
		}
	case KindNumber:
		if !isNumber(val) {
			return f.mismatch(val)
		}
	case KindInteger:
		if !isInteger(val) {
			return f.mismatch(val)
		}
	case KindBool:
		if _, ok := val.(bool); !ok {
			return f.mismatch(val)
		}
	case KindNull:
		return f.mismatch(val) // non-nil handled above
	case KindList:
		list, ok := val.([]any)
		if !ok {
			return f.mismatch(val)
		}
		for _, item := range list {
			if item == nil {
				continue
			}
			if err := f.Elem.check(item); err != nil {
				return err
			}
		}
	case KindObject:
		if _, ok := val.(map[string]any); !ok {
			return f.mismatch(val)
		}
	case KindEnum:
		for _, allowed := range f.Enum {
			if literalEqual(val, allowed) {
				return nil
			}
		}
		return errors.Newf("field %q: value %v is not one of the allowed literals", f.Name, val)
	}
	return nil
}

func (f *FieldSpec) mismatch(val any) error {
	return errors.Newf("field %q: expected %s, got %T", f.Name, f.Kind, val)
}

func isNumber(val any) bool {
	switch val.(type) {
	case float64, float32, int, int32, int64, json.Number:
		return true
	}
	return false
}

func isInteger(val any) bool {
	switch v := val.(type) {
	case int, int32, int64:
		return true
	case float64:
		return v == math.Trunc(v)
	case json.Number:
		_, err := v.Int64()
		return err == nil
	}
	return false
}

// literalEqual compares enum literals after JSON decoding, where numbers
// arrive as float64 regardless of how the schema spelled them.
func literalEqual(a, b any) bool {
	if a == b {
		return true
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}
