package valueobjects

import (
	pkgerrors "github.com/lehelkovach/osl-agent-prototype-sub000/pkg/errors"
)

// ValueType enumerates the scalar types a PropertyDef can declare (§3).
type ValueType string

const (
	ValueTypeString  ValueType = "string"
	ValueTypeNumber  ValueType = "number"
	ValueTypeBoolean ValueType = "boolean"
	ValueTypeDate    ValueType = "date"
	ValueTypeRef     ValueType = "ref"
)

// Cardinality enumerates how many values a property may hold.
type Cardinality string

const (
	CardinalityOne  Cardinality = "one"
	CardinalityMany Cardinality = "many"
)

// Properties is the validated bag of name -> value pairs attached to a
// Concept or Prototype. It replaces free-form maps with typed accessors so
// domain services never need to type-assert at call sites.
type Properties struct {
	values map[string]interface{}
}

// NewProperties copies the given map into a Properties value object.
func NewProperties(values map[string]interface{}) Properties {
	cp := make(map[string]interface{}, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return Properties{values: cp}
}

// Empty returns a Properties value object with no entries.
func EmptyProperties() Properties {
	return Properties{values: map[string]interface{}{}}
}

func (p Properties) Get(key string) (interface{}, bool) {
	v, ok := p.values[key]
	return v, ok
}

func (p Properties) GetString(key string) (string, bool) {
	v, ok := p.values[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (p Properties) GetFloat(key string) (float64, bool) {
	v, ok := p.values[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func (p Properties) GetBool(key string) (bool, bool) {
	v, ok := p.values[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// With returns a new Properties with key set to value, leaving the
// receiver untouched.
func (p Properties) With(key string, value interface{}) Properties {
	cp := make(map[string]interface{}, len(p.values)+1)
	for k, v := range p.values {
		cp[k] = v
	}
	cp[key] = value
	return Properties{values: cp}
}

// Merge overlays other on top of the receiver, other's values winning on
// key collision — used by explicit-merge hydration (§9).
func (p Properties) Merge(other Properties) Properties {
	cp := make(map[string]interface{}, len(p.values)+len(other.values))
	for k, v := range p.values {
		cp[k] = v
	}
	for k, v := range other.values {
		cp[k] = v
	}
	return Properties{values: cp}
}

// Raw returns a defensive copy of the underlying map, for serialization.
func (p Properties) Raw() map[string]interface{} {
	cp := make(map[string]interface{}, len(p.values))
	for k, v := range p.values {
		cp[k] = v
	}
	return cp
}

func (p Properties) Len() int {
	return len(p.values)
}

// ValidateAgainst checks every required PropertyDef in defs is present in p
// with a compatible Go type, returning a SchemaViolation error listing the
// first mismatch found.
func ValidateAgainst(p Properties, defs []PropertyDef) error {
	for _, def := range defs {
		v, ok := p.values[def.Name]
		if !ok {
			if def.Required {
				return pkgerrors.NewSchemaViolationError("missing required property: " + def.Name)
			}
			continue
		}
		if !matchesType(v, def.Type) {
			return pkgerrors.NewSchemaViolationError("property " + def.Name + " does not match declared type " + string(def.Type))
		}
	}
	return nil
}

func matchesType(v interface{}, t ValueType) bool {
	switch t {
	case ValueTypeString, ValueTypeDate, ValueTypeRef:
		_, ok := v.(string)
		return ok
	case ValueTypeNumber:
		switch v.(type) {
		case float64, int:
			return true
		}
		return false
	case ValueTypeBoolean:
		_, ok := v.(bool)
		return ok
	default:
		return true
	}
}

// PropertyDef declares the schema for a single property on a Prototype
// (§3 PropertyDef).
type PropertyDef struct {
	Name        string
	Type        ValueType
	Cardinality Cardinality
	Required    bool
}
