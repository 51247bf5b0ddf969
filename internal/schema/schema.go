// Package schema converts between wire representations and entity records
// using a declarative, depth-bounded field graph.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// FieldType represents the declared type of a schema field
type FieldType int

const (
	String FieldType = iota
	Text
	Int
	Float
	Bool
	Date
	Timestamp
	JSON
)

// String returns the string representation of the field type
func (t FieldType) String() string {
	switch t {
	case String:
		return "string"
	case Text:
		return "text"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case Date:
		return "date"
	case Timestamp:
		return "timestamp"
	case JSON:
		return "json"
	default:
		return "unknown"
	}
}

// Comparable reports whether ordered comparison operators make sense
// for values of this type
func (t FieldType) Comparable() bool {
	switch t {
	case Int, Float, Date, Timestamp:
		return true
	default:
		return false
	}
}

// Temporal reports whether the type holds a date or timestamp
func (t FieldType) Temporal() bool {
	return t == Date || t == Timestamp
}

// Textual reports whether the type holds free text
func (t FieldType) Textual() bool {
	return t == String || t == Text
}

// Compute derives a field value from an already-loaded record at dump time
type Compute func(record map[string]interface{}) interface{}

// Resolver normalizes a payload before structural validation, typically
// resolving a natural-key reference to a foreign-key id. Resolution
// failures leave the payload untouched so validation fails naturally.
type Resolver func(ctx context.Context, db *sql.DB, payload map[string]interface{})

// Nested declares a relation rendered through another schema,
// restricted to an explicit field allow-list
type Nested struct {
	Schema *Schema
	Fields []string
	Many   bool
}

// Field declares one entry in the field graph
type Field struct {
	Name     string
	Type     FieldType
	DumpOnly bool
	LoadOnly bool
	Required bool
	// Optional fields are excluded from dump output unless expansion
	// is requested by the caller
	Optional bool
	Nested   *Nested
	Compute  Compute
}

// Schema describes the wire representation of one entity
type Schema struct {
	Name    string
	fields  map[string]*Field
	order   []string
	resolve Resolver
}

// New creates a schema from the given fields, validating the field graph
func New(name string, fields ...*Field) (*Schema, error) {
	s := &Schema{
		Name:   name,
		fields: make(map[string]*Field, len(fields)),
		order:  make([]string, 0, len(fields)),
	}

	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("schema %s: field with empty name", name)
		}
		if _, exists := s.fields[f.Name]; exists {
			return nil, fmt.Errorf("schema %s: duplicate field %s", name, f.Name)
		}
		if f.Compute != nil && !f.DumpOnly {
			return nil, fmt.Errorf("schema %s: computed field %s must be dump-only", name, f.Name)
		}
		if f.Nested != nil {
			if !f.DumpOnly {
				return nil, fmt.Errorf("schema %s: nested field %s must be dump-only", name, f.Name)
			}
			if f.Nested.Schema == nil {
				return nil, fmt.Errorf("schema %s: nested field %s has no schema", name, f.Name)
			}
			if len(f.Nested.Fields) == 0 {
				return nil, fmt.Errorf("schema %s: nested field %s needs an explicit field selection", name, f.Name)
			}
			for _, sub := range f.Nested.Fields {
				if _, ok := f.Nested.Schema.fields[sub]; !ok {
					return nil, fmt.Errorf("schema %s: nested field %s selects unknown field %s",
						name, f.Name, sub)
				}
			}
		}
		if f.DumpOnly && f.LoadOnly {
			return nil, fmt.Errorf("schema %s: field %s cannot be both dump-only and load-only", name, f.Name)
		}
		s.fields[f.Name] = f
		s.order = append(s.order, f.Name)
	}

	return s, nil
}

// MustNew is like New but panics on error; for process-start registration
func MustNew(name string, fields ...*Field) *Schema {
	s, err := New(name, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// WithResolver attaches a pre-load natural-key resolver
func (s *Schema) WithResolver(r Resolver) *Schema {
	s.resolve = r
	return s
}

// Resolve runs the pre-load resolver, if any
func (s *Schema) Resolve(ctx context.Context, db *sql.DB, payload map[string]interface{}) {
	if s.resolve != nil {
		s.resolve(ctx, db, payload)
	}
}

// Field returns the declared field with the given name
func (s *Schema) Field(name string) (*Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// FieldNames returns the declared field names in declaration order
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.order))
	copy(names, s.order)
	return names
}

// HasColumn reports whether name is a persisted column field,
// as opposed to a computed or nested one
func (s *Schema) HasColumn(name string) bool {
	f, ok := s.fields[name]
	return ok && f.Compute == nil && f.Nested == nil
}

// Dump renders a record for the wire. Optional fields are included
// only when named in expand; load-only fields are always withheld.
func (s *Schema) Dump(record map[string]interface{}, expand []string) map[string]interface{} {
	expanded := make(map[string]bool, len(expand))
	for _, name := range expand {
		expanded[name] = true
	}

	out := make(map[string]interface{}, len(s.order))
	for _, name := range s.order {
		f := s.fields[name]
		if f.LoadOnly {
			continue
		}
		if f.Optional && !expanded[name] {
			continue
		}

		switch {
		case f.Compute != nil:
			out[name] = f.Compute(record)
		case f.Nested != nil:
			out[name] = s.dumpNested(f, record[name])
		default:
			out[name] = dumpValue(f, record[name])
		}
	}
	return out
}

// dumpNested renders a related record (or slice of records) through the
// nested schema's allow-list. A nested relation never re-exposes its own
// relations; only the selected column and computed fields appear.
func (s *Schema) dumpNested(f *Field, value interface{}) interface{} {
	if value == nil {
		if f.Nested.Many {
			return []map[string]interface{}{}
		}
		return nil
	}

	if f.Nested.Many {
		records, ok := value.([]map[string]interface{})
		if !ok {
			return []map[string]interface{}{}
		}
		out := make([]map[string]interface{}, 0, len(records))
		for _, rec := range records {
			out = append(out, f.Nested.Schema.dumpSelection(rec, f.Nested.Fields))
		}
		return out
	}

	record, ok := value.(map[string]interface{})
	if !ok {
		return nil
	}
	return f.Nested.Schema.dumpSelection(record, f.Nested.Fields)
}

// dumpSelection renders only the named fields of a record
func (s *Schema) dumpSelection(record map[string]interface{}, fields []string) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for _, name := range fields {
		f, ok := s.fields[name]
		if !ok || f.LoadOnly || f.Nested != nil {
			continue
		}
		if f.Compute != nil {
			out[name] = f.Compute(record)
			continue
		}
		out[name] = dumpValue(f, record[name])
	}
	return out
}

// dumpValue normalizes a stored value for the wire
func dumpValue(f *Field, value interface{}) interface{} {
	if value == nil {
		return nil
	}
	if t, ok := value.(time.Time); ok {
		if f.Type == Date {
			return t.Format("2006-01-02")
		}
		return t.UTC().Format(time.RFC3339)
	}
	if b, ok := value.([]byte); ok {
		return string(b)
	}
	return value
}

// Load validates a full payload against the field graph, coercing values
// and accumulating per-field errors. Required fields must be present.
func (s *Schema) Load(payload map[string]interface{}) (map[string]interface{}, *ValidationErrors) {
	return s.load(payload, false)
}

// LoadPartial validates a partial payload, skipping required-field checks;
// used by update operations
func (s *Schema) LoadPartial(payload map[string]interface{}) (map[string]interface{}, *ValidationErrors) {
	return s.load(payload, true)
}

func (s *Schema) load(payload map[string]interface{}, partial bool) (map[string]interface{}, *ValidationErrors) {
	errs := NewValidationErrors()
	record := make(map[string]interface{}, len(payload))

	for name, raw := range payload {
		f, ok := s.fields[name]
		if !ok {
			errs.Add(name, "unknown field")
			continue
		}
		if f.DumpOnly || f.Compute != nil || f.Nested != nil {
			errs.Add(name, "read-only field")
			continue
		}
		if raw == nil {
			if f.Required {
				errs.Add(name, "must not be null")
				continue
			}
			record[name] = nil
			continue
		}

		value, msg := coerceValue(f.Type, raw)
		if msg != "" {
			errs.Add(name, msg)
			continue
		}
		record[name] = value
	}

	if !partial {
		for _, name := range s.order {
			f := s.fields[name]
			if !f.Required || f.DumpOnly || f.Compute != nil || f.Nested != nil {
				continue
			}
			if _, present := payload[name]; !present {
				errs.Add(name, "missing required field")
			}
		}
	}

	if errs.HasErrors() {
		return nil, errs
	}
	return record, nil
}

// coerceValue converts a decoded JSON value to the field's declared type.
// Returns a non-empty message on failure.
func coerceValue(t FieldType, raw interface{}) (interface{}, string) {
	switch t {
	case String, Text:
		v, ok := raw.(string)
		if !ok {
			return nil, "must be a string"
		}
		return v, ""

	case Int:
		switch v := raw.(type) {
		case float64:
			if v != float64(int64(v)) {
				return nil, "must be an integer"
			}
			return int64(v), ""
		case int:
			return int64(v), ""
		case int64:
			return v, ""
		default:
			return nil, "must be an integer"
		}

	case Float:
		switch v := raw.(type) {
		case float64:
			return v, ""
		case int:
			return float64(v), ""
		case int64:
			return float64(v), ""
		default:
			return nil, "must be a number"
		}

	case Bool:
		v, ok := raw.(bool)
		if !ok {
			return nil, "must be a boolean"
		}
		return v, ""

	case Date:
		v, ok := raw.(string)
		if !ok {
			return nil, "must be a date string"
		}
		parsed, err := ParseDate(v)
		if err != nil {
			return nil, "must be an ISO-8601 date"
		}
		return parsed, ""

	case Timestamp:
		v, ok := raw.(string)
		if !ok {
			return nil, "must be a timestamp string"
		}
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			if fallback, ferr := ParseDate(v); ferr == nil {
				return fallback, ""
			}
			return nil, "must be an ISO-8601 timestamp"
		}
		return parsed, ""

	case JSON:
		return raw, ""

	default:
		return nil, "unsupported field type"
	}
}

// ParseDate parses an ISO-8601 date, truncating any time-of-day component
// to midnight UTC
func ParseDate(value string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), nil
}
