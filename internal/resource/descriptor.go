package resource

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/saurabh1e/pos-api/internal/schema"
)

// Expander loads the related value behind an optional nested field.
// A missing relation returns (nil, nil) so it dumps as null.
type Expander func(ctx context.Context, db *sql.DB, record map[string]interface{}) (interface{}, error)

// Descriptor is the immutable per-entity configuration driving a Resource.
// It is created once at process start, validated at registration, and
// shared read-only by all concurrent requests.
type Descriptor struct {
	// Name is the URL path segment, e.g. "product"
	Name string

	// Table is the backing table name
	Table string

	// Schema is the entity's wire field graph
	Schema *schema.Schema

	// IDField is the primary-key column; defaults to "id"
	IDField string

	// Filters maps a field name to the operators callers may use on it
	Filters map[string][]Operator

	// OrderBy is the ordered allow-list of sort keys; its declared order
	// also breaks ties between requested sorts
	OrderBy []string

	// Optional names schema fields excluded from dump unless expanded
	Optional []string

	// Expanders loads related records for optional nested fields when
	// the caller requests them; keyed by field name
	Expanders map[string]Expander

	// DefaultLimit applies when the caller sends no limit; MaxLimit caps
	// whatever the caller asks for
	DefaultLimit int
	MaxLimit     int

	// AuthRequired rejects anonymous requests
	AuthRequired bool

	// RolesAccepted grants access when the principal holds any of these
	// roles; RolesRequired demands all of them
	RolesAccepted []string
	RolesRequired []string
}

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Validate checks the descriptor's configuration against its schema and
// applies defaults. Unknown fields, incompatible operators, and invalid
// limits are configuration errors surfaced before the server starts.
func (d *Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("descriptor needs a name")
	}
	if d.Table == "" {
		return fmt.Errorf("descriptor %s: table is required", d.Name)
	}
	if d.Schema == nil {
		return fmt.Errorf("descriptor %s: schema is required", d.Name)
	}

	if d.IDField == "" {
		d.IDField = "id"
	}
	if !d.Schema.HasColumn(d.IDField) {
		return fmt.Errorf("descriptor %s: id field %s is not a column", d.Name, d.IDField)
	}

	if d.DefaultLimit == 0 {
		d.DefaultLimit = defaultLimit
	}
	if d.MaxLimit == 0 {
		d.MaxLimit = maxLimit
	}
	if d.DefaultLimit < 0 || d.MaxLimit < 0 {
		return fmt.Errorf("descriptor %s: limits must be positive", d.Name)
	}
	if d.DefaultLimit > d.MaxLimit {
		return fmt.Errorf("descriptor %s: default limit %d exceeds max limit %d",
			d.Name, d.DefaultLimit, d.MaxLimit)
	}

	for field, ops := range d.Filters {
		f, ok := d.Schema.Field(field)
		if !ok || !d.Schema.HasColumn(field) {
			return fmt.Errorf("descriptor %s: filter on unknown field %s", d.Name, field)
		}
		if len(ops) == 0 {
			return fmt.Errorf("descriptor %s: filter on %s declares no operators", d.Name, field)
		}
		for _, op := range ops {
			if !op.CompatibleWith(f.Type) {
				return fmt.Errorf("descriptor %s: operator %s is not valid for %s field %s",
					d.Name, op, f.Type, field)
			}
		}
	}

	for _, field := range d.OrderBy {
		if !d.Schema.HasColumn(field) {
			return fmt.Errorf("descriptor %s: order_by names unknown field %s", d.Name, field)
		}
	}

	for _, field := range d.Optional {
		f, ok := d.Schema.Field(field)
		if !ok {
			return fmt.Errorf("descriptor %s: optional names unknown field %s", d.Name, field)
		}
		if !f.Optional {
			return fmt.Errorf("descriptor %s: field %s is not declared optional in the schema",
				d.Name, field)
		}
		if f.Nested != nil && d.Expanders[field] == nil {
			return fmt.Errorf("descriptor %s: nested field %s has no expander", d.Name, field)
		}
	}

	for field := range d.Expanders {
		f, ok := d.Schema.Field(field)
		if !ok || f.Nested == nil {
			return fmt.Errorf("descriptor %s: expander on non-nested field %s", d.Name, field)
		}
		if !d.allowsOptional(field) {
			return fmt.Errorf("descriptor %s: expander field %s is not declared optional", d.Name, field)
		}
	}

	return nil
}

// expandRecord loads the related values behind every requested nested
// field onto the record, ready for dumping through the allow-list
func (d *Descriptor) expandRecord(ctx context.Context, db *sql.DB, record map[string]interface{}, expand []string) error {
	for _, name := range expand {
		loader, ok := d.Expanders[name]
		if !ok {
			continue
		}
		value, err := loader(ctx, db, record)
		if err != nil {
			return fmt.Errorf("expanding %s: %w", name, err)
		}
		record[name] = value
	}
	return nil
}

// allowsOperator reports whether the descriptor declares op for field
func (d *Descriptor) allowsOperator(field string, op Operator) bool {
	for _, allowed := range d.Filters[field] {
		if allowed == op {
			return true
		}
	}
	return false
}

// allowsOrder reports whether field is a declared sort key
func (d *Descriptor) allowsOrder(field string) bool {
	for _, allowed := range d.OrderBy {
		if allowed == field {
			return true
		}
	}
	return false
}

// allowsOptional reports whether field may be expanded
func (d *Descriptor) allowsOptional(field string) bool {
	for _, allowed := range d.Optional {
		if allowed == field {
			return true
		}
	}
	return false
}

// clampLimit applies the default and maximum page-size rules
func (d *Descriptor) clampLimit(requested int) int {
	limit := requested
	if limit <= 0 {
		limit = d.DefaultLimit
	}
	if limit > d.MaxLimit {
		limit = d.MaxLimit
	}
	return limit
}
