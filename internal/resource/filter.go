package resource

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// FilterSpec is one typed predicate parsed from a query parameter
type FilterSpec struct {
	Field    string
	Operator Operator
	Raw      string
	Value    interface{}
}

// ListParams carries everything a list request can ask for: filters,
// ordering, pagination, and optional-field expansion
type ListParams struct {
	Filters   []FilterSpec
	OrderBy   string
	OrderDesc bool
	Limit     int
	Offset    int
	Expand    []string
}

// Reserved parameter names that are not filters
const (
	paramOrderBy  = "__order_by__"
	paramLimit    = "__limit__"
	paramOffset   = "__offset__"
	paramOptional = "optional"
)

// ParseListParams parses the query string against the descriptor's filter
// table. Filter parameters follow __<field>__<operator>=<value>; unknown
// fields or operators yield a FilterError. Repeated parameters combine
// with AND. Parameters without the double-underscore prefix (other than
// "optional") are ignored.
func ParseListParams(values url.Values, d *Descriptor) (*ListParams, error) {
	params := &ListParams{}

	// Deterministic parse order regardless of map iteration
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		switch key {
		case paramOrderBy:
			if err := parseOrderBy(values.Get(key), d, params); err != nil {
				return nil, err
			}
			continue
		case paramLimit:
			n, err := parseNonNegative(values.Get(key))
			if err != nil {
				return nil, NewFilterError(key, "must be a non-negative integer")
			}
			params.Limit = n
			continue
		case paramOffset:
			n, err := parseNonNegative(values.Get(key))
			if err != nil {
				return nil, NewFilterError(key, "must be a non-negative integer")
			}
			params.Offset = n
			continue
		case paramOptional:
			if err := parseOptional(values[key], d, params); err != nil {
				return nil, err
			}
			continue
		}

		if !strings.HasPrefix(key, "__") {
			continue
		}

		field, op, err := splitFilterKey(key)
		if err != nil {
			return nil, err
		}

		if !d.allowsOperator(field, op) {
			return nil, NewFilterError(key, "unknown filter")
		}

		f, _ := d.Schema.Field(field)
		for _, raw := range values[key] {
			value, err := op.Coerce(raw, f.Type)
			if err != nil {
				return nil, NewFilterError(key, err.Error())
			}
			params.Filters = append(params.Filters, FilterSpec{
				Field:    field,
				Operator: op,
				Raw:      raw,
				Value:    value,
			})
		}
	}

	return params, nil
}

// splitFilterKey breaks __<field>__<operator> into its parts. The field
// may itself contain single underscores, so the split is on the last
// double-underscore separator.
func splitFilterKey(key string) (string, Operator, error) {
	rest := strings.TrimPrefix(key, "__")
	idx := strings.LastIndex(rest, "__")
	if idx <= 0 || idx+2 >= len(rest) {
		return "", 0, NewFilterError(key, "malformed filter parameter")
	}

	field := rest[:idx]
	token := rest[idx+2:]

	op, ok := ParseOperator(token)
	if !ok {
		return "", 0, NewFilterError(key, "unknown operator")
	}
	return field, op, nil
}

func parseOrderBy(value string, d *Descriptor, params *ListParams) error {
	if value == "" {
		return nil
	}

	field := value
	if strings.HasPrefix(field, "-") {
		params.OrderDesc = true
		field = field[1:]
	}

	if !d.allowsOrder(field) {
		return NewFilterError(paramOrderBy, "unknown sort key")
	}

	params.OrderBy = field
	return nil
}

func parseOptional(values []string, d *Descriptor, params *ListParams) error {
	for _, value := range values {
		for _, name := range strings.Split(value, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if !d.allowsOptional(name) {
				return NewFilterError(paramOptional, "unknown optional field "+name)
			}
			params.Expand = append(params.Expand, name)
		}
	}
	return nil
}

func parseNonNegative(value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
