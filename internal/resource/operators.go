// Package resource turns declarative resource descriptors into tenant-scoped
// CRUD REST endpoints: filter parsing, permission narrowing, query building,
// and the request lifecycle.
package resource

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/saurabh1e/pos-api/internal/schema"
)

// Operator is the closed set of filter operators exposed through the
// query-parameter DSL
type Operator int

const (
	Equal Operator = iota
	NotEqual
	In
	NotIn
	Contains
	Boolean
	Greater
	GreaterEqual
	Lesser
	LesserEqual
	DateEqual
	DateGreaterEqual
	DateLesserEqual
	DateBetween
)

var operatorTokens = map[string]Operator{
	"equal":        Equal,
	"not_equal":    NotEqual,
	"in":           In,
	"not_in":       NotIn,
	"contains":     Contains,
	"bool":         Boolean,
	"gt":           Greater,
	"gte":          GreaterEqual,
	"lt":           Lesser,
	"lte":          LesserEqual,
	"date_equal":   DateEqual,
	"date_gte":     DateGreaterEqual,
	"date_lte":     DateLesserEqual,
	"date_between": DateBetween,
}

// String returns the URL token for the operator
func (o Operator) String() string {
	for token, op := range operatorTokens {
		if op == o {
			return token
		}
	}
	return "unknown"
}

// ParseOperator maps a URL token to an operator
func ParseOperator(token string) (Operator, bool) {
	op, ok := operatorTokens[token]
	return op, ok
}

// Comparison reports whether the operator is an ordered comparison
func (o Operator) Comparison() bool {
	switch o {
	case Greater, GreaterEqual, Lesser, LesserEqual:
		return true
	default:
		return false
	}
}

// Temporal reports whether the operator is date-valued
func (o Operator) Temporal() bool {
	switch o {
	case DateEqual, DateGreaterEqual, DateLesserEqual, DateBetween:
		return true
	default:
		return false
	}
}

// CompatibleWith reports whether the operator may be declared against a
// field of the given type. Incompatible declarations are configuration
// errors caught at registration time.
func (o Operator) CompatibleWith(t schema.FieldType) bool {
	switch {
	case o == Contains:
		return t.Textual()
	case o == Boolean:
		return t == schema.Bool
	case o.Comparison():
		return t.Comparable()
	case o.Temporal():
		return t.Temporal()
	default:
		return true
	}
}

// Coerce converts the raw query-parameter value into the operator's typed
// value: a scalar, a list for In/NotIn, or a [low, high] pair for DateBetween
func (o Operator) Coerce(raw string, t schema.FieldType) (interface{}, error) {
	switch o {
	case In, NotIn:
		parts := strings.Split(raw, ",")
		values := make([]interface{}, 0, len(parts))
		for _, part := range parts {
			v, err := coerceScalar(strings.TrimSpace(part), t)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return values, nil

	case Boolean:
		switch strings.ToLower(raw) {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		default:
			return nil, fmt.Errorf("invalid boolean value %q", raw)
		}

	case Contains:
		if raw == "" {
			return nil, fmt.Errorf("empty value")
		}
		return raw, nil

	case DateEqual, DateGreaterEqual, DateLesserEqual:
		return coerceDate(raw)

	case DateBetween:
		parts := strings.Split(raw, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("expected two comma-separated dates, got %d", len(parts))
		}
		low, err := coerceDate(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, err
		}
		high, err := coerceDate(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, err
		}
		return []interface{}{low, high}, nil

	default:
		return coerceScalar(raw, t)
	}
}

// SQL emits the parameterized predicate for the operator. Date operators
// truncate the column with a ::date cast so comparisons are date-only.
func (o Operator) SQL(field string, value interface{}, paramCounter *int, args *[]interface{}) (string, error) {
	switch o {
	case Equal, Boolean:
		*args = append(*args, value)
		sql := fmt.Sprintf("%s = $%d", field, *paramCounter)
		*paramCounter++
		return sql, nil

	case NotEqual:
		*args = append(*args, value)
		sql := fmt.Sprintf("%s != $%d", field, *paramCounter)
		*paramCounter++
		return sql, nil

	case Greater:
		*args = append(*args, value)
		sql := fmt.Sprintf("%s > $%d", field, *paramCounter)
		*paramCounter++
		return sql, nil

	case GreaterEqual:
		*args = append(*args, value)
		sql := fmt.Sprintf("%s >= $%d", field, *paramCounter)
		*paramCounter++
		return sql, nil

	case Lesser:
		*args = append(*args, value)
		sql := fmt.Sprintf("%s < $%d", field, *paramCounter)
		*paramCounter++
		return sql, nil

	case LesserEqual:
		*args = append(*args, value)
		sql := fmt.Sprintf("%s <= $%d", field, *paramCounter)
		*paramCounter++
		return sql, nil

	case In:
		values, ok := value.([]interface{})
		if !ok {
			return "", fmt.Errorf("in operator requires a value list")
		}
		if len(values) == 0 {
			// IN with an empty list never matches
			return "FALSE", nil
		}
		placeholders := make([]string, len(values))
		for i, v := range values {
			*args = append(*args, v)
			placeholders[i] = fmt.Sprintf("$%d", *paramCounter)
			*paramCounter++
		}
		return fmt.Sprintf("%s IN (%s)", field, strings.Join(placeholders, ", ")), nil

	case NotIn:
		values, ok := value.([]interface{})
		if !ok {
			return "", fmt.Errorf("not_in operator requires a value list")
		}
		if len(values) == 0 {
			return "TRUE", nil
		}
		placeholders := make([]string, len(values))
		for i, v := range values {
			*args = append(*args, v)
			placeholders[i] = fmt.Sprintf("$%d", *paramCounter)
			*paramCounter++
		}
		return fmt.Sprintf("%s NOT IN (%s)", field, strings.Join(placeholders, ", ")), nil

	case Contains:
		*args = append(*args, fmt.Sprintf("%%%v%%", value))
		sql := fmt.Sprintf("%s ILIKE $%d", field, *paramCounter)
		*paramCounter++
		return sql, nil

	case DateEqual:
		*args = append(*args, value)
		sql := fmt.Sprintf("%s::date = $%d::date", field, *paramCounter)
		*paramCounter++
		return sql, nil

	case DateGreaterEqual:
		*args = append(*args, value)
		sql := fmt.Sprintf("%s::date >= $%d::date", field, *paramCounter)
		*paramCounter++
		return sql, nil

	case DateLesserEqual:
		*args = append(*args, value)
		sql := fmt.Sprintf("%s::date <= $%d::date", field, *paramCounter)
		*paramCounter++
		return sql, nil

	case DateBetween:
		values, ok := value.([]interface{})
		if !ok || len(values) != 2 {
			return "", fmt.Errorf("date_between operator requires [low, high] values")
		}
		*args = append(*args, values[0], values[1])
		sql := fmt.Sprintf("%s::date BETWEEN $%d::date AND $%d::date",
			field, *paramCounter, *paramCounter+1)
		*paramCounter += 2
		return sql, nil

	default:
		return "", fmt.Errorf("unsupported operator: %v", o)
	}
}

// coerceScalar converts a raw string value to the field's declared type
func coerceScalar(raw string, t schema.FieldType) (interface{}, error) {
	switch t {
	case schema.Int:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer value %q", raw)
		}
		return v, nil
	case schema.Float:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid numeric value %q", raw)
		}
		return v, nil
	case schema.Bool:
		switch strings.ToLower(raw) {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		default:
			return nil, fmt.Errorf("invalid boolean value %q", raw)
		}
	case schema.Date, schema.Timestamp:
		return coerceDate(raw)
	default:
		if raw == "" {
			return nil, fmt.Errorf("empty value")
		}
		return raw, nil
	}
}

// coerceDate validates an ISO-8601 date and normalizes it to yyyy-mm-dd,
// discarding any time-of-day component
func coerceDate(raw string) (interface{}, error) {
	t, err := schema.ParseDate(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid date value %q", raw)
	}
	return t.Format("2006-01-02"), nil
}
