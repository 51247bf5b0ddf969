package resource

import (
	"context"
	"fmt"
	"strings"

	"github.com/saurabh1e/pos-api/internal/storage"
)

type condition struct {
	field string
	op    Operator
	value interface{}
	// raw, when set, is emitted verbatim instead of op.SQL
	raw string
}

// Query composes permission narrowing, filters, ordering, and pagination
// into one executable SQL query. Narrowing is applied by the permission
// gate before any caller filter, so a denied principal can never observe
// row existence through filter side channels.
type Query struct {
	table   string
	denied  bool
	conds   []condition
	orderBy []string
	limit   *int
	offset  *int
}

// NewQuery creates a query over the entity's full collection
func NewQuery(table string) *Query {
	return &Query{table: table}
}

// Where adds a predicate; predicates combine with AND
func (q *Query) Where(field string, op Operator, value interface{}) *Query {
	q.conds = append(q.conds, condition{field: field, op: op, value: value})
	return q
}

// WhereIn adds an IN predicate
func (q *Query) WhereIn(field string, values []interface{}) *Query {
	return q.Where(field, In, values)
}

// WhereNotTrue adds a predicate matching rows where the boolean column
// is FALSE or NULL. Unlike `!= TRUE`, an unset flag passes.
func (q *Query) WhereNotTrue(field string) *Query {
	q.conds = append(q.conds, condition{raw: field + " IS NOT TRUE"})
	return q
}

// WhereNone marks the collection as always empty. Used by read narrowing
// to deny access: denial dominates every later filter.
func (q *Query) WhereNone() *Query {
	q.denied = true
	return q
}

// Denied reports whether the query can never match
func (q *Query) Denied() bool {
	return q.denied
}

// ApplyFilters adds every parsed filter predicate
func (q *Query) ApplyFilters(specs []FilterSpec) *Query {
	for _, spec := range specs {
		q.Where(spec.Field, spec.Operator, spec.Value)
	}
	return q
}

// Order appends a sort key
func (q *Query) Order(field string, desc bool) *Query {
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	q.orderBy = append(q.orderBy, fmt.Sprintf("%s %s", field, dir))
	return q
}

// Page sets limit and offset
func (q *Query) Page(limit, offset int) *Query {
	q.limit = &limit
	q.offset = &offset
	return q
}

// Clone copies the query so narrowed bases can be reused per operation
func (q *Query) Clone() *Query {
	clone := &Query{
		table:   q.table,
		denied:  q.denied,
		conds:   make([]condition, len(q.conds)),
		orderBy: make([]string, len(q.orderBy)),
	}
	copy(clone.conds, q.conds)
	copy(clone.orderBy, q.orderBy)
	if q.limit != nil {
		limit := *q.limit
		clone.limit = &limit
	}
	if q.offset != nil {
		offset := *q.offset
		clone.offset = &offset
	}
	return clone
}

// SelectSQL generates the SELECT statement and parameter bindings
func (q *Query) SelectSQL() (string, []interface{}, error) {
	var sb strings.Builder
	args := make([]interface{}, 0)
	paramCounter := 1

	sb.WriteString(fmt.Sprintf("SELECT * FROM %s", q.table))

	where, err := q.whereSQL(&paramCounter, &args)
	if err != nil {
		return "", nil, err
	}
	sb.WriteString(where)

	if len(q.orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(q.orderBy, ", "))
	}

	if q.limit != nil {
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", paramCounter))
		args = append(args, *q.limit)
		paramCounter++
	}

	if q.offset != nil {
		sb.WriteString(fmt.Sprintf(" OFFSET $%d", paramCounter))
		args = append(args, *q.offset)
		paramCounter++
	}

	return sb.String(), args, nil
}

// CountSQL generates the COUNT statement over the filtered collection,
// ignoring ordering and pagination
func (q *Query) CountSQL() (string, []interface{}, error) {
	var sb strings.Builder
	args := make([]interface{}, 0)
	paramCounter := 1

	sb.WriteString(fmt.Sprintf("SELECT COUNT(*) FROM %s", q.table))

	where, err := q.whereSQL(&paramCounter, &args)
	if err != nil {
		return "", nil, err
	}
	sb.WriteString(where)

	return sb.String(), args, nil
}

func (q *Query) whereSQL(paramCounter *int, args *[]interface{}) (string, error) {
	if len(q.conds) == 0 {
		return "", nil
	}

	parts := make([]string, 0, len(q.conds))
	for _, cond := range q.conds {
		if cond.raw != "" {
			parts = append(parts, cond.raw)
			continue
		}
		sql, err := cond.op.SQL(cond.field, cond.value, paramCounter, args)
		if err != nil {
			return "", fmt.Errorf("failed to build condition on %s: %w", cond.field, err)
		}
		parts = append(parts, sql)
	}

	return " WHERE " + strings.Join(parts, " AND "), nil
}

// All executes the query and returns all matching records. A denied
// query returns an empty result without touching storage.
func (q *Query) All(ctx context.Context, db storage.Querier) ([]map[string]interface{}, error) {
	if q.denied {
		return nil, nil
	}

	sql, args, err := q.SelectSQL()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	return storage.ScanRows(rows)
}

// First executes the query and returns the first matching record,
// or ErrNotFound
func (q *Query) First(ctx context.Context, db storage.Querier) (map[string]interface{}, error) {
	if q.denied {
		return nil, ErrNotFound
	}

	limited := q.Clone()
	one := 1
	limited.limit = &one

	results, err := limited.All(ctx, db)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNotFound
	}
	return results[0], nil
}

// Count returns the number of records the filtered collection holds
func (q *Query) Count(ctx context.Context, db storage.Querier) (int, error) {
	if q.denied {
		return 0, nil
	}

	sql, args, err := q.CountSQL()
	if err != nil {
		return 0, err
	}

	var count int
	if err := db.QueryRowContext(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to execute count query: %w", err)
	}

	return count, nil
}
