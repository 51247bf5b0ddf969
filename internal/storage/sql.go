package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// Querier is satisfied by both *sql.DB and *sql.Tx
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ScanRows scans SQL rows into a slice of records
func ScanRows(rows *sql.Rows) ([]map[string]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		record := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			record[col] = values[i]
		}

		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// InsertSQL builds an INSERT ... RETURNING * statement for a record.
// Columns are emitted in sorted order so the statement is deterministic.
func InsertSQL(table string, record map[string]interface{}) (string, []interface{}) {
	columns := sortedColumns(record)

	placeholders := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	for i, col := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = record[col]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)
	return query, args
}

// UpdateSQL builds an UPDATE ... RETURNING * statement setting the given
// record fields on the row matched by the key conditions
func UpdateSQL(table string, record map[string]interface{}, keys map[string]interface{}) (string, []interface{}) {
	columns := sortedColumns(record)

	setClauses := make([]string, len(columns))
	args := make([]interface{}, 0, len(columns)+len(keys))
	param := 1
	for i, col := range columns {
		setClauses[i] = fmt.Sprintf("%s = $%d", col, param)
		args = append(args, record[col])
		param++
	}

	whereClauses := make([]string, 0, len(keys))
	for _, key := range sortedColumns(keys) {
		whereClauses = append(whereClauses, fmt.Sprintf("%s = $%d", key, param))
		args = append(args, keys[key])
		param++
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s RETURNING *",
		table,
		strings.Join(setClauses, ", "),
		strings.Join(whereClauses, " AND "),
	)
	return query, args
}

// DeleteSQL builds a DELETE statement for the row matched by the key conditions
func DeleteSQL(table string, keys map[string]interface{}) (string, []interface{}) {
	whereClauses := make([]string, 0, len(keys))
	args := make([]interface{}, 0, len(keys))
	param := 1
	for _, key := range sortedColumns(keys) {
		whereClauses = append(whereClauses, fmt.Sprintf("%s = $%d", key, param))
		args = append(args, keys[key])
		param++
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s", table, strings.Join(whereClauses, " AND "))
	return query, args
}

func sortedColumns(record map[string]interface{}) []string {
	columns := make([]string, 0, len(record))
	for col := range record {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns
}
