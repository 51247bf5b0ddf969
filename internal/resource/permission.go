package resource

import (
	"context"
	"database/sql"

	"github.com/saurabh1e/pos-api/internal/auth"
)

// Gate is the four-hook authorization contract evaluated per operation.
// Hooks are total: absence of a permission is expressed by returning
// false or an empty narrowing, never by an error. CanAdd runs inside the
// create transaction and may stamp system-owned fields on the candidate
// records as part of authorizing them; its error return is for storage
// failures only.
type Gate interface {
	// Read narrows the collection to rows the principal may see. It must
	// return either a narrowed query or an always-empty one, never the
	// unfiltered collection for a principal lacking view permission.
	Read(ctx context.Context, p *auth.Principal, q *Query) *Query

	// CanChange authorizes an update of a record already fetched from the
	// narrowed collection
	CanChange(ctx context.Context, p *auth.Principal, record map[string]interface{}) bool

	// CanDelete authorizes removal of a record already fetched from the
	// narrowed collection
	CanDelete(ctx context.Context, p *auth.Principal, record map[string]interface{}) bool

	// CanAdd authorizes the candidate records as one batch and stamps any
	// system-owned fields before they persist
	CanAdd(ctx context.Context, tx *sql.Tx, p *auth.Principal, records []map[string]interface{}) (bool, error)
}

// AssociationGate is the Gate variant for join entities; change and
// delete hooks also receive the raw payload because the context they
// need (e.g. the foreign id being attached) may not be resolvable from
// the record alone.
type AssociationGate interface {
	Read(ctx context.Context, p *auth.Principal, q *Query) *Query
	CanChange(ctx context.Context, p *auth.Principal, record, payload map[string]interface{}) bool
	CanDelete(ctx context.Context, p *auth.Principal, record, payload map[string]interface{}) bool
	CanAdd(ctx context.Context, tx *sql.Tx, p *auth.Principal, records []map[string]interface{}) (bool, error)
}

// OpenGate performs an identity read transform and allows every mutation.
// For resources with no tenant restriction of their own.
type OpenGate struct{}

func (OpenGate) Read(ctx context.Context, p *auth.Principal, q *Query) *Query {
	return q
}

func (OpenGate) CanChange(ctx context.Context, p *auth.Principal, record map[string]interface{}) bool {
	return true
}

func (OpenGate) CanDelete(ctx context.Context, p *auth.Principal, record map[string]interface{}) bool {
	return true
}

func (OpenGate) CanAdd(ctx context.Context, tx *sql.Tx, p *auth.Principal, records []map[string]interface{}) (bool, error) {
	return true, nil
}

// NarrowToStores applies the standard tenant scope: the principal needs
// the view permission, and sees only rows of stores it belongs to
func NarrowToStores(q *Query, p *auth.Principal, viewPermission string) *Query {
	if p == nil || !p.HasPermission(viewPermission) {
		return q.WhereNone()
	}
	return q.WhereIn("store_id", Int64Values(p.StoreIDs))
}

// NarrowToOrganisation scopes rows to the principal's organisation
func NarrowToOrganisation(q *Query, p *auth.Principal, viewPermission string) *Query {
	if p == nil || !p.HasPermission(viewPermission) {
		return q.WhereNone()
	}
	return q.Where("organisation_id", Equal, p.OrganisationID)
}

// Int64Values converts ids to the value list the query builder takes
func Int64Values(ids []int64) []interface{} {
	values := make([]interface{}, len(ids))
	for i, id := range ids {
		values[i] = id
	}
	return values
}

// RecordFloat64 reads a numeric column from a scanned record, tolerating
// the numeric types database/sql hands back
func RecordFloat64(record map[string]interface{}, field string) float64 {
	switch v := record[field].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

// RecordInt64 reads an integer column from a scanned record, tolerating
// the numeric types database/sql hands back
func RecordInt64(record map[string]interface{}, field string) int64 {
	switch v := record[field].(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}
