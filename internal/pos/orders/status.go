package orders

import (
	"context"
	"database/sql"

	"github.com/saurabh1e/pos-api/internal/auth"
	"github.com/saurabh1e/pos-api/internal/resource"
	"github.com/saurabh1e/pos-api/internal/schema"
)

func statusSchema() *schema.Schema {
	return schema.MustNew("status",
		&schema.Field{Name: "id", Type: schema.Int, DumpOnly: true},
		&schema.Field{Name: "name", Type: schema.String, Required: true},
		&schema.Field{Name: "code", Type: schema.Int, Required: true},
		&schema.Field{Name: "store_id", Type: schema.Int, Required: true},
	)
}

func statusDescriptor() *resource.Descriptor {
	return &resource.Descriptor{
		Name:   "status",
		Table:  "statuses",
		Schema: statusSchema(),
		Filters: map[string][]resource.Operator{
			"name":     {resource.Equal, resource.Contains},
			"code":     {resource.Equal},
			"store_id": {resource.Equal, resource.In},
		},
		OrderBy:       []string{"code", "id"},
		AuthRequired:  true,
		RolesRequired: []string{"admin"},
	}
}

// statusGate lets store members manage their own status board
type statusGate struct{}

func (statusGate) Read(ctx context.Context, p *auth.Principal, q *resource.Query) *resource.Query {
	if p == nil {
		return q.WhereNone()
	}
	return q.WhereIn("store_id", resource.Int64Values(p.StoreIDs))
}

func (statusGate) CanChange(ctx context.Context, p *auth.Principal, record map[string]interface{}) bool {
	return p != nil && p.HasStoreAccess(resource.RecordInt64(record, "store_id"))
}

func (statusGate) CanDelete(ctx context.Context, p *auth.Principal, record map[string]interface{}) bool {
	return p != nil && p.HasStoreAccess(resource.RecordInt64(record, "store_id"))
}

func (statusGate) CanAdd(ctx context.Context, tx *sql.Tx, p *auth.Principal, records []map[string]interface{}) (bool, error) {
	if p == nil {
		return false, nil
	}
	for _, record := range records {
		if !p.HasStoreAccess(resource.RecordInt64(record, "store_id")) {
			return false, nil
		}
	}
	return true, nil
}
