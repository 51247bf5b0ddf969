package products

import (
	"context"
	"database/sql"

	"github.com/saurabh1e/pos-api/internal/auth"
	"github.com/saurabh1e/pos-api/internal/resource"
	"github.com/saurabh1e/pos-api/internal/schema"
)

func stockSchema() *schema.Schema {
	return schema.MustNew("stock",
		&schema.Field{Name: "id", Type: schema.Int, DumpOnly: true},
		&schema.Field{Name: "purchase_amount", Type: schema.Float},
		&schema.Field{Name: "selling_amount", Type: schema.Float},
		&schema.Field{Name: "units_purchased", Type: schema.Int},
		&schema.Field{Name: "units_sold", Type: schema.Int},
		&schema.Field{Name: "batch_number", Type: schema.String},
		&schema.Field{Name: "expiry_date", Type: schema.Date},
		&schema.Field{Name: "is_sold", Type: schema.Bool},
		&schema.Field{Name: "default_stock", Type: schema.Bool},
		&schema.Field{Name: "distributor_bill_id", Type: schema.Int},
		&schema.Field{Name: "product_id", Type: schema.Int, Required: true},
		// store_id is stamped from the acting principal on create
		&schema.Field{Name: "store_id", Type: schema.Int, DumpOnly: true},
		&schema.Field{Name: "created_on", Type: schema.Timestamp, DumpOnly: true},
		&schema.Field{Name: "updated_on", Type: schema.Timestamp, DumpOnly: true, Optional: true},
	)
}

func stockDescriptor() *resource.Descriptor {
	return &resource.Descriptor{
		Name:   "stock",
		Table:  "stocks",
		Schema: stockSchema(),
		Filters: map[string][]resource.Operator{
			"is_sold":     {resource.Boolean},
			"units_sold":  {resource.Equal, resource.Lesser, resource.LesserEqual},
			"store_id":    {resource.Equal, resource.In},
			"product_id":  {resource.Equal, resource.In},
			"id":          {resource.Equal, resource.In, resource.NotEqual, resource.NotIn},
			"updated_on":  {resource.DateGreaterEqual, resource.DateEqual, resource.DateLesserEqual},
			"created_on":  {resource.DateLesserEqual, resource.DateEqual, resource.DateGreaterEqual, resource.DateBetween},
			"expiry_date": {resource.DateLesserEqual, resource.DateEqual, resource.DateGreaterEqual, resource.DateBetween},
		},
		OrderBy:       []string{"expiry_date", "units_sold", "created_on"},
		Optional:      []string{"updated_on"},
		AuthRequired:  true,
		RolesAccepted: []string{"admin", "owner", "staff"},
	}
}

// stockGate scopes stock rows to the principal's stores and stamps the
// principal's primary store on new rows
type stockGate struct{}

func (stockGate) Read(ctx context.Context, p *auth.Principal, q *resource.Query) *resource.Query {
	if p == nil {
		return q.WhereNone()
	}
	return q.WhereIn("store_id", resource.Int64Values(p.StoreIDs))
}

func (stockGate) CanChange(ctx context.Context, p *auth.Principal, record map[string]interface{}) bool {
	return p != nil && p.HasStoreAccess(resource.RecordInt64(record, "store_id")) &&
		p.HasPermission("change_stock")
}

func (stockGate) CanDelete(ctx context.Context, p *auth.Principal, record map[string]interface{}) bool {
	return p != nil && p.HasStoreAccess(resource.RecordInt64(record, "store_id")) &&
		p.HasPermission("remove_stock")
}

func (stockGate) CanAdd(ctx context.Context, tx *sql.Tx, p *auth.Principal, records []map[string]interface{}) (bool, error) {
	if p == nil || len(p.StoreIDs) == 0 {
		return false, nil
	}
	for _, record := range records {
		record["store_id"] = p.StoreIDs[0]
	}
	return true, nil
}
