package orders

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/saurabh1e/pos-api/internal/auth"
	"github.com/saurabh1e/pos-api/internal/resource"
	"github.com/saurabh1e/pos-api/internal/schema"
)

func itemSchema() *schema.Schema {
	return schema.MustNew("item",
		&schema.Field{Name: "id", Type: schema.Int, DumpOnly: true},
		&schema.Field{Name: "name", Type: schema.String},
		&schema.Field{Name: "unit_price", Type: schema.Float, Required: true},
		&schema.Field{Name: "quantity", Type: schema.Float, Required: true},
		&schema.Field{Name: "discount", Type: schema.Float},
		&schema.Field{Name: "stock_adjust", Type: schema.Bool},
		&schema.Field{Name: "order_id", Type: schema.Int, Required: true},
		&schema.Field{Name: "stock_id", Type: schema.Int},
		// store_id is copied from the owning order on create
		&schema.Field{Name: "store_id", Type: schema.Int, DumpOnly: true},
		&schema.Field{Name: "total_price", Type: schema.Float, DumpOnly: true, Compute: itemTotalPrice},
		&schema.Field{Name: "discounted_unit_price", Type: schema.Float, DumpOnly: true, Compute: itemDiscountedUnitPrice},
		&schema.Field{Name: "discount_amount", Type: schema.Float, DumpOnly: true, Compute: itemDiscountAmount},
		&schema.Field{Name: "created_on", Type: schema.Timestamp, DumpOnly: true},
	)
}

func itemTotalPrice(record map[string]interface{}) interface{} {
	return resource.RecordFloat64(record, "unit_price") * resource.RecordFloat64(record, "quantity")
}

func itemDiscountedUnitPrice(record map[string]interface{}) interface{} {
	unitPrice := resource.RecordFloat64(record, "unit_price")
	return unitPrice - (unitPrice*resource.RecordFloat64(record, "discount"))/100
}

func itemDiscountAmount(record map[string]interface{}) interface{} {
	total := resource.RecordFloat64(record, "unit_price") * resource.RecordFloat64(record, "quantity")
	return (total * resource.RecordFloat64(record, "discount")) / 100
}

func itemDescriptor() *resource.Descriptor {
	return &resource.Descriptor{
		Name:   "item",
		Table:  "items",
		Schema: itemSchema(),
		Filters: map[string][]resource.Operator{
			"id":         {resource.Equal, resource.In},
			"order_id":   {resource.Equal, resource.In},
			"store_id":   {resource.Equal, resource.In},
			"stock_id":   {resource.Equal, resource.In},
			"created_on": {resource.DateLesserEqual, resource.DateEqual, resource.DateGreaterEqual},
		},
		OrderBy:      []string{"id"},
		AuthRequired: true,
	}
}

// itemGate scopes items through the store of their order; new items
// inherit that store inside the create transaction
type itemGate struct{}

func (itemGate) Read(ctx context.Context, p *auth.Principal, q *resource.Query) *resource.Query {
	if p == nil {
		return q.WhereNone()
	}
	return q.WhereIn("store_id", resource.Int64Values(p.StoreIDs))
}

func (itemGate) CanChange(ctx context.Context, p *auth.Principal, record map[string]interface{}) bool {
	return p != nil && p.HasStoreAccess(resource.RecordInt64(record, "store_id"))
}

func (itemGate) CanDelete(ctx context.Context, p *auth.Principal, record map[string]interface{}) bool {
	return p != nil && p.HasStoreAccess(resource.RecordInt64(record, "store_id"))
}

func (itemGate) CanAdd(ctx context.Context, tx *sql.Tx, p *auth.Principal, records []map[string]interface{}) (bool, error) {
	if p == nil {
		return false, nil
	}
	for _, record := range records {
		var storeID int64
		err := tx.QueryRowContext(ctx,
			"SELECT store_id FROM orders WHERE id = $1",
			resource.RecordInt64(record, "order_id"),
		).Scan(&storeID)
		if err == sql.ErrNoRows {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("resolving order store: %w", err)
		}
		if !p.HasStoreAccess(storeID) {
			return false, nil
		}
		record["store_id"] = storeID
	}
	return true, nil
}
