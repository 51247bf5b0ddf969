package products

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/saurabh1e/pos-api/internal/auth"
	"github.com/saurabh1e/pos-api/internal/pos"
	"github.com/saurabh1e/pos-api/internal/resource"
	"github.com/saurabh1e/pos-api/internal/schema"
)

func distributorSchema() *schema.Schema {
	return schema.MustNew("distributor",
		&schema.Field{Name: "id", Type: schema.Int, DumpOnly: true},
		&schema.Field{Name: "name", Type: schema.String, Required: true},
		&schema.Field{Name: "phone_numbers", Type: schema.JSON},
		&schema.Field{Name: "emails", Type: schema.JSON},
		&schema.Field{Name: "store_id", Type: schema.Int, Required: true},
		&schema.Field{Name: "created_on", Type: schema.Timestamp, DumpOnly: true},
		&schema.Field{Name: "updated_on", Type: schema.Timestamp, DumpOnly: true, Optional: true},
	)
}

func distributorDescriptor() *resource.Descriptor {
	return &resource.Descriptor{
		Name:   "distributor",
		Table:  "distributors",
		Schema: distributorSchema(),
		Filters: map[string][]resource.Operator{
			"id":         {resource.Equal, resource.In},
			"name":       {resource.Equal, resource.Contains},
			"store_id":   {resource.Equal, resource.In},
			"created_on": {resource.DateLesserEqual, resource.DateEqual, resource.DateGreaterEqual},
			"updated_on": {resource.GreaterEqual, resource.DateGreaterEqual, resource.DateEqual, resource.DateLesserEqual},
		},
		OrderBy:      []string{"store_id", "id", "name"},
		Optional:     []string{"updated_on"},
		AuthRequired: true,
	}
}

func distributorGate() resource.Gate {
	return pos.StoreGate{
		View:   "view_distributor",
		Change: "change_distributor",
		Delete: "remove_distributor",
		Create: "create_distributor",
	}
}

func distributorBillSchema() *schema.Schema {
	return schema.MustNew("distributor_bill",
		&schema.Field{Name: "id", Type: schema.Int, DumpOnly: true},
		&schema.Field{Name: "purchase_date", Type: schema.Date, Required: true},
		&schema.Field{Name: "reference_number", Type: schema.String},
		&schema.Field{Name: "distributor_id", Type: schema.Int, Required: true},
		// store_id is copied from the owning distributor on create
		&schema.Field{Name: "store_id", Type: schema.Int, DumpOnly: true},
		&schema.Field{Name: "created_on", Type: schema.Timestamp, DumpOnly: true},
	)
}

func distributorBillDescriptor() *resource.Descriptor {
	return &resource.Descriptor{
		Name:   "distributor_bill",
		Table:  "distributor_bills",
		Schema: distributorBillSchema(),
		Filters: map[string][]resource.Operator{
			"id":             {resource.Equal},
			"distributor_id": {resource.Equal, resource.In},
			"store_id":       {resource.Equal, resource.In},
			"created_on":     {resource.DateLesserEqual, resource.DateEqual, resource.DateGreaterEqual},
			"purchase_date":  {resource.DateLesserEqual, resource.DateEqual, resource.DateGreaterEqual, resource.DateBetween},
		},
		OrderBy:       []string{"id", "purchase_date"},
		DefaultLimit:  10,
		MaxLimit:      50,
		AuthRequired:  true,
		RolesRequired: []string{"admin"},
	}
}

// distributorBillGate resolves the bill's store through its distributor
// inside the create transaction; the caller never supplies store_id.
type distributorBillGate struct{}

func (distributorBillGate) Read(ctx context.Context, p *auth.Principal, q *resource.Query) *resource.Query {
	return resource.NarrowToStores(q, p, "view_distributor_bill")
}

func (distributorBillGate) CanChange(ctx context.Context, p *auth.Principal, record map[string]interface{}) bool {
	return p != nil && p.HasStoreAccess(resource.RecordInt64(record, "store_id")) &&
		p.HasPermission("change_distributor_bill")
}

func (distributorBillGate) CanDelete(ctx context.Context, p *auth.Principal, record map[string]interface{}) bool {
	return p != nil && p.HasStoreAccess(resource.RecordInt64(record, "store_id")) &&
		p.HasPermission("remove_distributor_bill")
}

func (distributorBillGate) CanAdd(ctx context.Context, tx *sql.Tx, p *auth.Principal, records []map[string]interface{}) (bool, error) {
	if p == nil || !p.HasPermission("create_distributor_bill") {
		return false, nil
	}
	for _, record := range records {
		var storeID int64
		err := tx.QueryRowContext(ctx,
			"SELECT store_id FROM distributors WHERE id = $1",
			resource.RecordInt64(record, "distributor_id"),
		).Scan(&storeID)
		if err == sql.ErrNoRows {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("resolving distributor store: %w", err)
		}
		if !p.HasStoreAccess(storeID) {
			return false, nil
		}
		record["store_id"] = storeID
	}
	return true, nil
}
