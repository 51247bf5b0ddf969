// Package products declares the catalogue entities: products, brands,
// taxes, stocks, distributors, their bills and the product/tax link.
package products

import (
	"context"
	"database/sql"

	"github.com/saurabh1e/pos-api/internal/auth"
	"github.com/saurabh1e/pos-api/internal/resource"
	"github.com/saurabh1e/pos-api/internal/schema"
)

func productSchema() *schema.Schema {
	return schema.MustNew("product",
		&schema.Field{Name: "id", Type: schema.Int, DumpOnly: true},
		&schema.Field{Name: "name", Type: schema.String, Required: true},
		&schema.Field{Name: "description", Type: schema.JSON},
		&schema.Field{Name: "sub_description", Type: schema.Text},
		&schema.Field{Name: "is_disabled", Type: schema.Bool},
		&schema.Field{Name: "drug_schedule", Type: schema.String},
		&schema.Field{Name: "drug_type", Type: schema.String},
		&schema.Field{Name: "dosage", Type: schema.String},
		&schema.Field{Name: "price", Type: schema.Float},
		&schema.Field{Name: "prescription_required", Type: schema.Bool},
		&schema.Field{Name: "is_loose", Type: schema.Bool},
		&schema.Field{Name: "barcode", Type: schema.String},
		&schema.Field{Name: "brand_id", Type: schema.Int, Required: true},
		&schema.Field{Name: "store_id", Type: schema.Int, Required: true},
		&schema.Field{Name: "created_on", Type: schema.Timestamp, DumpOnly: true},
		&schema.Field{Name: "updated_on", Type: schema.Timestamp, DumpOnly: true, Optional: true},
		&schema.Field{Name: "brand", DumpOnly: true, Optional: true,
			Nested: &schema.Nested{Schema: brandSchema(), Fields: []string{"id", "name"}}},
	)
}

// expandProductBrand loads the owning brand row for ?optional=brand
func expandProductBrand(ctx context.Context, db *sql.DB, record map[string]interface{}) (interface{}, error) {
	brandID := resource.RecordInt64(record, "brand_id")
	if brandID == 0 {
		return nil, nil
	}
	row, err := resource.NewQuery("brands").
		Where("id", resource.Equal, brandID).
		First(ctx, db)
	if resource.IsNotFound(err) {
		return nil, nil
	}
	return row, err
}

func productDescriptor() *resource.Descriptor {
	return &resource.Descriptor{
		Name:   "product",
		Table:  "products",
		Schema: productSchema(),
		Filters: map[string][]resource.Operator{
			"name":        {resource.Equal, resource.Contains},
			"barcode":     {resource.Equal},
			"id":          {resource.Equal, resource.In, resource.NotEqual, resource.NotIn},
			"brand_id":    {resource.Equal, resource.In},
			"is_disabled": {resource.Boolean},
			"price":       {resource.Equal, resource.Greater, resource.GreaterEqual, resource.Lesser, resource.LesserEqual},
			"created_on":  {resource.DateLesserEqual, resource.DateEqual, resource.DateGreaterEqual},
			"updated_on":  {resource.GreaterEqual, resource.DateGreaterEqual, resource.DateEqual, resource.DateLesserEqual},
		},
		OrderBy:  []string{"id", "name"},
		Optional: []string{"updated_on", "brand"},
		Expanders: map[string]resource.Expander{
			"brand": expandProductBrand,
		},
		DefaultLimit: 100,
		MaxLimit:     500,
		AuthRequired: true,
	}
}

// productGate narrows the catalogue to the principal's stores and hides
// disabled rows from every reader
type productGate struct{}

func (productGate) Read(ctx context.Context, p *auth.Principal, q *resource.Query) *resource.Query {
	if p == nil {
		return q.WhereNone()
	}
	// IS NOT TRUE keeps rows whose flag was never set
	return q.WhereIn("store_id", resource.Int64Values(p.StoreIDs)).
		WhereNotTrue("is_disabled")
}

func (productGate) CanChange(ctx context.Context, p *auth.Principal, record map[string]interface{}) bool {
	return p != nil && p.HasStoreAccess(resource.RecordInt64(record, "store_id")) &&
		p.HasPermission("change_product")
}

func (productGate) CanDelete(ctx context.Context, p *auth.Principal, record map[string]interface{}) bool {
	return p != nil && p.HasStoreAccess(resource.RecordInt64(record, "store_id")) &&
		p.HasPermission("remove_product")
}

func (productGate) CanAdd(ctx context.Context, tx *sql.Tx, p *auth.Principal, records []map[string]interface{}) (bool, error) {
	return p != nil && p.HasPermission("create_product"), nil
}
