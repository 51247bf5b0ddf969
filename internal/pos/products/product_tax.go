package products

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/saurabh1e/pos-api/internal/auth"
	"github.com/saurabh1e/pos-api/internal/resource"
	"github.com/saurabh1e/pos-api/internal/schema"
)

func productTaxSchema() *schema.Schema {
	return schema.MustNew("product_tax",
		&schema.Field{Name: "id", Type: schema.Int, DumpOnly: true},
		&schema.Field{Name: "product_id", Type: schema.Int, Required: true},
		&schema.Field{Name: "tax_id", Type: schema.Int, Required: true},
		// store_id is copied from the product on create
		&schema.Field{Name: "store_id", Type: schema.Int, DumpOnly: true},
	)
}

func productTaxDescriptor() *resource.AssociationDescriptor {
	return &resource.AssociationDescriptor{
		Descriptor: resource.Descriptor{
			Name:   "product_tax",
			Table:  "product_taxes",
			Schema: productTaxSchema(),
			Filters: map[string][]resource.Operator{
				"product_id": {resource.Equal, resource.In},
				"tax_id":     {resource.Equal, resource.In},
				"store_id":   {resource.Equal, resource.In},
			},
			OrderBy:      []string{"product_id", "tax_id"},
			MaxLimit:     500,
			AuthRequired: true,
		},
		LeftKey:  "product_id",
		RightKey: "tax_id",
	}
}

// productTaxGate scopes the link rows by store and resolves the store of
// a new link through its product inside the create transaction
type productTaxGate struct{}

func (productTaxGate) Read(ctx context.Context, p *auth.Principal, q *resource.Query) *resource.Query {
	return resource.NarrowToStores(q, p, "view_product_tax")
}

func (productTaxGate) CanChange(ctx context.Context, p *auth.Principal, record, payload map[string]interface{}) bool {
	return p != nil && p.HasStoreAccess(resource.RecordInt64(record, "store_id")) &&
		p.HasPermission("change_product_tax")
}

func (productTaxGate) CanDelete(ctx context.Context, p *auth.Principal, record, payload map[string]interface{}) bool {
	return p != nil && p.HasStoreAccess(resource.RecordInt64(record, "store_id")) &&
		p.HasPermission("remove_product_tax")
}

func (productTaxGate) CanAdd(ctx context.Context, tx *sql.Tx, p *auth.Principal, records []map[string]interface{}) (bool, error) {
	if p == nil || !p.HasPermission("create_product_tax") {
		return false, nil
	}
	for _, record := range records {
		var storeID int64
		err := tx.QueryRowContext(ctx,
			"SELECT store_id FROM products WHERE id = $1",
			resource.RecordInt64(record, "product_id"),
		).Scan(&storeID)
		if err == sql.ErrNoRows {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("resolving product store: %w", err)
		}
		if !p.HasStoreAccess(storeID) {
			return false, nil
		}
		record["store_id"] = storeID
	}
	return true, nil
}
