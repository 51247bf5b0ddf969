// Package orders declares the billing entities: orders, their line
// items and order statuses.
package orders

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/saurabh1e/pos-api/internal/auth"
	"github.com/saurabh1e/pos-api/internal/pos/users"
	"github.com/saurabh1e/pos-api/internal/resource"
	"github.com/saurabh1e/pos-api/internal/schema"
)

func orderSchema() *schema.Schema {
	return schema.MustNew("order",
		&schema.Field{Name: "id", Type: schema.Int, DumpOnly: true},
		&schema.Field{Name: "is_draft", Type: schema.Bool},
		&schema.Field{Name: "sub_total", Type: schema.Float},
		&schema.Field{Name: "total", Type: schema.Float},
		&schema.Field{Name: "amount_paid", Type: schema.Float},
		&schema.Field{Name: "auto_discount", Type: schema.Float},
		&schema.Field{Name: "is_void", Type: schema.Bool},
		&schema.Field{Name: "reference_number", Type: schema.String},
		// customer_id may also arrive as {"customer": {"name", "number"}},
		// resolved against the principal's organisation before load
		&schema.Field{Name: "customer_id", Type: schema.Int},
		// user_id, store_id and invoice_number are stamped inside the
		// create transaction, never taken from the payload
		&schema.Field{Name: "user_id", Type: schema.Int, DumpOnly: true},
		&schema.Field{Name: "store_id", Type: schema.Int, DumpOnly: true},
		&schema.Field{Name: "invoice_number", Type: schema.Int, DumpOnly: true},
		&schema.Field{Name: "amount_due", Type: schema.Float, DumpOnly: true, Compute: orderAmountDue},
		&schema.Field{Name: "created_on", Type: schema.Timestamp, DumpOnly: true},
		&schema.Field{Name: "updated_on", Type: schema.Timestamp, DumpOnly: true, Optional: true},
		&schema.Field{Name: "customer", DumpOnly: true, Optional: true,
			Nested: &schema.Nested{Schema: users.CustomerSchema(), Fields: []string{"id", "name", "number"}}},
	).WithResolver(resolveOrderCustomer)
}

// expandOrderCustomer loads the billed customer row for ?optional=customer
func expandOrderCustomer(ctx context.Context, db *sql.DB, record map[string]interface{}) (interface{}, error) {
	customerID := resource.RecordInt64(record, "customer_id")
	if customerID == 0 {
		return nil, nil
	}
	row, err := resource.NewQuery("customers").
		Where("id", resource.Equal, customerID).
		First(ctx, db)
	if resource.IsNotFound(err) {
		return nil, nil
	}
	return row, err
}

func orderAmountDue(record map[string]interface{}) interface{} {
	return resource.RecordFloat64(record, "total") - resource.RecordFloat64(record, "amount_paid")
}

// resolveOrderCustomer replaces a {"customer": {"name", "number"}} natural
// key with the matching customer_id inside the principal's organisation.
// On a miss the payload is left alone so validation rejects it.
func resolveOrderCustomer(ctx context.Context, db *sql.DB, payload map[string]interface{}) {
	raw, ok := payload["customer"].(map[string]interface{})
	if !ok {
		return
	}
	name, _ := raw["name"].(string)
	number, _ := raw["number"].(string)
	if name == "" || number == "" {
		return
	}
	p, _ := auth.PrincipalFromContext(ctx)
	if p == nil || db == nil {
		return
	}

	var id int64
	err := db.QueryRowContext(ctx,
		"SELECT id FROM customers WHERE name = $1 AND number = $2 AND organisation_id = $3",
		name, number, p.OrganisationID,
	).Scan(&id)
	if err != nil {
		return
	}

	delete(payload, "customer")
	payload["customer_id"] = id
}

func orderDescriptor() *resource.Descriptor {
	return &resource.Descriptor{
		Name:   "order",
		Table:  "orders",
		Schema: orderSchema(),
		Filters: map[string][]resource.Operator{
			"id":          {resource.Equal},
			"customer_id": {resource.Equal},
			"store_id":    {resource.Equal, resource.In},
			"is_void":     {resource.Boolean},
			"created_on":  {resource.DateLesserEqual, resource.DateEqual, resource.DateGreaterEqual},
			"updated_on":  {resource.GreaterEqual, resource.DateGreaterEqual, resource.DateEqual, resource.DateLesserEqual},
		},
		OrderBy:  []string{"id", "invoice_number", "created_on"},
		Optional: []string{"updated_on", "customer"},
		Expanders: map[string]resource.Expander{
			"customer": expandOrderCustomer,
		},
		AuthRequired:  true,
		RolesAccepted: []string{"admin"},
	}
}

// orderGate scopes orders by store and stamps the billing identity on
// new orders: acting user, primary store, and the next invoice number
// taken from the store row inside the same transaction.
type orderGate struct{}

func (orderGate) Read(ctx context.Context, p *auth.Principal, q *resource.Query) *resource.Query {
	return resource.NarrowToStores(q, p, "view_order")
}

func (orderGate) CanChange(ctx context.Context, p *auth.Principal, record map[string]interface{}) bool {
	return p != nil && p.HasStoreAccess(resource.RecordInt64(record, "store_id"))
}

func (orderGate) CanDelete(ctx context.Context, p *auth.Principal, record map[string]interface{}) bool {
	return p != nil && p.HasStoreAccess(resource.RecordInt64(record, "store_id")) &&
		p.HasPermission("remove_order")
}

func (orderGate) CanAdd(ctx context.Context, tx *sql.Tx, p *auth.Principal, records []map[string]interface{}) (bool, error) {
	if p == nil || len(p.StoreIDs) == 0 {
		return false, nil
	}
	storeID := p.StoreIDs[0]
	for _, record := range records {
		var invoiceNumber int64
		err := tx.QueryRowContext(ctx,
			"UPDATE stores SET invoice_number = invoice_number + 1 WHERE id = $1 RETURNING invoice_number",
			storeID,
		).Scan(&invoiceNumber)
		if err == sql.ErrNoRows {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("incrementing invoice number: %w", err)
		}
		record["user_id"] = p.ID
		record["store_id"] = storeID
		record["invoice_number"] = invoiceNumber
	}
	return true, nil
}
