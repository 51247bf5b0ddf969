package resource

import (
	"context"
	"database/sql"

	"github.com/saurabh1e/pos-api/internal/auth"
	"github.com/saurabh1e/pos-api/internal/schema"
)

// widget is the test entity used across the package tests: a store-scoped
// row with one field of every filterable shape, plus a maker relation.
func widgetSchema() *schema.Schema {
	return schema.MustNew("widget",
		&schema.Field{Name: "id", Type: schema.Int, DumpOnly: true},
		&schema.Field{Name: "name", Type: schema.String, Required: true},
		&schema.Field{Name: "unit_price", Type: schema.Float},
		&schema.Field{Name: "active", Type: schema.Bool},
		&schema.Field{Name: "store_id", Type: schema.Int, Required: true},
		&schema.Field{Name: "maker_id", Type: schema.Int},
		&schema.Field{Name: "notes", Type: schema.Text, Optional: true},
		&schema.Field{Name: "created_on", Type: schema.Timestamp, DumpOnly: true},
		&schema.Field{Name: "maker", DumpOnly: true, Optional: true,
			Nested: &schema.Nested{Schema: makerSchema(), Fields: []string{"id", "name"}}},
	)
}

func makerSchema() *schema.Schema {
	return schema.MustNew("maker",
		&schema.Field{Name: "id", Type: schema.Int, DumpOnly: true},
		&schema.Field{Name: "name", Type: schema.String, Required: true},
		&schema.Field{Name: "country", Type: schema.String},
	)
}

func expandWidgetMaker(ctx context.Context, db *sql.DB, record map[string]interface{}) (interface{}, error) {
	makerID := RecordInt64(record, "maker_id")
	if makerID == 0 {
		return nil, nil
	}
	row, err := NewQuery("makers").Where("id", Equal, makerID).First(ctx, db)
	if IsNotFound(err) {
		return nil, nil
	}
	return row, err
}

func widgetDescriptor() *Descriptor {
	return &Descriptor{
		Name:   "widget",
		Table:  "widgets",
		Schema: widgetSchema(),
		Filters: map[string][]Operator{
			"name":       {Equal, Contains},
			"unit_price": {Equal, Greater, GreaterEqual, Lesser, LesserEqual},
			"active":     {Boolean},
			"id":         {Equal, In, NotEqual, NotIn},
			"store_id":   {Equal, In},
			"created_on": {DateEqual, DateGreaterEqual, DateLesserEqual, DateBetween},
		},
		OrderBy:  []string{"id", "name"},
		Optional: []string{"notes", "maker"},
		Expanders: map[string]Expander{
			"maker": expandWidgetMaker,
		},
		AuthRequired: true,
	}
}

// widgetGate narrows to the principal's stores and requires the standard
// named permissions for mutations
type widgetGate struct{}

func (widgetGate) Read(ctx context.Context, p *auth.Principal, q *Query) *Query {
	return NarrowToStores(q, p, "view_widget")
}

func (widgetGate) CanChange(ctx context.Context, p *auth.Principal, record map[string]interface{}) bool {
	return p != nil && p.HasStoreAccess(RecordInt64(record, "store_id")) &&
		p.HasPermission("change_widget")
}

func (widgetGate) CanDelete(ctx context.Context, p *auth.Principal, record map[string]interface{}) bool {
	return p != nil && p.HasStoreAccess(RecordInt64(record, "store_id")) &&
		p.HasPermission("remove_widget")
}

func (widgetGate) CanAdd(ctx context.Context, tx *sql.Tx, p *auth.Principal, records []map[string]interface{}) (bool, error) {
	if p == nil || !p.HasPermission("create_widget") {
		return false, nil
	}
	for _, record := range records {
		if !p.HasStoreAccess(RecordInt64(record, "store_id")) {
			return false, nil
		}
	}
	return true, nil
}

func storePrincipal(storeIDs []int64, permissions ...string) *auth.Principal {
	return &auth.Principal{
		ID:             7,
		Email:          "clerk@example.com",
		OrganisationID: 1,
		StoreIDs:       storeIDs,
		Roles:          []string{"staff"},
		Permissions:    permissions,
	}
}
