package users

import (
	"context"
	"database/sql"

	"github.com/saurabh1e/pos-api/internal/auth"
	"github.com/saurabh1e/pos-api/internal/pos"
	"github.com/saurabh1e/pos-api/internal/resource"
	"github.com/saurabh1e/pos-api/internal/schema"
)

func storeSchema() *schema.Schema {
	return schema.MustNew("store",
		&schema.Field{Name: "id", Type: schema.Int, DumpOnly: true},
		&schema.Field{Name: "name", Type: schema.String, Required: true},
		&schema.Field{Name: "identity", Type: schema.String},
		&schema.Field{Name: "organisation_id", Type: schema.Int, Required: true},
		// invoice_number is the per-store billing counter; it only
		// moves through the order workflow
		&schema.Field{Name: "invoice_number", Type: schema.Int, DumpOnly: true},
		&schema.Field{Name: "separate_offline_billing", Type: schema.Bool},
		&schema.Field{Name: "created_on", Type: schema.Timestamp, DumpOnly: true, Optional: true},
	)
}

func storeDescriptor() *resource.Descriptor {
	return &resource.Descriptor{
		Name:   "store",
		Table:  "stores",
		Schema: storeSchema(),
		Filters: map[string][]resource.Operator{
			"id": {resource.Equal, resource.In},
		},
		OrderBy:       []string{"id", "name"},
		Optional:      []string{"created_on"},
		AuthRequired:  true,
		RolesAccepted: []string{"admin", "owner", "staff"},
	}
}

func storeGate() resource.Gate {
	return pos.OrganisationGate{
		View:   "view_store",
		Change: "change_store",
		Delete: "delete_store",
		Create: "add_store",
	}
}

func organisationSchema() *schema.Schema {
	return schema.MustNew("organisation",
		&schema.Field{Name: "id", Type: schema.Int, DumpOnly: true},
		&schema.Field{Name: "name", Type: schema.String, Required: true},
		&schema.Field{Name: "created_on", Type: schema.Timestamp, DumpOnly: true, Optional: true},
	)
}

func organisationDescriptor() *resource.Descriptor {
	return &resource.Descriptor{
		Name:   "organisation",
		Table:  "organisations",
		Schema: organisationSchema(),
		Filters: map[string][]resource.Operator{
			"id":   {resource.Equal},
			"name": {resource.Equal, resource.Contains},
		},
		OrderBy:       []string{"id", "name"},
		Optional:      []string{"created_on"},
		AuthRequired:  true,
		RolesAccepted: []string{"admin", "owner", "staff"},
	}
}

// organisationGate scopes reads and writes to the principal's own
// organisation row
type organisationGate struct{}

func (organisationGate) Read(ctx context.Context, p *auth.Principal, q *resource.Query) *resource.Query {
	if p == nil || !p.HasPermission("view_store") {
		return q.WhereNone()
	}
	return q.Where("id", resource.Equal, p.OrganisationID)
}

func (organisationGate) CanChange(ctx context.Context, p *auth.Principal, record map[string]interface{}) bool {
	return p != nil && p.HasPermission("change_store") &&
		resource.RecordInt64(record, "id") == p.OrganisationID
}

func (organisationGate) CanDelete(ctx context.Context, p *auth.Principal, record map[string]interface{}) bool {
	return p != nil && p.HasPermission("delete_store") &&
		resource.RecordInt64(record, "id") == p.OrganisationID
}

func (organisationGate) CanAdd(ctx context.Context, tx *sql.Tx, p *auth.Principal, records []map[string]interface{}) (bool, error) {
	return false, nil
}
