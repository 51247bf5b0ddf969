package users

import (
	"github.com/saurabh1e/pos-api/internal/pos"
	"github.com/saurabh1e/pos-api/internal/resource"
	"github.com/saurabh1e/pos-api/internal/schema"
)

// CustomerSchema reads the aggregate columns (total_orders,
// total_billing, amount_paid) that the order workflow maintains on the
// customer row; amount_due derives from them at dump time.
func CustomerSchema() *schema.Schema {
	return schema.MustNew("customer",
		&schema.Field{Name: "id", Type: schema.Int, DumpOnly: true},
		&schema.Field{Name: "name", Type: schema.String, Required: true},
		&schema.Field{Name: "email", Type: schema.String},
		&schema.Field{Name: "number", Type: schema.String, Required: true},
		&schema.Field{Name: "active", Type: schema.Bool},
		&schema.Field{Name: "loyalty_points", Type: schema.Int},
		&schema.Field{Name: "organisation_id", Type: schema.Int, Required: true},
		&schema.Field{Name: "total_orders", Type: schema.Int, DumpOnly: true},
		&schema.Field{Name: "total_billing", Type: schema.Float, DumpOnly: true},
		&schema.Field{Name: "amount_paid", Type: schema.Float, DumpOnly: true, Optional: true},
		&schema.Field{Name: "amount_due", Type: schema.Float, DumpOnly: true, Compute: customerAmountDue},
		&schema.Field{Name: "created_on", Type: schema.Timestamp, DumpOnly: true, Optional: true},
	)
}

func customerAmountDue(record map[string]interface{}) interface{} {
	return resource.RecordFloat64(record, "total_billing") - resource.RecordFloat64(record, "amount_paid")
}

func customerDescriptor() *resource.Descriptor {
	return &resource.Descriptor{
		Name:   "customer",
		Table:  "customers",
		Schema: CustomerSchema(),
		Filters: map[string][]resource.Operator{
			"name":            {resource.Equal, resource.Contains},
			"number":          {resource.Equal, resource.Contains},
			"email":           {resource.Equal, resource.Contains},
			"id":              {resource.Equal},
			"organisation_id": {resource.Equal},
		},
		OrderBy:       []string{"id", "name"},
		Optional:      []string{"amount_paid", "created_on"},
		AuthRequired:  true,
		RolesAccepted: []string{"admin", "owner", "staff"},
	}
}

func customerGate() resource.Gate {
	return pos.OrganisationGate{
		View:   "view_customer",
		Change: "change_customer",
		Delete: "delete_customer",
		Create: "add_customer",
	}
}
