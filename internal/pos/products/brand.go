package products

import (
	"github.com/saurabh1e/pos-api/internal/pos"
	"github.com/saurabh1e/pos-api/internal/resource"
	"github.com/saurabh1e/pos-api/internal/schema"
)

func brandSchema() *schema.Schema {
	return schema.MustNew("brand",
		&schema.Field{Name: "id", Type: schema.Int, DumpOnly: true},
		&schema.Field{Name: "name", Type: schema.String, Required: true},
		&schema.Field{Name: "store_id", Type: schema.Int, Required: true},
		&schema.Field{Name: "created_on", Type: schema.Timestamp, DumpOnly: true},
		&schema.Field{Name: "updated_on", Type: schema.Timestamp, DumpOnly: true, Optional: true},
	)
}

func brandDescriptor() *resource.Descriptor {
	return &resource.Descriptor{
		Name:   "brand",
		Table:  "brands",
		Schema: brandSchema(),
		Filters: map[string][]resource.Operator{
			"name":       {resource.Equal, resource.Contains},
			"store_id":   {resource.Equal, resource.In},
			"created_on": {resource.DateLesserEqual, resource.DateEqual, resource.DateGreaterEqual},
			"updated_on": {resource.GreaterEqual, resource.DateGreaterEqual, resource.DateEqual, resource.DateLesserEqual},
		},
		OrderBy:      []string{"store_id", "id", "name"},
		Optional:     []string{"updated_on"},
		MaxLimit:     500,
		AuthRequired: true,
	}
}

func brandGate() resource.Gate {
	return pos.StoreGate{
		View:   "view_brand",
		Change: "change_brand",
		Delete: "remove_brand",
		Create: "create_brand",
	}
}

func taxSchema() *schema.Schema {
	return schema.MustNew("tax",
		&schema.Field{Name: "id", Type: schema.Int, DumpOnly: true},
		&schema.Field{Name: "name", Type: schema.String, Required: true},
		&schema.Field{Name: "value", Type: schema.Float, Required: true},
		&schema.Field{Name: "is_disabled", Type: schema.Bool},
		&schema.Field{Name: "store_id", Type: schema.Int, Required: true},
		&schema.Field{Name: "created_on", Type: schema.Timestamp, DumpOnly: true},
	)
}

func taxDescriptor() *resource.Descriptor {
	return &resource.Descriptor{
		Name:   "tax",
		Table:  "taxes",
		Schema: taxSchema(),
		Filters: map[string][]resource.Operator{
			"name":       {resource.Equal, resource.Contains},
			"store_id":   {resource.Equal, resource.In},
			"created_on": {resource.DateLesserEqual, resource.DateEqual, resource.DateGreaterEqual},
		},
		OrderBy:      []string{"store_id", "id", "name"},
		AuthRequired: true,
	}
}

func taxGate() resource.Gate {
	return pos.StoreGate{
		View:   "view_tax",
		Change: "change_tax",
		Delete: "remove_tax",
		Create: "create_tax",
	}
}
