package users

import (
	"context"
	"database/sql"

	"github.com/saurabh1e/pos-api/internal/auth"
	"github.com/saurabh1e/pos-api/internal/resource"
	"github.com/saurabh1e/pos-api/internal/schema"
)

func userStoreSchema() *schema.Schema {
	return schema.MustNew("user_store",
		&schema.Field{Name: "id", Type: schema.Int, DumpOnly: true},
		&schema.Field{Name: "user_id", Type: schema.Int, Required: true},
		&schema.Field{Name: "store_id", Type: schema.Int, Required: true},
	)
}

func userStoreDescriptor() *resource.AssociationDescriptor {
	return &resource.AssociationDescriptor{
		Descriptor: resource.Descriptor{
			Name:   "user_store",
			Table:  "user_stores",
			Schema: userStoreSchema(),
			Filters: map[string][]resource.Operator{
				"user_id":  {resource.Equal, resource.In},
				"store_id": {resource.Equal, resource.In},
			},
			OrderBy:       []string{"user_id", "store_id"},
			AuthRequired:  true,
			RolesAccepted: []string{"admin", "owner"},
		},
		LeftKey:  "user_id",
		RightKey: "store_id",
	}
}

// userStoreGate guards store membership: the acting principal must
// itself belong to the store being granted or revoked
type userStoreGate struct{}

func (userStoreGate) Read(ctx context.Context, p *auth.Principal, q *resource.Query) *resource.Query {
	return resource.NarrowToStores(q, p, "view_user_stores")
}

func (userStoreGate) CanChange(ctx context.Context, p *auth.Principal, record, payload map[string]interface{}) bool {
	return p != nil && p.HasPermission("change_user_stores") &&
		p.HasStoreAccess(resource.RecordInt64(record, "store_id"))
}

func (userStoreGate) CanDelete(ctx context.Context, p *auth.Principal, record, payload map[string]interface{}) bool {
	return p != nil && p.HasPermission("delete_user_stores") &&
		p.HasStoreAccess(resource.RecordInt64(record, "store_id"))
}

func (userStoreGate) CanAdd(ctx context.Context, tx *sql.Tx, p *auth.Principal, records []map[string]interface{}) (bool, error) {
	if p == nil || !p.HasPermission("add_user_stores") {
		return false, nil
	}
	for _, record := range records {
		if !p.HasStoreAccess(resource.RecordInt64(record, "store_id")) {
			return false, nil
		}
	}
	return true, nil
}
