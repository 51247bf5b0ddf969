// Package users declares the account-side entities: users, stores,
// organisations, customers and the user/store membership.
package users

import (
	"context"
	"database/sql"

	"github.com/saurabh1e/pos-api/internal/auth"
	"github.com/saurabh1e/pos-api/internal/resource"
	"github.com/saurabh1e/pos-api/internal/schema"
)

func userSchema() *schema.Schema {
	return schema.MustNew("user",
		&schema.Field{Name: "id", Type: schema.Int, DumpOnly: true},
		&schema.Field{Name: "email", Type: schema.String, Required: true},
		&schema.Field{Name: "password", Type: schema.String, LoadOnly: true, Required: true},
		&schema.Field{Name: "name", Type: schema.String, Required: true},
		&schema.Field{Name: "mobile_number", Type: schema.String, Required: true},
		&schema.Field{Name: "active", Type: schema.Bool},
		&schema.Field{Name: "organisation_id", Type: schema.Int, Required: true},
		&schema.Field{Name: "confirmed_at", Type: schema.Timestamp, DumpOnly: true, Optional: true},
		&schema.Field{Name: "last_login_at", Type: schema.Timestamp, DumpOnly: true, Optional: true},
		&schema.Field{Name: "login_count", Type: schema.Int, DumpOnly: true, Optional: true},
		&schema.Field{Name: "created_on", Type: schema.Timestamp, DumpOnly: true, Optional: true},
	).WithResolver(hashPasswordResolver)
}

// hashPasswordResolver replaces a plaintext password in the payload with
// its bcrypt hash before validation. A hashing failure leaves the value
// untouched; the column's length constraint rejects the plaintext.
func hashPasswordResolver(ctx context.Context, db *sql.DB, payload map[string]interface{}) {
	raw, ok := payload["password"].(string)
	if !ok || raw == "" {
		return
	}
	hashed, err := auth.HashPassword(raw)
	if err != nil {
		return
	}
	payload["password"] = hashed
}

func userDescriptor() *resource.Descriptor {
	return &resource.Descriptor{
		Name:   "user",
		Table:  "users",
		Schema: userSchema(),
		Filters: map[string][]resource.Operator{
			"email":           {resource.Equal, resource.Contains},
			"name":            {resource.Equal, resource.Contains},
			"active":          {resource.Boolean},
			"id":              {resource.Equal},
			"organisation_id": {resource.Equal, resource.In},
		},
		OrderBy:       []string{"email", "id", "name"},
		Optional:      []string{"confirmed_at", "last_login_at", "login_count", "created_on"},
		AuthRequired:  true,
		RolesAccepted: []string{"admin", "owner", "staff"},
	}
}

// userGate lets admins and owners manage every user of their
// organisation; everyone else sees only their own account.
type userGate struct{}

func (userGate) Read(ctx context.Context, p *auth.Principal, q *resource.Query) *resource.Query {
	if p == nil {
		return q.WhereNone()
	}
	if p.HasAnyRole("admin", "owner") {
		return q.Where("organisation_id", resource.Equal, p.OrganisationID)
	}
	return q.Where("id", resource.Equal, p.ID)
}

func (userGate) CanChange(ctx context.Context, p *auth.Principal, record map[string]interface{}) bool {
	return p != nil && p.HasAnyRole("admin", "owner") &&
		resource.RecordInt64(record, "organisation_id") == p.OrganisationID
}

func (userGate) CanDelete(ctx context.Context, p *auth.Principal, record map[string]interface{}) bool {
	return p != nil && p.HasAnyRole("admin", "owner") &&
		resource.RecordInt64(record, "organisation_id") == p.OrganisationID
}

func (userGate) CanAdd(ctx context.Context, tx *sql.Tx, p *auth.Principal, records []map[string]interface{}) (bool, error) {
	if p == nil || !p.HasAnyRole("admin", "owner") {
		return false, nil
	}
	for _, record := range records {
		if resource.RecordInt64(record, "organisation_id") != p.OrganisationID {
			return false, nil
		}
	}
	return true, nil
}
