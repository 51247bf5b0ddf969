// Package pos carries the tenancy rules shared by the concrete retail
// entities. Every store-scoped entity follows the same contract: a view
// permission gates reading at all, rows are narrowed to the principal's
// stores, and mutations demand store access plus the matching named
// permission.
package pos

import (
	"context"
	"database/sql"

	"github.com/saurabh1e/pos-api/internal/auth"
	"github.com/saurabh1e/pos-api/internal/resource"
)

// StoreGate is the standard gate for entities with a store_id column
type StoreGate struct {
	View   string
	Change string
	Delete string
	Create string
}

func (g StoreGate) Read(ctx context.Context, p *auth.Principal, q *resource.Query) *resource.Query {
	return resource.NarrowToStores(q, p, g.View)
}

func (g StoreGate) CanChange(ctx context.Context, p *auth.Principal, record map[string]interface{}) bool {
	return p != nil &&
		p.HasStoreAccess(resource.RecordInt64(record, "store_id")) &&
		p.HasPermission(g.Change)
}

func (g StoreGate) CanDelete(ctx context.Context, p *auth.Principal, record map[string]interface{}) bool {
	return p != nil &&
		p.HasStoreAccess(resource.RecordInt64(record, "store_id")) &&
		p.HasPermission(g.Delete)
}

func (g StoreGate) CanAdd(ctx context.Context, tx *sql.Tx, p *auth.Principal, records []map[string]interface{}) (bool, error) {
	if p == nil || !p.HasPermission(g.Create) {
		return false, nil
	}
	for _, record := range records {
		if !p.HasStoreAccess(resource.RecordInt64(record, "store_id")) {
			return false, nil
		}
	}
	return true, nil
}

// OrganisationGate is the gate for entities scoped to one organisation
// rather than individual stores
type OrganisationGate struct {
	View   string
	Change string
	Delete string
	Create string
}

func (g OrganisationGate) Read(ctx context.Context, p *auth.Principal, q *resource.Query) *resource.Query {
	return resource.NarrowToOrganisation(q, p, g.View)
}

func (g OrganisationGate) CanChange(ctx context.Context, p *auth.Principal, record map[string]interface{}) bool {
	return p != nil &&
		resource.RecordInt64(record, "organisation_id") == p.OrganisationID &&
		p.HasPermission(g.Change)
}

func (g OrganisationGate) CanDelete(ctx context.Context, p *auth.Principal, record map[string]interface{}) bool {
	return p != nil &&
		resource.RecordInt64(record, "organisation_id") == p.OrganisationID &&
		p.HasPermission(g.Delete)
}

func (g OrganisationGate) CanAdd(ctx context.Context, tx *sql.Tx, p *auth.Principal, records []map[string]interface{}) (bool, error) {
	if p == nil || !p.HasPermission(g.Create) {
		return false, nil
	}
	for _, record := range records {
		if resource.RecordInt64(record, "organisation_id") != p.OrganisationID {
			return false, nil
		}
	}
	return true, nil
}
