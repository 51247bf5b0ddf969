// Package auth provides the request principal, JWT token issuance and
// validation, and password hashing.
package auth

import "context"

// Principal is the authenticated identity attached to every request.
// It is immutable for the request's duration and never shared across
// requests.
type Principal struct {
	ID             int64    `json:"id"`
	Email          string   `json:"email"`
	Name           string   `json:"name"`
	OrganisationID int64    `json:"organisation_id"`
	StoreIDs       []int64  `json:"store_ids"`
	Roles          []string `json:"roles"`
	Permissions    []string `json:"permissions"`
}

// HasRole reports whether the principal holds the named role
func (p *Principal) HasRole(name string) bool {
	for _, role := range p.Roles {
		if role == name {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the principal holds at least one of the named roles
func (p *Principal) HasAnyRole(names ...string) bool {
	for _, name := range names {
		if p.HasRole(name) {
			return true
		}
	}
	return false
}

// HasPermission reports whether the principal holds the named permission
func (p *Principal) HasPermission(name string) bool {
	for _, perm := range p.Permissions {
		if perm == name {
			return true
		}
	}
	return false
}

// HasStoreAccess reports whether the principal is a member of the given store
func (p *Principal) HasStoreAccess(storeID int64) bool {
	for _, id := range p.StoreIDs {
		if id == storeID {
			return true
		}
	}
	return false
}

// IsOwner reports whether the principal holds the owner role
func (p *Principal) IsOwner() bool {
	return p.HasRole("owner")
}

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal returns a context carrying the principal
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal attached to the context, if any
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok
}
