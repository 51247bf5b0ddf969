package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrincipalChecks(t *testing.T) {
	p := &Principal{
		ID:             7,
		OrganisationID: 1,
		StoreIDs:       []int64{1, 3},
		Roles:          []string{"staff", "owner"},
		Permissions:    []string{"view_product", "create_order"},
	}

	assert.True(t, p.HasRole("staff"))
	assert.False(t, p.HasRole("admin"))
	assert.True(t, p.HasAnyRole("admin", "owner"))
	assert.False(t, p.HasAnyRole("admin", "superuser"))
	assert.True(t, p.IsOwner())

	assert.True(t, p.HasPermission("view_product"))
	assert.False(t, p.HasPermission("remove_product"))

	assert.True(t, p.HasStoreAccess(3))
	assert.False(t, p.HasStoreAccess(2))
}

func TestPrincipalContext(t *testing.T) {
	_, ok := PrincipalFromContext(context.Background())
	assert.False(t, ok)

	p := &Principal{ID: 7}
	ctx := WithPrincipal(context.Background(), p)
	got, ok := PrincipalFromContext(ctx)
	require.True(t, ok)
	assert.Same(t, p, got)
}
