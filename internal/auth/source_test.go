package auth

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saurabh1e/pos-api/internal/cache"
)

func expectPrincipalQueries(mock sqlmock.Sqlmock, userID int64) {
	mock.ExpectQuery("SELECT email, name, organisation_id FROM users").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"email", "name", "organisation_id"}).
			AddRow("clerk@example.com", "Clerk", int64(1)))
	mock.ExpectQuery("SELECT store_id FROM user_stores").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"store_id"}).AddRow(int64(1)).AddRow(int64(3)))
	mock.ExpectQuery("SELECT r.name FROM roles").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("staff"))
	mock.ExpectQuery("SELECT p.name FROM permissions").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).
			AddRow("view_product").AddRow("create_order"))
}

func TestSourceLoadsPrincipalFromDB(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectPrincipalQueries(mock, 42)

	source := NewSource(db, nil, time.Minute)
	p, err := source.Load(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, int64(42), p.ID)
	assert.Equal(t, "clerk@example.com", p.Email)
	assert.Equal(t, int64(1), p.OrganisationID)
	assert.Equal(t, []int64{1, 3}, p.StoreIDs)
	assert.Equal(t, []string{"staff"}, p.Roles)
	assert.Contains(t, p.Permissions, "create_order")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSourceCachesBetweenLoads(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Only one set of queries: the second load must hit the cache
	expectPrincipalQueries(mock, 42)

	source := NewSource(db, cache.NewMemory(), time.Minute)
	ctx := context.Background()

	first, err := source.Load(ctx, 42)
	require.NoError(t, err)
	second, err := source.Load(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSourceInvalidateDropsCacheEntry(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectPrincipalQueries(mock, 42)
	expectPrincipalQueries(mock, 42)

	source := NewSource(db, cache.NewMemory(), time.Minute)
	ctx := context.Background()

	_, err = source.Load(ctx, 42)
	require.NoError(t, err)

	source.Invalidate(ctx, 42)

	_, err = source.Load(ctx, 42)
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSourceInactiveUserNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT email, name, organisation_id FROM users").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"email", "name", "organisation_id"}))

	source := NewSource(db, nil, time.Minute)
	_, err = source.Load(context.Background(), 42)
	assert.ErrorIs(t, err, ErrPrincipalNotFound)
}
