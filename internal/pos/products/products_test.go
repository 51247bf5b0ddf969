package products

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saurabh1e/pos-api/internal/auth"
	"github.com/saurabh1e/pos-api/internal/resource"
)

func clerk(storeIDs []int64, permissions ...string) *auth.Principal {
	return &auth.Principal{
		ID:          7,
		StoreIDs:    storeIDs,
		Roles:       []string{"staff"},
		Permissions: permissions,
	}
}

func TestProductReadHidesDisabledRows(t *testing.T) {
	q := productGate{}.Read(context.Background(), clerk([]int64{1, 2}), resource.NewQuery("products"))
	require.False(t, q.Denied())

	sql, args, err := q.SelectSQL()
	require.NoError(t, err)
	// NULL is_disabled counts as enabled, so the flag is checked with
	// IS NOT TRUE rather than a bound inequality
	assert.Equal(t,
		"SELECT * FROM products WHERE store_id IN ($1, $2) AND is_disabled IS NOT TRUE",
		sql)
	assert.Equal(t, []interface{}{int64(1), int64(2)}, args)
}

func TestProductReadAnonymousDenied(t *testing.T) {
	q := productGate{}.Read(context.Background(), nil, resource.NewQuery("products"))
	assert.True(t, q.Denied())
}

func TestStockCanAddStampsPrimaryStore(t *testing.T) {
	records := []map[string]interface{}{
		{"product_id": int64(3), "quantity": 10.0},
		{"product_id": int64(4), "quantity": 5.0},
	}

	ok, err := stockGate{}.CanAdd(context.Background(), nil, clerk([]int64{2, 5}), records)
	require.NoError(t, err)
	require.True(t, ok)

	for _, record := range records {
		assert.Equal(t, int64(2), record["store_id"])
	}
}

func TestStockCanAddWithoutStores(t *testing.T) {
	ok, err := stockGate{}.CanAdd(context.Background(), nil, clerk(nil),
		[]map[string]interface{}{{"product_id": int64(3)}})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDistributorBillCanAddResolvesStore(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT store_id FROM distributors WHERE id = $1").
		WithArgs(int64(12)).
		WillReturnRows(sqlmock.NewRows([]string{"store_id"}).AddRow(int64(1)))

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	records := []map[string]interface{}{
		{"distributor_id": int64(12), "purchase_date": "2024-03-05"},
	}
	ok, err := distributorBillGate{}.CanAdd(ctx, tx,
		clerk([]int64{1}, "create_distributor_bill"), records)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), records[0]["store_id"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDistributorBillCanAddDeniesForeignDistributor(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT store_id FROM distributors WHERE id = $1").
		WithArgs(int64(12)).
		WillReturnRows(sqlmock.NewRows([]string{"store_id"}).AddRow(int64(9)))

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	ok, err := distributorBillGate{}.CanAdd(ctx, tx,
		clerk([]int64{1}, "create_distributor_bill"),
		[]map[string]interface{}{{"distributor_id": int64(12)}})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProductTaxCanAddResolvesProductStore(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT store_id FROM products WHERE id = $1").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"store_id"}).AddRow(int64(1)))

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	records := []map[string]interface{}{
		{"product_id": int64(3), "tax_id": int64(9)},
	}
	ok, err := productTaxGate{}.CanAdd(ctx, tx,
		clerk([]int64{1}, "create_product_tax"), records)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), records[0]["store_id"])
}

func TestDescriptorsValidate(t *testing.T) {
	descriptors := []*resource.Descriptor{
		productDescriptor(),
		brandDescriptor(),
		taxDescriptor(),
		stockDescriptor(),
		distributorDescriptor(),
		distributorBillDescriptor(),
	}
	for _, d := range descriptors {
		assert.NoError(t, d.Validate(), d.Name)
	}
	assert.NoError(t, productTaxDescriptor().Validate())
}

func TestProductBrandExpansion(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT * FROM brands WHERE id = $1 LIMIT $2").
		WithArgs(int64(4), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "store_id"}).
			AddRow(int64(4), "Acme", int64(1)))

	record := map[string]interface{}{"id": int64(3), "brand_id": int64(4)}
	value, err := expandProductBrand(context.Background(), db, record)
	require.NoError(t, err)

	brand := value.(map[string]interface{})
	assert.Equal(t, "Acme", brand["name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductBrandExpansionWithoutBrand(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	value, err := expandProductBrand(context.Background(), db, map[string]interface{}{"id": int64(3)})
	require.NoError(t, err)
	assert.Nil(t, value)
	assert.NoError(t, mock.ExpectationsWereMet())
}
