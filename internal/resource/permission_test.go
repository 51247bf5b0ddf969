package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNarrowToStores(t *testing.T) {
	t.Run("nil principal denied", func(t *testing.T) {
		q := NarrowToStores(NewQuery("widgets"), nil, "view_widget")
		assert.True(t, q.Denied())
	})

	t.Run("missing permission denied", func(t *testing.T) {
		p := storePrincipal([]int64{1, 2})
		q := NarrowToStores(NewQuery("widgets"), p, "view_widget")
		assert.True(t, q.Denied())
	})

	t.Run("scoped to principal stores", func(t *testing.T) {
		p := storePrincipal([]int64{1, 2}, "view_widget")
		q := NarrowToStores(NewQuery("widgets"), p, "view_widget")
		require.False(t, q.Denied())

		sql, args, err := q.SelectSQL()
		require.NoError(t, err)
		assert.Equal(t, "SELECT * FROM widgets WHERE store_id IN ($1, $2)", sql)
		assert.Equal(t, []interface{}{int64(1), int64(2)}, args)
	})

	t.Run("no stores matches nothing", func(t *testing.T) {
		p := storePrincipal(nil, "view_widget")
		q := NarrowToStores(NewQuery("widgets"), p, "view_widget")

		sql, _, err := q.SelectSQL()
		require.NoError(t, err)
		assert.Equal(t, "SELECT * FROM widgets WHERE FALSE", sql)
	})
}

func TestNarrowToOrganisation(t *testing.T) {
	p := storePrincipal([]int64{1}, "view_customer")
	q := NarrowToOrganisation(NewQuery("customers"), p, "view_customer")

	sql, args, err := q.SelectSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM customers WHERE organisation_id = $1", sql)
	assert.Equal(t, []interface{}{p.OrganisationID}, args)

	q = NarrowToOrganisation(NewQuery("customers"), p, "view_order")
	assert.True(t, q.Denied())
}

func TestRecordNumericHelpers(t *testing.T) {
	record := map[string]interface{}{
		"int64_col": int64(5),
		"int_col":   3,
		"float_col": 2.5,
		"text_col":  "x",
	}

	assert.Equal(t, int64(5), RecordInt64(record, "int64_col"))
	assert.Equal(t, int64(3), RecordInt64(record, "int_col"))
	assert.Equal(t, int64(2), RecordInt64(record, "float_col"))
	assert.Zero(t, RecordInt64(record, "text_col"))
	assert.Zero(t, RecordInt64(record, "missing"))

	assert.Equal(t, 2.5, RecordFloat64(record, "float_col"))
	assert.Equal(t, 5.0, RecordFloat64(record, "int64_col"))
	assert.Zero(t, RecordFloat64(record, "missing"))
}
