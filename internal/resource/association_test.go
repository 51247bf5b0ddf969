package resource

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saurabh1e/pos-api/internal/auth"
	"github.com/saurabh1e/pos-api/internal/schema"
)

// widgetTag is the join entity used by the association tests: it links a
// widget to a tag within a store.
func widgetTagDescriptor() *AssociationDescriptor {
	s := schema.MustNew("widget_tag",
		&schema.Field{Name: "id", Type: schema.Int, DumpOnly: true},
		&schema.Field{Name: "widget_id", Type: schema.Int, Required: true},
		&schema.Field{Name: "tag_id", Type: schema.Int, Required: true},
		&schema.Field{Name: "store_id", Type: schema.Int, Required: true},
	)
	return &AssociationDescriptor{
		Descriptor: Descriptor{
			Name:   "widget_tag",
			Table:  "widget_tags",
			Schema: s,
			Filters: map[string][]Operator{
				"widget_id": {Equal, In},
				"tag_id":    {Equal, In},
			},
			AuthRequired: true,
		},
		LeftKey:  "widget_id",
		RightKey: "tag_id",
	}
}

type widgetTagGate struct{}

func (widgetTagGate) Read(ctx context.Context, p *auth.Principal, q *Query) *Query {
	return NarrowToStores(q, p, "view_widget")
}

func (widgetTagGate) CanChange(ctx context.Context, p *auth.Principal, record, payload map[string]interface{}) bool {
	return p != nil && p.HasStoreAccess(RecordInt64(record, "store_id")) &&
		p.HasPermission("change_widget")
}

func (widgetTagGate) CanDelete(ctx context.Context, p *auth.Principal, record, payload map[string]interface{}) bool {
	return p != nil && p.HasStoreAccess(RecordInt64(record, "store_id")) &&
		p.HasPermission("remove_widget")
}

func (widgetTagGate) CanAdd(ctx context.Context, tx *sql.Tx, p *auth.Principal, records []map[string]interface{}) (bool, error) {
	if p == nil || !p.HasPermission("create_widget") {
		return false, nil
	}
	for _, record := range records {
		if !p.HasStoreAccess(RecordInt64(record, "store_id")) {
			return false, nil
		}
	}
	return true, nil
}

func newWidgetTagResource(t *testing.T) (sqlmock.Sqlmock, func(p *auth.Principal, req *http.Request) *httptest.ResponseRecorder) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	res, err := NewAssociation(widgetTagDescriptor(), widgetTagGate{}, db, nil)
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Use(chimiddleware.StripSlashes)
	res.Mount(router)

	serve := func(p *auth.Principal, req *http.Request) *httptest.ResponseRecorder {
		if p != nil {
			req = req.WithContext(auth.WithPrincipal(req.Context(), p))
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}
	return mock, serve
}

func TestAssociationValidateRequiresKeyColumns(t *testing.T) {
	d := widgetTagDescriptor()
	d.RightKey = ""
	err := d.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both key columns")

	d = widgetTagDescriptor()
	d.LeftKey = "missing"
	err = d.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key missing is not a column")
}

func TestAssociationRetrieveByCompositeKey(t *testing.T) {
	mock, serve := newWidgetTagResource(t)

	mock.ExpectQuery("SELECT * FROM widget_tags WHERE store_id IN ($1) AND widget_id = $2 AND tag_id = $3 LIMIT $4").
		WithArgs(int64(1), int64(3), int64(9), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "widget_id", "tag_id", "store_id"}).
			AddRow(int64(5), int64(3), int64(9), int64(1)))

	p := storePrincipal([]int64{1}, "view_widget")
	rec := serve(p, httptest.NewRequest(http.MethodGet, "/widget_tag/3/9", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(3), body["widget_id"])
	assert.Equal(t, float64(9), body["tag_id"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssociationRetrieveOutsideStores(t *testing.T) {
	mock, serve := newWidgetTagResource(t)

	mock.ExpectQuery("SELECT * FROM widget_tags WHERE store_id IN ($1) AND widget_id = $2 AND tag_id = $3 LIMIT $4").
		WithArgs(int64(1), int64(3), int64(9), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	p := storePrincipal([]int64{1}, "view_widget")
	rec := serve(p, httptest.NewRequest(http.MethodGet, "/widget_tag/3/9", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssociationCreate(t *testing.T) {
	mock, serve := newWidgetTagResource(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO widget_tags (store_id, tag_id, widget_id) VALUES ($1, $2, $3) RETURNING *").
		WithArgs(int64(1), int64(9), int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "widget_id", "tag_id", "store_id"}).
			AddRow(int64(5), int64(3), int64(9), int64(1)))
	mock.ExpectCommit()

	p := storePrincipal([]int64{1}, "create_widget")
	payload := bytes.NewBufferString(`{"widget_id": 3, "tag_id": 9, "store_id": 1}`)
	rec := serve(p, httptest.NewRequest(http.MethodPost, "/widget_tag/", payload))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssociationDeleteByCompositeKey(t *testing.T) {
	mock, serve := newWidgetTagResource(t)

	mock.ExpectQuery("SELECT * FROM widget_tags WHERE store_id IN ($1) AND widget_id = $2 AND tag_id = $3 LIMIT $4").
		WithArgs(int64(1), int64(3), int64(9), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "widget_id", "tag_id", "store_id"}).
			AddRow(int64(5), int64(3), int64(9), int64(1)))
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM widget_tags WHERE tag_id = $1 AND widget_id = $2").
		WithArgs(int64(9), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p := storePrincipal([]int64{1}, "view_widget", "remove_widget")
	rec := serve(p, httptest.NewRequest(http.MethodDelete, "/widget_tag/3/9", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssociationDeleteWithoutPermission(t *testing.T) {
	mock, serve := newWidgetTagResource(t)

	mock.ExpectQuery("SELECT * FROM widget_tags WHERE store_id IN ($1) AND widget_id = $2 AND tag_id = $3 LIMIT $4").
		WithArgs(int64(1), int64(3), int64(9), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "widget_id", "tag_id", "store_id"}).
			AddRow(int64(5), int64(3), int64(9), int64(1)))

	p := storePrincipal([]int64{1}, "view_widget")
	rec := serve(p, httptest.NewRequest(http.MethodDelete, "/widget_tag/3/9", nil))

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
