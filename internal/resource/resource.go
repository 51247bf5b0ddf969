package resource

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/saurabh1e/pos-api/internal/auth"
	"github.com/saurabh1e/pos-api/internal/schema"
	"github.com/saurabh1e/pos-api/internal/storage"
	"github.com/saurabh1e/pos-api/internal/web/response"
)

// Resource binds a descriptor, a permission gate, and storage into the
// five REST operations: list, retrieve, create, update, delete
type Resource struct {
	desc *Descriptor
	gate Gate
	db   *sql.DB
	tx   *storage.Manager
	log  *zap.Logger
}

// New creates a Resource, validating its descriptor
func New(desc *Descriptor, gate Gate, db *sql.DB, log *zap.Logger) (*Resource, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if gate == nil {
		return nil, fmt.Errorf("resource %s: gate is required", desc.Name)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Resource{
		desc: desc,
		gate: gate,
		db:   db,
		tx:   storage.NewManager(db),
		log:  log,
	}, nil
}

// Descriptor returns the resource's descriptor
func (r *Resource) Descriptor() *Descriptor {
	return r.desc
}

// Mount registers the resource's routes on the router. Trailing slashes
// are normalized by the router's StripSlashes middleware.
func (r *Resource) Mount(router chi.Router) {
	router.Route("/"+r.desc.Name, func(rt chi.Router) {
		rt.Get("/", r.list)
		rt.Post("/", r.create)
		rt.Get("/{id}", r.retrieve)
		rt.Put("/{id}", r.update)
		rt.Patch("/{id}", r.update)
		rt.Delete("/{id}", r.remove)
	})
}

// list handles GET /<resource>/
func (r *Resource) list(w http.ResponseWriter, req *http.Request) {
	p, ok := r.requireAccess(w, req)
	if !ok {
		return
	}
	ctx := req.Context()

	params, err := ParseListParams(req.URL.Query(), r.desc)
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	// Narrowing strictly precedes filters, ordering, and paging
	q := r.gate.Read(ctx, p, NewQuery(r.desc.Table))
	q.ApplyFilters(params.Filters)

	total, err := q.Count(ctx, r.db)
	if err != nil {
		r.logError(p, "list", err)
		response.RenderInternalError(w)
		return
	}

	if params.OrderBy != "" {
		q.Order(params.OrderBy, params.OrderDesc)
	}
	// Declared order breaks ties, left to right
	for _, field := range r.desc.OrderBy {
		if field != params.OrderBy {
			q.Order(field, false)
		}
	}

	limit := r.desc.clampLimit(params.Limit)
	q.Page(limit, params.Offset)

	records, err := q.All(ctx, r.db)
	if err != nil {
		r.logError(p, "list", err)
		response.RenderInternalError(w)
		return
	}

	data := make([]map[string]interface{}, 0, len(records))
	for _, record := range records {
		if err := r.desc.expandRecord(ctx, r.db, record, params.Expand); err != nil {
			r.logError(p, "list", err)
			response.RenderInternalError(w)
			return
		}
		data = append(data, r.desc.Schema.Dump(record, params.Expand))
	}

	response.RenderList(w, data, total, limit, params.Offset)
}

// retrieve handles GET /<resource>/<id>/
func (r *Resource) retrieve(w http.ResponseWriter, req *http.Request) {
	p, ok := r.requireAccess(w, req)
	if !ok {
		return
	}

	expand, err := parseExpand(req, r.desc)
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	record, err := r.fetch(req, p)
	if err != nil {
		if IsNotFound(err) {
			response.RenderNotFound(w, "")
			return
		}
		r.logError(p, "retrieve", err)
		response.RenderInternalError(w)
		return
	}

	if err := r.desc.expandRecord(req.Context(), r.db, record, expand); err != nil {
		r.logError(p, "retrieve", err)
		response.RenderInternalError(w)
		return
	}

	response.RenderJSON(w, http.StatusOK, r.desc.Schema.Dump(record, expand))
}

// create handles POST /<resource>/ with a single object or an array;
// a batch persists atomically or not at all
func (r *Resource) create(w http.ResponseWriter, req *http.Request) {
	p, ok := r.requireAccess(w, req)
	if !ok {
		return
	}
	ctx := req.Context()

	// An unknown expansion name fails here, exactly as it does on
	// retrieve, before anything is persisted
	expand, err := parseExpand(req, r.desc)
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	payloads, many, err := decodePayloads(req.Body)
	if err != nil {
		response.RenderBadRequest(w, "invalid request body")
		return
	}

	records := make([]map[string]interface{}, 0, len(payloads))
	combined := schema.NewValidationErrors()
	for i, payload := range payloads {
		r.desc.Schema.Resolve(ctx, r.db, payload)
		record, verrs := r.desc.Schema.Load(payload)
		if verrs != nil {
			prefix := ""
			if many {
				prefix = strconv.Itoa(i)
			}
			combined.Merge(prefix, verrs)
			continue
		}
		records = append(records, record)
	}
	if combined.HasErrors() {
		response.RenderValidationError(w, combined)
		return
	}

	var created []map[string]interface{}
	err = r.tx.WithTransaction(ctx, func(tx *sql.Tx) error {
		allowed, err := r.gate.CanAdd(ctx, tx, p, records)
		if err != nil {
			return err
		}
		if !allowed {
			return ErrForbidden
		}

		for _, record := range records {
			row, err := insertRecord(ctx, tx, r.desc.Table, record)
			if err != nil {
				return err
			}
			created = append(created, row)
		}
		return nil
	})
	if err != nil {
		r.renderMutationError(w, p, "create", err)
		return
	}

	data := make([]map[string]interface{}, 0, len(created))
	for _, record := range created {
		if err := r.desc.expandRecord(ctx, r.db, record, expand); err != nil {
			r.logError(p, "create", err)
			response.RenderInternalError(w)
			return
		}
		data = append(data, r.desc.Schema.Dump(record, expand))
	}
	if many {
		response.RenderJSON(w, http.StatusCreated, data)
		return
	}
	response.RenderJSON(w, http.StatusCreated, data[0])
}

// update handles PUT/PATCH /<resource>/<id>/
func (r *Resource) update(w http.ResponseWriter, req *http.Request) {
	p, ok := r.requireAccess(w, req)
	if !ok {
		return
	}
	ctx := req.Context()

	existing, err := r.fetch(req, p)
	if err != nil {
		if IsNotFound(err) {
			response.RenderNotFound(w, "")
			return
		}
		r.logError(p, "update", err)
		response.RenderInternalError(w)
		return
	}

	payload, err := decodePayload(req.Body)
	if err != nil {
		response.RenderBadRequest(w, "invalid request body")
		return
	}

	r.desc.Schema.Resolve(ctx, r.db, payload)
	changes, verrs := r.desc.Schema.LoadPartial(payload)
	if verrs != nil {
		response.RenderValidationError(w, verrs)
		return
	}

	if !r.gate.CanChange(ctx, p, existing) {
		response.RenderForbidden(w)
		return
	}

	if len(changes) == 0 {
		response.RenderJSON(w, http.StatusOK, r.desc.Schema.Dump(existing, nil))
		return
	}

	var updated map[string]interface{}
	err = r.tx.WithTransaction(ctx, func(tx *sql.Tx) error {
		query, args := storage.UpdateSQL(r.desc.Table, changes,
			map[string]interface{}{r.desc.IDField: existing[r.desc.IDField]})
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		results, err := storage.ScanRows(rows)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			return ErrNotFound
		}
		updated = results[0]
		return nil
	})
	if err != nil {
		r.renderMutationError(w, p, "update", err)
		return
	}

	response.RenderJSON(w, http.StatusOK, r.desc.Schema.Dump(updated, nil))
}

// remove handles DELETE /<resource>/<id>/
func (r *Resource) remove(w http.ResponseWriter, req *http.Request) {
	p, ok := r.requireAccess(w, req)
	if !ok {
		return
	}
	ctx := req.Context()

	existing, err := r.fetch(req, p)
	if err != nil {
		if IsNotFound(err) {
			response.RenderNotFound(w, "")
			return
		}
		r.logError(p, "delete", err)
		response.RenderInternalError(w)
		return
	}

	if !r.gate.CanDelete(ctx, p, existing) {
		response.RenderForbidden(w)
		return
	}

	err = r.tx.WithTransaction(ctx, func(tx *sql.Tx) error {
		query, args := storage.DeleteSQL(r.desc.Table,
			map[string]interface{}{r.desc.IDField: existing[r.desc.IDField]})
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		r.renderMutationError(w, p, "delete", err)
		return
	}

	response.RenderNoContent(w)
}

// fetch retrieves the record addressed by the URL id through the narrowed
// collection, so rows outside the principal's tenant scope read as absent
func (r *Resource) fetch(req *http.Request, p *auth.Principal) (map[string]interface{}, error) {
	id, err := r.coerceID(chi.URLParam(req, "id"))
	if err != nil {
		return nil, ErrNotFound
	}

	ctx := req.Context()
	q := r.gate.Read(ctx, p, NewQuery(r.desc.Table))
	q.Where(r.desc.IDField, Equal, id)
	return q.First(ctx, r.db)
}

// coerceID converts the raw URL id to the id column's declared type
func (r *Resource) coerceID(raw string) (interface{}, error) {
	f, _ := r.desc.Schema.Field(r.desc.IDField)
	return coerceScalar(raw, f.Type)
}

// requireAccess checks authentication and role requirements
func (r *Resource) requireAccess(w http.ResponseWriter, req *http.Request) (*auth.Principal, bool) {
	p, _ := auth.PrincipalFromContext(req.Context())

	if p == nil {
		if r.desc.AuthRequired {
			response.RenderUnauthorized(w, "")
			return nil, false
		}
		return nil, true
	}

	if len(r.desc.RolesAccepted) > 0 && !p.HasAnyRole(r.desc.RolesAccepted...) {
		response.RenderForbidden(w)
		return nil, false
	}
	for _, role := range r.desc.RolesRequired {
		if !p.HasRole(role) {
			response.RenderForbidden(w)
			return nil, false
		}
	}

	return p, true
}

// renderMutationError maps a mutation failure to its status code
func (r *Resource) renderMutationError(w http.ResponseWriter, p *auth.Principal, op string, err error) {
	if errors.Is(err, ErrForbidden) {
		response.RenderForbidden(w)
		return
	}
	if IsNotFound(err) {
		response.RenderNotFound(w, "")
		return
	}

	converted := ConvertDBError(err)
	if IsConflict(converted) {
		r.logError(p, op, converted)
		response.RenderConflict(w, "conflicting value for a unique field")
		return
	}

	r.logError(p, op, err)
	response.RenderInternalError(w)
}

// logError records the failure with resource, operation, and principal
// identity for audit; the error text stays server-side
func (r *Resource) logError(p *auth.Principal, op string, err error) {
	var principalID int64
	if p != nil {
		principalID = p.ID
	}
	r.log.Error("resource operation failed",
		zap.String("resource", r.desc.Name),
		zap.String("operation", op),
		zap.Int64("principal_id", principalID),
		zap.Error(err),
	)
}

// insertRecord persists one record and returns the stored row
func insertRecord(ctx context.Context, tx *sql.Tx, table string, record map[string]interface{}) (map[string]interface{}, error) {
	query, args := storage.InsertSQL(table, record)
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results, err := storage.ScanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("insert into %s returned no row", table)
	}
	return results[0], nil
}

// decodePayloads reads a request body holding either a single object or
// an array of objects
func decodePayloads(body io.Reader) ([]map[string]interface{}, bool, error) {
	var raw interface{}
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, false, err
	}

	switch v := raw.(type) {
	case map[string]interface{}:
		return []map[string]interface{}{v}, false, nil
	case []interface{}:
		payloads := make([]map[string]interface{}, 0, len(v))
		for _, item := range v {
			payload, ok := item.(map[string]interface{})
			if !ok {
				return nil, true, fmt.Errorf("array items must be objects")
			}
			payloads = append(payloads, payload)
		}
		if len(payloads) == 0 {
			return nil, true, fmt.Errorf("empty array")
		}
		return payloads, true, nil
	default:
		return nil, false, fmt.Errorf("expected object or array")
	}
}

// decodePayload reads a request body holding a single object
func decodePayload(body io.Reader) (map[string]interface{}, error) {
	var payload map[string]interface{}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, fmt.Errorf("empty body")
	}
	return payload, nil
}

// parseExpand reads the optional-field expansion parameter for non-list
// operations
func parseExpand(req *http.Request, d *Descriptor) ([]string, error) {
	params := &ListParams{}
	if err := parseOptional(req.URL.Query()[paramOptional], d, params); err != nil {
		return nil, err
	}
	return params.Expand, nil
}
