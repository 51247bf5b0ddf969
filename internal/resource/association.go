package resource

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/saurabh1e/pos-api/internal/auth"
	"github.com/saurabh1e/pos-api/internal/schema"
	"github.com/saurabh1e/pos-api/internal/storage"
	"github.com/saurabh1e/pos-api/internal/web/response"
)

// AssociationDescriptor configures a resource over a join entity whose
// identity is the pair of foreign keys rather than a single id
type AssociationDescriptor struct {
	Descriptor

	// LeftKey and RightKey are the two foreign-key columns forming the
	// composite identity, in path order
	LeftKey  string
	RightKey string
}

// Validate extends descriptor validation with the composite-key checks
func (d *AssociationDescriptor) Validate() error {
	if err := d.Descriptor.Validate(); err != nil {
		return err
	}
	if d.LeftKey == "" || d.RightKey == "" {
		return fmt.Errorf("descriptor %s: association needs both key columns", d.Name)
	}
	for _, key := range []string{d.LeftKey, d.RightKey} {
		if !d.Schema.HasColumn(key) {
			return fmt.Errorf("descriptor %s: key %s is not a column", d.Name, key)
		}
	}
	return nil
}

// AssociationResource serves a join entity. Its permission hooks receive
// both the persisted record and the raw payload.
type AssociationResource struct {
	desc *AssociationDescriptor
	gate AssociationGate
	db   *sql.DB
	tx   *storage.Manager
	log  *zap.Logger
}

// NewAssociation creates an AssociationResource, validating its descriptor
func NewAssociation(desc *AssociationDescriptor, gate AssociationGate, db *sql.DB, log *zap.Logger) (*AssociationResource, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if gate == nil {
		return nil, fmt.Errorf("resource %s: gate is required", desc.Name)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AssociationResource{
		desc: desc,
		gate: gate,
		db:   db,
		tx:   storage.NewManager(db),
		log:  log,
	}, nil
}

// Descriptor returns the association's descriptor
func (ar *AssociationResource) Descriptor() *AssociationDescriptor {
	return ar.desc
}

// Mount registers the association's routes. Items are addressed by the
// composite key pair in the path, under the key column names.
func (ar *AssociationResource) Mount(router chi.Router) {
	item := "/{" + ar.desc.LeftKey + "}/{" + ar.desc.RightKey + "}"
	router.Route("/"+ar.desc.Name, func(rt chi.Router) {
		rt.Get("/", ar.list)
		rt.Post("/", ar.create)
		rt.Get(item, ar.retrieve)
		rt.Put(item, ar.update)
		rt.Patch(item, ar.update)
		rt.Delete(item, ar.remove)
	})
}

func (ar *AssociationResource) list(w http.ResponseWriter, req *http.Request) {
	p, ok := ar.requireAccess(w, req)
	if !ok {
		return
	}
	ctx := req.Context()

	params, err := ParseListParams(req.URL.Query(), &ar.desc.Descriptor)
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	q := ar.gate.Read(ctx, p, NewQuery(ar.desc.Table))
	q.ApplyFilters(params.Filters)

	total, err := q.Count(ctx, ar.db)
	if err != nil {
		ar.logError(p, "list", err)
		response.RenderInternalError(w)
		return
	}

	if params.OrderBy != "" {
		q.Order(params.OrderBy, params.OrderDesc)
	}
	for _, field := range ar.desc.OrderBy {
		if field != params.OrderBy {
			q.Order(field, false)
		}
	}

	limit := ar.desc.clampLimit(params.Limit)
	q.Page(limit, params.Offset)

	records, err := q.All(ctx, ar.db)
	if err != nil {
		ar.logError(p, "list", err)
		response.RenderInternalError(w)
		return
	}

	data := make([]map[string]interface{}, 0, len(records))
	for _, record := range records {
		if err := ar.desc.expandRecord(ctx, ar.db, record, params.Expand); err != nil {
			ar.logError(p, "list", err)
			response.RenderInternalError(w)
			return
		}
		data = append(data, ar.desc.Schema.Dump(record, params.Expand))
	}

	response.RenderList(w, data, total, limit, params.Offset)
}

func (ar *AssociationResource) retrieve(w http.ResponseWriter, req *http.Request) {
	p, ok := ar.requireAccess(w, req)
	if !ok {
		return
	}

	record, err := ar.fetch(req, p)
	if err != nil {
		if IsNotFound(err) {
			response.RenderNotFound(w, "")
			return
		}
		ar.logError(p, "retrieve", err)
		response.RenderInternalError(w)
		return
	}

	response.RenderJSON(w, http.StatusOK, ar.desc.Schema.Dump(record, nil))
}

func (ar *AssociationResource) create(w http.ResponseWriter, req *http.Request) {
	p, ok := ar.requireAccess(w, req)
	if !ok {
		return
	}
	ctx := req.Context()

	payloads, many, err := decodePayloads(req.Body)
	if err != nil {
		response.RenderBadRequest(w, "invalid request body")
		return
	}

	records := make([]map[string]interface{}, 0, len(payloads))
	combined := schema.NewValidationErrors()
	for i, payload := range payloads {
		ar.desc.Schema.Resolve(ctx, ar.db, payload)
		record, verrs := ar.desc.Schema.Load(payload)
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
	err = ar.tx.WithTransaction(ctx, func(tx *sql.Tx) error {
		allowed, err := ar.gate.CanAdd(ctx, tx, p, records)
		if err != nil {
			return err
		}
		if !allowed {
			return ErrForbidden
		}

		for _, record := range records {
			row, err := insertRecord(ctx, tx, ar.desc.Table, record)
			if err != nil {
				return err
			}
			created = append(created, row)
		}
		return nil
	})
	if err != nil {
		ar.renderMutationError(w, p, "create", err)
		return
	}

	if many {
		data := make([]map[string]interface{}, 0, len(created))
		for _, record := range created {
			data = append(data, ar.desc.Schema.Dump(record, nil))
		}
		response.RenderJSON(w, http.StatusCreated, data)
		return
	}
	response.RenderJSON(w, http.StatusCreated, ar.desc.Schema.Dump(created[0], nil))
}

func (ar *AssociationResource) update(w http.ResponseWriter, req *http.Request) {
	p, ok := ar.requireAccess(w, req)
	if !ok {
		return
	}
	ctx := req.Context()

	existing, err := ar.fetch(req, p)
	if err != nil {
		if IsNotFound(err) {
			response.RenderNotFound(w, "")
			return
		}
		ar.logError(p, "update", err)
		response.RenderInternalError(w)
		return
	}

	payload, err := decodePayload(req.Body)
	if err != nil {
		response.RenderBadRequest(w, "invalid request body")
		return
	}

	ar.desc.Schema.Resolve(ctx, ar.db, payload)
	changes, verrs := ar.desc.Schema.LoadPartial(payload)
	if verrs != nil {
		response.RenderValidationError(w, verrs)
		return
	}

	if !ar.gate.CanChange(ctx, p, existing, payload) {
		response.RenderForbidden(w)
		return
	}

	if len(changes) == 0 {
		response.RenderJSON(w, http.StatusOK, ar.desc.Schema.Dump(existing, nil))
		return
	}

	var updated map[string]interface{}
	err = ar.tx.WithTransaction(ctx, func(tx *sql.Tx) error {
		query, args := storage.UpdateSQL(ar.desc.Table, changes, ar.identity(existing))
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
		ar.renderMutationError(w, p, "update", err)
		return
	}

	response.RenderJSON(w, http.StatusOK, ar.desc.Schema.Dump(updated, nil))
}

func (ar *AssociationResource) remove(w http.ResponseWriter, req *http.Request) {
	p, ok := ar.requireAccess(w, req)
	if !ok {
		return
	}
	ctx := req.Context()

	existing, err := ar.fetch(req, p)
	if err != nil {
		if IsNotFound(err) {
			response.RenderNotFound(w, "")
			return
		}
		ar.logError(p, "delete", err)
		response.RenderInternalError(w)
		return
	}

	// A delete body is optional; hooks may need the raw payload
	payload, _ := decodePayload(req.Body)
	if payload == nil {
		payload = map[string]interface{}{}
	}

	if !ar.gate.CanDelete(ctx, p, existing, payload) {
		response.RenderForbidden(w)
		return
	}

	err = ar.tx.WithTransaction(ctx, func(tx *sql.Tx) error {
		query, args := storage.DeleteSQL(ar.desc.Table, ar.identity(existing))
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
	if err != nil {
		ar.renderMutationError(w, p, "delete", err)
		return
	}

	response.RenderNoContent(w)
}

// fetch resolves the composite identity from the path, then retrieves the
// record through the narrowed collection
func (ar *AssociationResource) fetch(req *http.Request, p *auth.Principal) (map[string]interface{}, error) {
	leftField, _ := ar.desc.Schema.Field(ar.desc.LeftKey)
	rightField, _ := ar.desc.Schema.Field(ar.desc.RightKey)

	left, err := coerceScalar(chi.URLParam(req, ar.desc.LeftKey), leftField.Type)
	if err != nil {
		return nil, ErrNotFound
	}
	right, err := coerceScalar(chi.URLParam(req, ar.desc.RightKey), rightField.Type)
	if err != nil {
		return nil, ErrNotFound
	}

	ctx := req.Context()
	q := ar.gate.Read(ctx, p, NewQuery(ar.desc.Table))
	q.Where(ar.desc.LeftKey, Equal, left)
	q.Where(ar.desc.RightKey, Equal, right)
	return q.First(ctx, ar.db)
}

// identity extracts the composite key values from a fetched record
func (ar *AssociationResource) identity(record map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		ar.desc.LeftKey:  record[ar.desc.LeftKey],
		ar.desc.RightKey: record[ar.desc.RightKey],
	}
}

func (ar *AssociationResource) requireAccess(w http.ResponseWriter, req *http.Request) (*auth.Principal, bool) {
	p, _ := auth.PrincipalFromContext(req.Context())

	if p == nil {
		if ar.desc.AuthRequired {
			response.RenderUnauthorized(w, "")
			return nil, false
		}
		return nil, true
	}

	if len(ar.desc.RolesAccepted) > 0 && !p.HasAnyRole(ar.desc.RolesAccepted...) {
		response.RenderForbidden(w)
		return nil, false
	}
	for _, role := range ar.desc.RolesRequired {
		if !p.HasRole(role) {
			response.RenderForbidden(w)
			return nil, false
		}
	}

	return p, true
}

func (ar *AssociationResource) renderMutationError(w http.ResponseWriter, p *auth.Principal, op string, err error) {
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
		ar.logError(p, op, converted)
		response.RenderConflict(w, "conflicting value for a unique field")
		return
	}

	ar.logError(p, op, err)
	response.RenderInternalError(w)
}

func (ar *AssociationResource) logError(p *auth.Principal, op string, err error) {
	var principalID int64
	if p != nil {
		principalID = p.ID
	}
	ar.log.Error("resource operation failed",
		zap.String("resource", ar.desc.Name),
		zap.String("operation", op),
		zap.Int64("principal_id", principalID),
		zap.Error(err),
	)
}
