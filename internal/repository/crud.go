// Package repository provides a generic, soft-delete-aware CRUD base over
// GORM. Feature repositories embed CRUD[T] and add entity-specific lookups.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/felix-phuctran/base-be-go/internal/domain"
	"github.com/felix-phuctran/base-be-go/internal/pkg"
	"github.com/felix-phuctran/base-be-go/internal/query"
)

// CRUD is a generic data-access base for one entity type. Every read that is
// not explicitly "including soft deleted" excludes rows whose deleted_at is
// set. Writes run in a single transaction scope and roll back fully on
// constraint violations.
type CRUD[T any] struct {
	db      *gorm.DB
	schema  *query.Schema
	builder *query.Builder
}

// NewCRUD creates a CRUD base for the entity described by schema.
func NewCRUD[T any](db *gorm.DB, schema *query.Schema) *CRUD[T] {
	return &CRUD[T]{
		db:      db,
		schema:  schema,
		builder: query.NewBuilder(schema),
	}
}

// DB exposes the underlying handle for entity-specific queries in embedding
// repositories.
func (r *CRUD[T]) DB() *gorm.DB {
	return r.db
}

// Schema returns the entity schema the base compiles filters against.
func (r *CRUD[T]) Schema() *query.Schema {
	return r.schema
}

// notDeleted is the soft-delete exclusion predicate, table-qualified so it
// stays unambiguous when relations are joined.
func (r *CRUD[T]) notDeleted() clause.Expression {
	return clause.Eq{
		Column: clause.Column{Table: r.schema.Table, Name: "deleted_at"},
		Value:  nil,
	}
}

// Get retrieves a record by id, excluding soft-deleted rows. Absence is not
// an error: a missing record returns (nil, nil).
func (r *CRUD[T]) Get(ctx context.Context, id uuid.UUID) (*T, error) {
	var obj T
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Where(r.notDeleted()).
		First(&obj).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &obj, nil
}

// GetIncludingSoftDeleted retrieves a record by id regardless of its
// soft-delete state. Absence returns (nil, nil).
func (r *CRUD[T]) GetIncludingSoftDeleted(ctx context.Context, id uuid.UUID) (*T, error) {
	var obj T
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&obj).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &obj, nil
}

// GetMulti returns the page of records matching params, excluding
// soft-deleted rows.
func (r *CRUD[T]) GetMulti(ctx context.Context, params domain.ListParams) ([]T, error) {
	tx, err := r.buildQuery(ctx, params)
	if err != nil {
		return nil, err
	}
	tx = tx.Where(r.notDeleted())

	var items []T
	if err := tx.Scopes(query.Paginate(params)).Find(&items).Error; err != nil {
		return nil, mapError(err)
	}
	return items, nil
}

// GetMultiIncludingSoftDeleted returns the page of records matching params,
// soft-deleted rows included.
func (r *CRUD[T]) GetMultiIncludingSoftDeleted(ctx context.Context, params domain.ListParams) ([]T, error) {
	tx, err := r.buildQuery(ctx, params)
	if err != nil {
		return nil, err
	}

	var items []T
	if err := tx.Scopes(query.Paginate(params)).Find(&items).Error; err != nil {
		return nil, mapError(err)
	}
	return items, nil
}

// GetMultiBy returns the page of records matching params plus the total
// count over the filtered, non-paginated result set, excluding soft-deleted
// rows. The total is always >= the number of returned items.
func (r *CRUD[T]) GetMultiBy(ctx context.Context, params domain.ListParams) (*domain.ListResult[T], error) {
	tx, err := r.buildQuery(ctx, params)
	if err != nil {
		return nil, err
	}
	tx = tx.Where(r.notDeleted())
	return r.listWithTotal(tx, params)
}

// GetMultiIncludingSoftDeletedBy is GetMultiBy without soft-delete
// exclusion.
func (r *CRUD[T]) GetMultiIncludingSoftDeletedBy(ctx context.Context, params domain.ListParams) (*domain.ListResult[T], error) {
	tx, err := r.buildQuery(ctx, params)
	if err != nil {
		return nil, err
	}
	return r.listWithTotal(tx, params)
}

func (r *CRUD[T]) buildQuery(ctx context.Context, params domain.ListParams) (*gorm.DB, error) {
	return r.builder.Build(r.db.WithContext(ctx).Model(new(T)), params)
}

func (r *CRUD[T]) listWithTotal(tx *gorm.DB, params domain.ListParams) (*domain.ListResult[T], error) {
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, mapError(err)
	}

	var items []T
	if err := tx.Scopes(query.Paginate(params)).Find(&items).Error; err != nil {
		return nil, mapError(err)
	}
	if items == nil {
		items = []T{}
	}

	return &domain.ListResult[T]{Total: total, Results: items}, nil
}

// Create inserts a new record. Unique-constraint violations surface as
// DuplicateKey errors carrying the driver detail.
func (r *CRUD[T]) Create(ctx context.Context, obj *T) (*T, error) {
	if err := r.db.WithContext(ctx).Create(obj).Error; err != nil {
		return nil, mapError(err)
	}
	return obj, nil
}

// CreateFromMap inserts a new record from a column→value map. Keys are
// normalized to snake_case, unknown columns are dropped, and timestamp-like
// fields ("*_at") arriving as ISO-8601 strings are parsed into native
// timestamps; malformed date strings are rejected.
func (r *CRUD[T]) CreateFromMap(ctx context.Context, data map[string]any) (*T, error) {
	row, err := r.normalizeRow(data)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	now := time.Now().UTC()
	row["id"] = id
	if _, ok := row["is_active"]; !ok {
		row["is_active"] = true
	}
	if _, ok := row["created_at"]; !ok {
		row["created_at"] = now
	}
	if _, ok := row["updated_at"]; !ok {
		row["updated_at"] = now
	}

	if err := r.db.WithContext(ctx).Model(new(T)).Create(row).Error; err != nil {
		return nil, mapError(err)
	}
	return r.GetIncludingSoftDeleted(ctx, id)
}

// Update performs a full update: every field present in changes that exists
// on the entity is written, including explicit nulls. The primary key is
// immutable and silently skipped. Valid from the active and soft-deleted
// states only; a vanished row is NotFound.
func (r *CRUD[T]) Update(ctx context.Context, obj *T, changes map[string]any) (*T, error) {
	return r.applyChanges(ctx, obj, changes)
}

// Patch performs a partial update. Mechanically identical to Update — the
// change map only ever carries fields the caller explicitly provided, so a
// key mapped to nil means "set NULL" while an absent key leaves the previous
// value.
func (r *CRUD[T]) Patch(ctx context.Context, obj *T, changes map[string]any) (*T, error) {
	return r.applyChanges(ctx, obj, changes)
}

func (r *CRUD[T]) applyChanges(ctx context.Context, obj *T, changes map[string]any) (*T, error) {
	row, err := r.normalizeRow(changes)
	if err != nil {
		return nil, err
	}
	if len(row) == 0 {
		return obj, nil
	}

	res := r.db.WithContext(ctx).Model(obj).Updates(row)
	if res.Error != nil {
		return nil, mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}
	return obj, nil
}

// Remove soft-deletes a record: is_active becomes false and deleted_at is
// set. Idempotent — removing an already soft-deleted record does not advance
// deleted_at. Returns the (soft-deleted) record.
func (r *CRUD[T]) Remove(ctx context.Context, id uuid.UUID) (*T, error) {
	res := r.db.WithContext(ctx).Model(new(T)).
		Where("id = ?", id).
		Where("deleted_at IS NULL").
		Updates(map[string]any{
			"is_active":  false,
			"deleted_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, mapError(res.Error)
	}

	obj, err := r.GetIncludingSoftDeleted(ctx, id)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, domain.ErrNotFound
	}
	return obj, nil
}

// Restore reverses a soft delete: deleted_at is cleared and is_active set
// back to true.
func (r *CRUD[T]) Restore(ctx context.Context, id uuid.UUID) (*T, error) {
	res := r.db.WithContext(ctx).Model(new(T)).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_active":  true,
			"deleted_at": nil,
		})
	if res.Error != nil {
		return nil, mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}
	return r.Get(ctx, id)
}

// Delete hard-deletes a record by id. Terminal and unrecoverable.
func (r *CRUD[T]) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(new(T))
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteObj hard-deletes the given record.
func (r *CRUD[T]) DeleteObj(ctx context.Context, obj *T) error {
	if err := r.db.WithContext(ctx).Delete(obj).Error; err != nil {
		return mapError(err)
	}
	return nil
}

// GetOneBy returns the first record matching the filter specification,
// excluding soft-deleted rows. No match returns (nil, nil).
func (r *CRUD[T]) GetOneBy(ctx context.Context, filter any) (*T, error) {
	return r.getOneBy(ctx, filter, true)
}

// GetOneIncludingSoftDeletedBy is GetOneBy without soft-delete exclusion.
func (r *CRUD[T]) GetOneIncludingSoftDeletedBy(ctx context.Context, filter any) (*T, error) {
	return r.getOneBy(ctx, filter, false)
}

// GetOneByOrFail is GetOneBy, but no match is a NotFound error.
func (r *CRUD[T]) GetOneByOrFail(ctx context.Context, filter any) (*T, error) {
	obj, err := r.GetOneBy(ctx, filter)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, domain.NewAppError(domain.CodeNotFound, r.schema.Name+" not found", nil)
	}
	return obj, nil
}

func (r *CRUD[T]) getOneBy(ctx context.Context, filter any, excludeDeleted bool) (*T, error) {
	compiled, err := query.Compile(r.schema, filter)
	if err != nil {
		return nil, err
	}

	tx := r.db.WithContext(ctx).Model(new(T))
	for _, j := range compiled.Joins {
		tx = tx.Joins(j)
	}
	if compiled.Expr != nil {
		tx = tx.Where(compiled.Expr)
	}
	if excludeDeleted {
		tx = tx.Where(r.notDeleted())
	}

	var obj T
	err = tx.First(&obj).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &obj, nil
}

// UpdateOneBy finds the first record matching the filter (soft-deleted rows
// excluded) and applies the changes. No match returns (nil, nil) without
// error.
func (r *CRUD[T]) UpdateOneBy(ctx context.Context, filter any, changes map[string]any) (*T, error) {
	obj, err := r.GetOneBy(ctx, filter)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}
	return r.Update(ctx, obj, changes)
}

// Clone duplicates the record's non-primary-key columns, applies overrides,
// and inserts the copy under a freshly generated identifier.
func (r *CRUD[T]) Clone(ctx context.Context, id uuid.UUID, overrides map[string]any) (*T, error) {
	var source map[string]any
	err := r.db.WithContext(ctx).Model(new(T)).
		Where("id = ?", id).
		Take(&source).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, mapError(err)
	}

	row, err := r.normalizeRow(overrides)
	if err != nil {
		return nil, err
	}
	for k, v := range row {
		source[k] = v
	}

	cloneID := uuid.New()
	now := time.Now().UTC()
	source["id"] = cloneID
	source["created_at"] = now
	source["updated_at"] = now

	if err := r.db.WithContext(ctx).Model(new(T)).Create(source).Error; err != nil {
		return nil, mapError(err)
	}
	return r.GetIncludingSoftDeleted(ctx, cloneID)
}

// Save persists the given record, inserting or updating as needed.
func (r *CRUD[T]) Save(ctx context.Context, obj *T) (*T, error) {
	if err := r.db.WithContext(ctx).Save(obj).Error; err != nil {
		return nil, mapError(err)
	}
	return obj, nil
}

// BatchInsertWithObjects inserts the given records in one transaction. The
// whole batch fails atomically: if any row violates a constraint, nothing is
// persisted and a BatchInsertFailure carries the underlying message.
func (r *CRUD[T]) BatchInsertWithObjects(ctx context.Context, objects []*T) error {
	if len(objects) == 0 {
		return nil
	}
	err := pkg.WithTx(r.db.WithContext(ctx), func(tx *gorm.DB) error {
		return tx.Create(objects).Error
	})
	if err != nil {
		return domain.NewAppError(domain.CodeBatchInsert,
			fmt.Sprintf("batch insert failed: %s", err.Error()), err)
	}
	return nil
}

// BatchInsertWithMappings inserts raw column→value mappings in one
// transaction with the same all-or-nothing semantics as
// BatchInsertWithObjects.
func (r *CRUD[T]) BatchInsertWithMappings(ctx context.Context, mappings []map[string]any) error {
	if len(mappings) == 0 {
		return nil
	}

	rows := make([]map[string]any, 0, len(mappings))
	now := time.Now().UTC()
	for _, m := range mappings {
		row, err := r.normalizeRow(m)
		if err != nil {
			return err
		}
		if _, ok := row["id"]; !ok {
			row["id"] = uuid.New()
		}
		if _, ok := row["is_active"]; !ok {
			row["is_active"] = true
		}
		if _, ok := row["created_at"]; !ok {
			row["created_at"] = now
		}
		if _, ok := row["updated_at"]; !ok {
			row["updated_at"] = now
		}
		rows = append(rows, row)
	}

	err := pkg.WithTx(r.db.WithContext(ctx), func(tx *gorm.DB) error {
		return tx.Model(new(T)).Create(rows).Error
	})
	if err != nil {
		return domain.NewAppError(domain.CodeBatchInsert,
			fmt.Sprintf("batch insert failed: %s", err.Error()), err)
	}
	return nil
}

// normalizeRow snake-cases keys, drops unknown columns and the immutable
// primary key, and parses ISO-8601 strings in timestamp columns.
func (r *CRUD[T]) normalizeRow(data map[string]any) (map[string]any, error) {
	row := make(map[string]any, len(data))
	for k, v := range data {
		col := pkg.ToSnakeCase(k)
		if col == "id" || !r.schema.HasColumn(col) {
			continue
		}
		if strings.HasSuffix(col, "_at") {
			parsed, err := parseTimestamp(col, v)
			if err != nil {
				return nil, err
			}
			v = parsed
		}
		row[col] = v
	}
	return row, nil
}

// timestampLayouts lists the accepted ISO-8601 shapes, with and without
// timezone and sub-second precision.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTimestamp converts an ISO-8601 string to time.Time. Non-string values
// (already-parsed times, nil) pass through untouched.
func parseTimestamp(col string, v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, domain.NewAppError(domain.CodeValidation,
		fmt.Sprintf("invalid timestamp %q for field %q", s, col), nil)
}

// mapError converts GORM errors to domain errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicateKeyError(err) {
		return domain.NewAppError(domain.CodeDuplicateKey, "duplicate key", err)
	}
	return domain.NewAppError(domain.CodeInternal, "database error", err)
}

// isDuplicateKeyError detects unique constraint violations by examining the
// error message. This is needed because not all GORM dialectors translate
// driver-level errors to gorm.ErrDuplicatedKey (e.g. the pure-Go SQLite
// driver).
func isDuplicateKeyError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
