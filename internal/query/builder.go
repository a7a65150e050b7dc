package query

import (
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/felix-phuctran/base-be-go/internal/domain"
)

// validFieldName matches only alphanumeric characters and underscores.
var validFieldName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Builder assembles a compiled filter with joins, eager includes, and
// ordering into one lazy GORM query. Pagination is deliberately not part of
// Build: callers count the filtered rows first, then apply the Paginate
// scope.
type Builder struct {
	schema *Schema
}

// NewBuilder creates a Builder for the given schema.
func NewBuilder(s *Schema) *Builder {
	return &Builder{schema: s}
}

// Schema returns the schema the builder compiles against.
func (b *Builder) Schema() *Schema {
	return b.schema
}

// Build applies the filter, join, include, and ordering parts of params onto
// db and returns the extended query. The returned query has not been
// executed. Unknown fields, operators, and relation names are errors.
func (b *Builder) Build(db *gorm.DB, params domain.ListParams) (*gorm.DB, error) {
	joins := make(map[string]struct{})

	if params.Filter != nil {
		compiled, err := Compile(b.schema, params.Filter)
		if err != nil {
			return nil, err
		}
		if compiled.Expr != nil {
			db = db.Where(compiled.Expr)
		}
		for _, j := range compiled.Joins {
			joins[j] = struct{}{}
		}
	}

	if err := b.collectJoinDirective(params.Join, joins); err != nil {
		return nil, err
	}
	for j := range joins {
		db = db.Joins(j)
	}

	if params.Include != "" {
		var err error
		db, err = b.applyIncludes(db, params.Include)
		if err != nil {
			return nil, err
		}
	}

	if params.OrderBy != "" {
		var err error
		db, err = b.applyOrderBy(db, params.OrderBy)
		if err != nil {
			return nil, err
		}
	}

	return db, nil
}

// collectJoinDirective resolves the join directive ({"relation": {}}) into
// relation struct-field names. The directive is a forward-compatibility
// surface: an empty object is a no-op, named relations are joined.
func (b *Builder) collectJoinDirective(join any, joins map[string]struct{}) error {
	if join == nil {
		return nil
	}
	directive, ok := join.(map[string]any)
	if !ok {
		return domain.NewAppError(domain.CodeInvalidFilter,
			fmt.Sprintf("join must be an object, got %T", join), nil)
	}
	for name := range directive {
		rel, ok := b.schema.Relation(name)
		if !ok {
			return domain.NewAppError(domain.CodeUnknownField,
				fmt.Sprintf("unknown join relation %q on %s", name, b.schema.Name), nil)
		}
		joins[rel.StructField] = struct{}{}
	}
	return nil
}

// applyIncludes attaches eager-loading directives for each named relation.
func (b *Builder) applyIncludes(db *gorm.DB, include string) (*gorm.DB, error) {
	for _, name := range strings.Split(include, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		rel, ok := b.schema.Relation(name)
		if !ok {
			return nil, domain.NewAppError(domain.CodeUnknownField,
				fmt.Sprintf("unknown include relation %q on %s", name, b.schema.Name), nil)
		}
		db = db.Preload(rel.StructField)
	}
	return db, nil
}

// applyOrderBy parses the comma-separated order list. A "-" prefix sorts
// descending. Unknown field names are a configuration error, not silently
// dropped.
func (b *Builder) applyOrderBy(db *gorm.DB, orderBy string) (*gorm.DB, error) {
	for _, token := range strings.Split(orderBy, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		desc := strings.HasPrefix(token, "-")
		field := strings.TrimPrefix(token, "-")

		if !validFieldName.MatchString(field) || !b.schema.HasColumn(field) {
			return nil, domain.NewAppError(domain.CodeUnknownField,
				fmt.Sprintf("unknown order_by field %q on %s", field, b.schema.Name), nil)
		}

		db = db.Order(clause.OrderByColumn{
			Column: clause.Column{Name: field},
			Desc:   desc,
		})
	}
	return db, nil
}

// Paginate returns a GORM scope that applies OFFSET and LIMIT from the list
// params. Applied last, after filtering and counting.
func Paginate(params domain.ListParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		skip := params.Skip
		if skip < 0 {
			skip = 0
		}
		if skip > 0 {
			db = db.Offset(skip)
		}
		if params.Limit > 0 {
			db = db.Limit(params.Limit)
		}
		return db
	}
}
