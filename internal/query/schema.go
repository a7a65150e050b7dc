// Package query compiles declarative filter specifications — nested
// maps/lists of field__operator conditions — into GORM clause expressions,
// and assembles them with ordering, eager includes, joins, and pagination
// into executable queries.
package query

import (
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	gormschema "gorm.io/gorm/schema"
)

// Relation describes a named association from one schema to another.
type Relation struct {
	// StructField is the Go field name, used for GORM Joins/Preload.
	StructField string
	// Target is the schema of the related entity.
	Target *Schema
}

// Schema holds the queryable surface of one entity type: its table name, the
// set of filterable/sortable columns, and an adjacency map of relations. It
// is built once at startup by reflection; no per-request reflection happens.
type Schema struct {
	Name    string
	Table   string
	columns map[string]string // column name -> Go field name
	// relations maps snake_case relation names to pending target types;
	// resolved against the registry on first lookup.
	relationTypes map[string]pendingRelation
	relations     map[string]*Relation
}

type pendingRelation struct {
	structField string
	target      reflect.Type
}

// Registry maps entity types to their schemas. Register every entity during
// startup, then hand the registry to the repositories.
type Registry struct {
	byType map[reflect.Type]*Schema
	naming gormschema.Namer
}

// NewRegistry creates an empty schema registry using GORM's default naming
// strategy, so column and table names match what GORM generates.
func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[reflect.Type]*Schema),
		naming: gormschema.NamingStrategy{},
	}
}

// Register builds and stores the schema for the given entity type. The model
// must be a struct or pointer to struct. Registering the same type twice
// returns the existing schema.
func (r *Registry) Register(model any) (*Schema, error) {
	t := reflect.TypeOf(model)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("query: cannot register non-struct type %s", t)
	}
	if s, ok := r.byType[t]; ok {
		return s, nil
	}

	s := &Schema{
		Name:          t.Name(),
		Table:         r.naming.TableName(t.Name()),
		columns:       make(map[string]string),
		relationTypes: make(map[string]pendingRelation),
		relations:     make(map[string]*Relation),
	}
	r.byType[t] = s
	r.collectFields(s, t)
	r.resolveRelations()
	return s, nil
}

// resolveRelations links pending relation targets for every registered
// schema. Called after each registration so lookups at request time are
// read-only; targets registered later resolve when they register.
func (r *Registry) resolveRelations() {
	for _, s := range r.byType {
		for name, pending := range s.relationTypes {
			if _, done := s.relations[name]; done {
				continue
			}
			if target, ok := r.byType[pending.target]; ok {
				s.relations[name] = &Relation{StructField: pending.structField, Target: target}
			}
		}
	}
}

// MustRegister is Register but panics on error; intended for the composition
// root where a failure is a programming error.
func (r *Registry) MustRegister(model any) *Schema {
	s, err := r.Register(model)
	if err != nil {
		panic(err)
	}
	return s
}

// Schema returns the registered schema for the given entity type, or nil.
func (r *Registry) Schema(model any) *Schema {
	t := reflect.TypeOf(model)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return r.byType[t]
}

var (
	timeType = reflect.TypeOf(time.Time{})
	uuidType = reflect.TypeOf(uuid.UUID{})
)

func (r *Registry) collectFields(s *Schema, t reflect.Type) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := gormschema.ParseTagSetting(f.Tag.Get("gorm"), ";")
		if tag["-"] != "" {
			continue
		}

		// Flatten embedded structs (e.g. the shared base model).
		if f.Anonymous && f.Type.Kind() == reflect.Struct {
			r.collectFields(s, f.Type)
			continue
		}

		if target, ok := relationTarget(f.Type); ok {
			name := r.naming.ColumnName("", f.Name)
			s.relationTypes[name] = pendingRelation{structField: f.Name, target: target}
			continue
		}

		col := tag["COLUMN"]
		if col == "" {
			col = r.naming.ColumnName("", f.Name)
		}
		s.columns[col] = f.Name
	}
}

// relationTarget reports whether the field type is an association (struct,
// pointer to struct, or slice of structs) rather than a scalar column.
func relationTarget(t reflect.Type) (reflect.Type, bool) {
	for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, false
	}
	if t == timeType || t == uuidType {
		return nil, false
	}
	return t, true
}

// HasColumn reports whether the schema has a column with the given name.
func (s *Schema) HasColumn(name string) bool {
	_, ok := s.columns[name]
	return ok
}

// Columns returns the set of column names known to the schema.
func (s *Schema) Columns() []string {
	cols := make([]string, 0, len(s.columns))
	for c := range s.columns {
		cols = append(cols, c)
	}
	return cols
}

// Relation resolves a named relation to its target schema. The target entity
// must itself be registered; unresolved names return false.
func (s *Schema) Relation(name string) (*Relation, bool) {
	rel, ok := s.relations[name]
	return rel, ok
}
