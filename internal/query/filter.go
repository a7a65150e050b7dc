package query

import (
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm/clause"

	"github.com/felix-phuctran/base-be-go/internal/domain"
)

// Compiled is the result of compiling a filter specification: a boolean
// clause expression plus the relation struct-field names referenced by dotted
// paths, which the query builder turns into joins.
type Compiled struct {
	// Expr is nil when the specification is empty (a no-op filter).
	Expr  clause.Expression
	Joins []string
}

// Compile transforms a filter specification into a GORM clause expression.
//
// The specification is the decoded JSON value:
//   - a list combines its members with OR;
//   - a map combines its entries with AND, where purely-numeric keys ("0",
//     "1", …) hold nested sub-specifications and every other key is a
//     "<field>__<operator>" condition;
//   - an empty or nil specification compiles to a no-op filter.
//
// Field paths may cross one relation via "relation.field__op"; the relation
// must be registered in the schema registry. Unknown fields and unknown
// operator suffixes are errors, never silently ignored.
func Compile(s *Schema, spec any) (*Compiled, error) {
	if s == nil {
		return nil, domain.NewAppError(domain.CodeInternal, "filter compile: schema is nil", nil)
	}
	c := &compiler{schema: s, joins: make(map[string]struct{})}
	expr, err := c.compile(spec)
	if err != nil {
		return nil, err
	}

	joins := make([]string, 0, len(c.joins))
	for j := range c.joins {
		joins = append(joins, j)
	}
	sort.Strings(joins)

	return &Compiled{Expr: expr, Joins: joins}, nil
}

type compiler struct {
	schema *Schema
	joins  map[string]struct{}
}

func (c *compiler) compile(spec any) (clause.Expression, error) {
	switch v := spec.(type) {
	case nil:
		return nil, nil
	case []any:
		return c.compileList(v)
	case []map[string]any:
		list := make([]any, len(v))
		for i, m := range v {
			list[i] = m
		}
		return c.compileList(list)
	case map[string]any:
		return c.compileMap(v)
	default:
		return nil, domain.NewAppError(domain.CodeInvalidFilter,
			fmt.Sprintf("filter must be an object or array, got %T", spec), nil)
	}
}

// compileList combines sub-specifications with OR.
func (c *compiler) compileList(specs []any) (clause.Expression, error) {
	parts := make([]clause.Expression, 0, len(specs))
	for _, sub := range specs {
		expr, err := c.compile(sub)
		if err != nil {
			return nil, err
		}
		if expr != nil {
			parts = append(parts, expr)
		}
	}
	switch len(parts) {
	case 0:
		return nil, nil
	case 1:
		return parts[0], nil
	default:
		return clause.Or(parts...), nil
	}
}

// compileMap combines numeric-key groups and field conditions with AND.
func (c *compiler) compileMap(spec map[string]any) (clause.Expression, error) {
	keys := make([]string, 0, len(spec))
	for k := range spec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]clause.Expression, 0, len(keys))
	for _, k := range keys {
		var (
			expr clause.Expression
			err  error
		)
		if isNumericKey(k) {
			expr, err = c.compile(spec[k])
		} else {
			expr, err = c.condition(k, spec[k])
		}
		if err != nil {
			return nil, err
		}
		if expr != nil {
			parts = append(parts, expr)
		}
	}
	switch len(parts) {
	case 0:
		return nil, nil
	case 1:
		return parts[0], nil
	default:
		return clause.And(parts...), nil
	}
}

// condition compiles one "<field>__<operator>" key into an atomic predicate.
func (c *compiler) condition(key string, value any) (clause.Expression, error) {
	// A key that is itself a column name means equality, even when it ends
	// in text that happens to match an operator suffix.
	if c.schema.HasColumn(key) {
		return buildExpr(OpEq, clause.Column{Name: key}, value)
	}

	fieldPath := key
	opName := ""
	if idx := strings.LastIndex(key, "__"); idx >= 0 {
		fieldPath = key[:idx]
		opName = key[idx+2:]
	}

	op := OpEq
	if opName != "" && opName != lastSegment(fieldPath) {
		var ok bool
		op, ok = operators[opName]
		if !ok {
			return nil, domain.NewAppError(domain.CodeUnknownOperator,
				fmt.Sprintf("unknown filter operator %q in key %q", opName, key), nil)
		}
	}

	col, err := c.resolveColumn(fieldPath)
	if err != nil {
		return nil, err
	}
	return buildExpr(op, col, value)
}

// resolveColumn maps a field path to a column reference, following at most
// one "relation.field" hop through the schema graph.
func (c *compiler) resolveColumn(fieldPath string) (clause.Column, error) {
	relName, field, dotted := strings.Cut(fieldPath, ".")
	if !dotted {
		if !c.schema.HasColumn(fieldPath) {
			return clause.Column{}, domain.NewAppError(domain.CodeUnknownField,
				fmt.Sprintf("unknown field %q on %s", fieldPath, c.schema.Name), nil)
		}
		return clause.Column{Name: fieldPath}, nil
	}

	rel, ok := c.schema.Relation(relName)
	if !ok {
		return clause.Column{}, domain.NewAppError(domain.CodeUnknownField,
			fmt.Sprintf("unknown relation %q on %s", relName, c.schema.Name), nil)
	}
	if !rel.Target.HasColumn(field) {
		return clause.Column{}, domain.NewAppError(domain.CodeUnknownField,
			fmt.Sprintf("unknown field %q on relation %q", field, relName), nil)
	}
	c.joins[rel.StructField] = struct{}{}
	// GORM aliases relation joins with the struct field name, so the column
	// is qualified with the alias rather than the underlying table.
	return clause.Column{Table: rel.StructField, Name: field}, nil
}

// buildExpr produces the atomic predicate for one operator.
func buildExpr(op Operator, col clause.Column, value any) (clause.Expression, error) {
	switch op {
	case OpEq:
		return clause.Eq{Column: col, Value: value}, nil
	case OpLt:
		return clause.Lt{Column: col, Value: value}, nil
	case OpLte:
		return clause.Lte{Column: col, Value: value}, nil
	case OpGt:
		return clause.Gt{Column: col, Value: value}, nil
	case OpGte:
		return clause.Gte{Column: col, Value: value}, nil
	case OpNeq:
		return clause.Neq{Column: col, Value: value}, nil
	case OpLike:
		return clause.Like{Column: col, Value: wrapPattern(value)}, nil
	case OpILike:
		return clause.Expr{SQL: "LOWER(?) LIKE LOWER(?)", Vars: []any{col, wrapPattern(value)}}, nil
	case OpIn:
		values, err := listValues(op, value)
		if err != nil {
			return nil, err
		}
		return clause.IN{Column: col, Values: values}, nil
	case OpNotIn:
		values, err := listValues(op, value)
		if err != nil {
			return nil, err
		}
		return clause.Not(clause.IN{Column: col, Values: values}), nil
	case OpIs:
		return clause.Eq{Column: col, Value: value}, nil
	case OpIsNot:
		return clause.Neq{Column: col, Value: value}, nil
	case OpBetween:
		bounds, err := listValues(op, value)
		if err != nil {
			return nil, err
		}
		if len(bounds) != 2 {
			return nil, domain.NewAppError(domain.CodeInvalidFilter,
				"between requires a two-element array", nil)
		}
		return clause.And(
			clause.Gte{Column: col, Value: bounds[0]},
			clause.Lte{Column: col, Value: bounds[1]},
		), nil
	case OpIsNull:
		if isTrue(value) {
			return clause.Eq{Column: col, Value: nil}, nil
		}
		return clause.Neq{Column: col, Value: nil}, nil
	default:
		return nil, domain.NewAppError(domain.CodeUnknownOperator,
			fmt.Sprintf("unsupported operator %q", op), nil)
	}
}

// wrapPattern wraps a value in % wildcards for substring matching.
func wrapPattern(value any) string {
	s := fmt.Sprint(value)
	if strings.HasPrefix(s, "%") || strings.HasSuffix(s, "%") {
		return s
	}
	return "%" + s + "%"
}

func listValues(op Operator, value any) ([]any, error) {
	values, ok := value.([]any)
	if !ok {
		return nil, domain.NewAppError(domain.CodeInvalidFilter,
			fmt.Sprintf("operator %q requires an array value, got %T", op, value), nil)
	}
	return values, nil
}

func isTrue(value any) bool {
	b, ok := value.(bool)
	return ok && b
}

// lastSegment returns the field name of a possibly-dotted field path.
func lastSegment(fieldPath string) string {
	if idx := strings.LastIndex(fieldPath, "."); idx >= 0 {
		return fieldPath[idx+1:]
	}
	return fieldPath
}

// isNumericKey reports whether the key consists solely of ASCII digits.
// Such keys mark nested grouping sub-specifications.
func isNumericKey(k string) bool {
	if k == "" {
		return false
	}
	for _, r := range k {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
