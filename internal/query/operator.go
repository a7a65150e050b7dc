package query

// Operator is the closed set of filter condition operators. Keys carry the
// operator as a "__<suffix>" on the field name; a key without a recognized
// suffix (or whose suffix equals the field name itself) means equality.
type Operator int

const (
	OpEq Operator = iota
	OpLt
	OpLte
	OpGt
	OpGte
	OpNeq
	OpLike
	OpILike
	OpIn
	OpNotIn
	OpIs
	OpIsNot
	OpBetween
	OpIsNull
)

// operators maps key suffixes to operators. Built once; unknown suffixes are
// rejected at compile time rather than silently treated as equality.
var operators = map[string]Operator{
	"lt":      OpLt,
	"lte":     OpLte,
	"gt":      OpGt,
	"gte":     OpGte,
	"neq":     OpNeq,
	"like":    OpLike,
	"ilike":   OpILike,
	"in":      OpIn,
	"nin":     OpNotIn,
	"is":      OpIs,
	"isn":     OpIsNot,
	"between": OpBetween,
	"isnull":  OpIsNull,
}

// String returns the canonical suffix for the operator.
func (op Operator) String() string {
	switch op {
	case OpEq:
		return "eq"
	case OpLt:
		return "lt"
	case OpLte:
		return "lte"
	case OpGt:
		return "gt"
	case OpGte:
		return "gte"
	case OpNeq:
		return "neq"
	case OpLike:
		return "like"
	case OpILike:
		return "ilike"
	case OpIn:
		return "in"
	case OpNotIn:
		return "nin"
	case OpIs:
		return "is"
	case OpIsNot:
		return "isn"
	case OpBetween:
		return "between"
	case OpIsNull:
		return "isnull"
	default:
		return "unknown"
	}
}
