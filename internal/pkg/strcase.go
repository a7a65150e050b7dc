package pkg

import (
	"strings"
	"unicode"
)

// ToSnakeCase converts camelCase or PascalCase into snake_case. Existing
// underscores are preserved, so operator suffixes like "__gte" survive:
// "ownerId__gte" becomes "owner_id__gte".
func ToSnakeCase(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NormalizeKeys recursively converts every map key in a decoded JSON value
// to snake_case. External payloads may arrive in camelCase; columns are
// snake_case, so filter and join specifications are normalized before
// compilation. Values are never altered.
func NormalizeKeys(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, sub := range val {
			out[ToSnakeCase(k)] = NormalizeKeys(sub)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, sub := range val {
			out[i] = NormalizeKeys(sub)
		}
		return out
	default:
		return v
	}
}

// SnakeCaseList snake-cases each comma-separated token, preserving "-"
// ordering prefixes ("-createdAt" becomes "-created_at").
func SnakeCaseList(s string) string {
	if s == "" {
		return ""
	}
	tokens := strings.Split(s, ",")
	for i, t := range tokens {
		t = strings.TrimSpace(t)
		if strings.HasPrefix(t, "-") {
			tokens[i] = "-" + ToSnakeCase(strings.TrimPrefix(t, "-"))
		} else {
			tokens[i] = ToSnakeCase(t)
		}
	}
	return strings.Join(tokens, ",")
}
