package pkg

import (
	"encoding/json"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/felix-phuctran/base-be-go/internal/domain"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

// ParseListParams extracts filtering, ordering, include, join, and
// pagination parameters from the request query string.
//
// filter and join arrive as JSON-encoded strings; their keys are normalized
// to snake_case before compilation. skip is derived server-side as
// (page-1)*limit, clamped to zero. Invalid JSON is an InvalidFilter error.
func ParseListParams(c *gin.Context) (domain.ListParams, error) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(defaultPage)))
	if page < 1 {
		page = defaultPage
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	skip := (page - 1) * limit
	if skip < 0 {
		skip = 0
	}

	params := domain.ListParams{
		Skip:    skip,
		Limit:   limit,
		OrderBy: SnakeCaseList(orderByParam(c)),
		Include: SnakeCaseList(c.Query("include")),
	}

	filter, err := decodeSpecParam(c.Query("filter"), "filter")
	if err != nil {
		return domain.ListParams{}, err
	}
	params.Filter = filter

	join, err := decodeSpecParam(c.Query("join"), "join")
	if err != nil {
		return domain.ListParams{}, err
	}
	params.Join = join

	return params, nil
}

// orderByParam accepts both snake_case and camelCase parameter spellings.
func orderByParam(c *gin.Context) string {
	if v := c.Query("order_by"); v != "" {
		return v
	}
	return c.Query("orderBy")
}

// decodeSpecParam parses a JSON-encoded filter/join parameter and normalizes
// its keys to snake_case. Empty and "{}"-style no-op values yield nil.
func decodeSpecParam(raw, name string) (any, error) {
	if raw == "" {
		return nil, nil
	}

	var spec any
	if err := json.Unmarshal([]byte(raw), &spec); err != nil {
		return nil, domain.NewAppError(domain.CodeInvalidFilter,
			"invalid "+name+" parameter", err)
	}

	spec = NormalizeKeys(spec)
	if m, ok := spec.(map[string]any); ok && len(m) == 0 {
		return nil, nil
	}
	if l, ok := spec.([]any); ok && len(l) == 0 {
		return nil, nil
	}
	return spec, nil
}
