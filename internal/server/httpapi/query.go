package httpapi

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophadmin/internal/common"
	"github.com/dmitrijs2005/gophadmin/internal/server/models"
)

// parseQueryOptions reads list parameters from the query string:
//
//	filter=field:op:value   repeatable; prefix with "or:" to OR it with the previous one
//	sort=field:asc|desc     repeatable
//	limit, page             positive integers
//	include=a,b
func parseQueryOptions(v url.Values) (models.QueryOptions, error) {
	var q models.QueryOptions

	for _, raw := range v["filter"] {
		logic := ""
		if rest, ok := strings.CutPrefix(raw, models.LogicOr+":"); ok {
			logic, raw = models.LogicOr, rest
		} else if rest, ok := strings.CutPrefix(raw, models.LogicAnd+":"); ok {
			logic, raw = models.LogicAnd, rest
		}
		parts := strings.SplitN(raw, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			return q, fmt.Errorf("%w: filter %q, want field:op:value", common.ErrUnsupportedQuery, raw)
		}
		q.Filters = append(q.Filters, models.QueryFilter{
			Field:    parts[0],
			Operator: parts[1],
			Value:    parts[2],
			Logic:    logic,
		})
	}

	for _, raw := range v["sort"] {
		field, dir, _ := strings.Cut(raw, ":")
		if field == "" {
			return q, fmt.Errorf("%w: empty sort field", common.ErrUnsupportedQuery)
		}
		if dir == "" {
			dir = models.SortAsc
		}
		q.Sort = append(q.Sort, models.QuerySort{Field: field, Direction: dir})
	}

	var err error
	if q.Limit, err = positiveInt(v.Get("limit")); err != nil {
		return q, fmt.Errorf("%w: limit: %v", common.ErrorValidation, err)
	}
	if q.Page, err = positiveInt(v.Get("page")); err != nil {
		return q, fmt.Errorf("%w: page: %v", common.ErrorValidation, err)
	}
	if q.Page == 0 {
		q.Page = 1
	}

	if inc := v.Get("include"); inc != "" {
		for _, s := range strings.Split(inc, ",") {
			if s = strings.TrimSpace(s); s != "" {
				q.Include = append(q.Include, s)
			}
		}
	}
	return q, nil
}

func positiveInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}
