package identity

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophadmin/internal/common"
	"github.com/dmitrijs2005/gophadmin/internal/server/models"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageSize clamps a requested page size to [1, MaxPageSize], defaulting to
// DefaultPageSize.
func PageSize(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageSize
	case limit > MaxPageSize:
		return MaxPageSize
	}
	return limit
}

// listColumns maps the public field names clients may filter and sort on to
// SQL columns. Anything else is rejected.
var listColumns = map[string]string{
	"id":          "u.id",
	"email":       "u.email",
	"displayName": "u.display_name",
	"createdAt":   "u.created_at",
	"updatedAt":   "u.updated_at",
}

// roleField filters on role membership and cannot be sorted on.
const roleField = "role"

var comparison = map[string]string{
	models.OpEqual:       "=",
	models.OpNotEqual:    "<>",
	models.OpLess:        "<",
	models.OpLessOrEq:    "<=",
	models.OpGreater:     ">",
	models.OpGreaterOrEq: ">=",
}

// listQuery is a compiled QueryOptions.
type listQuery struct {
	where   string
	orderBy string
	args    []any
	limit   int
	offset  int
}

// compileQuery turns q into parameterized SQL fragments. Filters are joined
// left to right by their logic connector and evaluated with SQL precedence.
func compileQuery(q models.QueryOptions) (*listQuery, error) {
	lq := &listQuery{}

	var where strings.Builder
	for i, f := range q.Filters {
		cond, args, err := compileFilter(f, len(lq.args)+1)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			switch strings.ToLower(f.Logic) {
			case "", models.LogicAnd:
				where.WriteString(" AND ")
			case models.LogicOr:
				where.WriteString(" OR ")
			default:
				return nil, fmt.Errorf("%w: logic %q", common.ErrUnsupportedQuery, f.Logic)
			}
		}
		where.WriteString(cond)
		lq.args = append(lq.args, args...)
	}
	if where.Len() > 0 {
		lq.where = " WHERE " + where.String()
	}

	order := make([]string, 0, len(q.Sort)+1)
	for _, s := range q.Sort {
		col, ok := listColumns[s.Field]
		if !ok {
			return nil, fmt.Errorf("%w: sort field %q", common.ErrUnsupportedQuery, s.Field)
		}
		switch strings.ToLower(s.Direction) {
		case "", models.SortAsc:
			order = append(order, col+" ASC")
		case models.SortDesc:
			order = append(order, col+" DESC")
		default:
			return nil, fmt.Errorf("%w: sort direction %q", common.ErrUnsupportedQuery, s.Direction)
		}
	}
	if len(order) == 0 {
		order = append(order, "u.created_at DESC")
	}
	order = append(order, "u.id ASC")
	lq.orderBy = " ORDER BY " + strings.Join(order, ", ")

	lq.limit = PageSize(q.Limit)
	q.Limit = lq.limit
	lq.offset = q.Offset()

	return lq, nil
}

func compileFilter(f models.QueryFilter, n int) (string, []any, error) {
	var col string
	if f.Field == roleField {
		col = "ur.role"
	} else {
		c, ok := listColumns[f.Field]
		if !ok {
			return "", nil, fmt.Errorf("%w: filter field %q", common.ErrUnsupportedQuery, f.Field)
		}
		col = c
	}

	var cond string
	var args []any
	switch op := f.Operator; op {
	case models.OpContains:
		cond = col + "::text ILIKE $" + strconv.Itoa(n)
		args = []any{"%" + escapeLike(fmt.Sprint(f.Value)) + "%"}
	case models.OpIn:
		values := inValues(f.Value)
		if len(values) == 0 {
			return "", nil, fmt.Errorf("%w: empty in-list for %q", common.ErrUnsupportedQuery, f.Field)
		}
		ph := make([]string, len(values))
		for i, v := range values {
			ph[i] = "$" + strconv.Itoa(n+i)
			args = append(args, v)
		}
		cond = col + " IN (" + strings.Join(ph, ", ") + ")"
	default:
		sqlOp, ok := comparison[op]
		if !ok {
			return "", nil, fmt.Errorf("%w: operator %q", common.ErrUnsupportedQuery, op)
		}
		cond = col + " " + sqlOp + " $" + strconv.Itoa(n)
		args = []any{f.Value}
	}

	if f.Field == roleField {
		cond = "EXISTS (SELECT 1 FROM user_roles ur WHERE ur.user_id = u.id AND " + cond + ")"
	}
	return cond, args, nil
}

func inValues(v any) []any {
	var out []any
	switch vv := v.(type) {
	case []any:
		out = vv
	case []string:
		for _, s := range vv {
			out = append(out, s)
		}
	case string:
		for _, s := range strings.Split(vv, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case nil:
	default:
		out = []any{vv}
	}
	return out
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
