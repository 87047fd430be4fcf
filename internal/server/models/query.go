package models

// Filter operators understood by QueryOptions.
const (
	OpEqual       = "eq"
	OpNotEqual    = "ne"
	OpLess        = "lt"
	OpLessOrEq    = "lte"
	OpGreater     = "gt"
	OpGreaterOrEq = "gte"
	OpContains    = "contains"
	OpIn          = "in"
)

// Logical connectors joining a filter to the ones before it.
const (
	LogicAnd = "and"
	LogicOr  = "or"
)

// Sort directions.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// QueryFilter is one condition of a query.
type QueryFilter struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
	Logic    string `json:"logic,omitempty"`
}

// QuerySort orders results by one field.
type QuerySort struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// QueryOptions describes filtering, ordering and paging of a list request.
type QueryOptions struct {
	Filters []QueryFilter `json:"filters,omitempty"`
	Sort    []QuerySort   `json:"sort,omitempty"`
	Limit   int           `json:"limit,omitempty"`
	Page    int           `json:"page,omitempty"`
	Include []string      `json:"include,omitempty"`
}

// Offset is the number of rows skipped before the requested page.
func (q QueryOptions) Offset() int {
	if q.Page <= 1 || q.Limit <= 0 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}
