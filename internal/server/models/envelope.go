package models

import "time"

// Envelope wraps every JSON response body.
type Envelope[T any] struct {
	Success  bool       `json:"success"`
	Data     *T         `json:"data,omitempty"`
	Message  string     `json:"message,omitempty"`
	Error    *ErrorInfo `json:"error,omitempty"`
	Metadata *Metadata  `json:"metadata,omitempty"`
}

// ErrorInfo is the structured error block of a failed response.
type ErrorInfo struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   any       `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Metadata carries request-scoped information about a response.
type Metadata struct {
	Timestamp  time.Time   `json:"timestamp"`
	RequestID  string      `json:"requestId,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	TotalCount *int64      `json:"totalCount,omitempty"`
}

// Pagination describes the page a list response covers.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
	HasPrev    bool  `json:"hasPrev"`
}

// NewPagination fills the derived fields from page, limit and total.
func NewPagination(page, limit int, total int64) *Pagination {
	p := &Pagination{Page: page, Limit: limit, Total: total}
	if limit > 0 {
		p.TotalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	p.HasNext = page < p.TotalPages
	p.HasPrev = page > 1
	return p
}
