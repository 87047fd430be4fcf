package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophadmin/internal/common"
	"github.com/dmitrijs2005/gophadmin/internal/server/models"
	"github.com/dmitrijs2005/gophadmin/internal/server/push"
	"github.com/go-chi/chi/v5/middleware"
)

// Error codes of the envelope error block.
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeBadRequest      = "BAD_REQUEST"
	CodeUnsupported     = "UNSUPPORTED_QUERY"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "ALREADY_EXISTS"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeForbidden       = "FORBIDDEN"
	CodeRateLimited     = "RATE_LIMITED"
	CodeNoDevices       = "NO_DEVICES"
	CodeUnavailable     = "UNAVAILABLE"
	CodeInternal        = "INTERNAL_ERROR"
)

var now = time.Now

func metadata(r *http.Request) *models.Metadata {
	return &models.Metadata{
		Timestamp: now(),
		RequestID: middleware.GetReqID(r.Context()),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respond writes a successful envelope around data.
func respond[T any](w http.ResponseWriter, r *http.Request, status int, data T) {
	writeJSON(w, status, models.Envelope[T]{
		Success:  true,
		Data:     &data,
		Metadata: metadata(r),
	})
}

// respondList writes a page of items with pagination metadata.
func respondList[T any](w http.ResponseWriter, r *http.Request, items []T, page, limit int, total int64) {
	if items == nil {
		items = []T{}
	}
	meta := metadata(r)
	meta.Pagination = models.NewPagination(page, limit, total)
	meta.TotalCount = &total
	writeJSON(w, http.StatusOK, models.Envelope[[]T]{
		Success:  true,
		Data:     &items,
		Metadata: meta,
	})
}

// respondError writes a failed envelope.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, msg string, details any) {
	writeJSON(w, status, models.Envelope[struct{}]{
		Success: false,
		Error: &models.ErrorInfo{
			Code:      code,
			Message:   msg,
			Details:   details,
			Timestamp: now(),
		},
		Metadata: metadata(r),
	})
}

// statusFor maps service errors to HTTP status and envelope code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, common.ErrUnsupportedQuery):
		return http.StatusBadRequest, CodeUnsupported
	case errors.Is(err, common.ErrForeignObjectURL):
		return http.StatusBadRequest, CodeBadRequest
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, push.ErrNoDevices):
		return http.StatusNotFound, CodeNoDevices
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, CodeUnauthenticated
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden, CodeForbidden
	}
	return http.StatusInternalServerError, CodeInternal
}

// fail maps err and writes it. Internal errors are logged and replaced by a
// generic message.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		a.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		msg = http.StatusText(status)
	}
	respondError(w, r, status, code, msg, nil)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(common.ErrorValidation, err)
	}
	return nil
}
