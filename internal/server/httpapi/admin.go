package httpapi

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/gophadmin/internal/common"
	"github.com/dmitrijs2005/gophadmin/internal/server/identity"
	"github.com/dmitrijs2005/gophadmin/internal/server/models"
	"github.com/go-chi/chi/v5"
)

// listUsers handles GET /admin/users
func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	q, err := parseQueryOptions(r.URL.Query())
	if err != nil {
		a.fail(w, r, err)
		return
	}

	users, total, err := a.identities.List(r.Context(), q)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondList(w, r, users, q.Page, identity.PageSize(q.Limit), total)
}

type rolesRequest struct {
	Roles []string `json:"roles"`
}

// setRoles handles PUT /admin/users/{id}/roles
func (a *API) setRoles(w http.ResponseWriter, r *http.Request) {
	var req rolesRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	u, err := a.identities.SetRoles(r.Context(), chi.URLParam(r, "id"), req.Roles)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, u)
}

type sendNotificationRequest struct {
	UserID  string             `json:"userId"`
	Payload models.PushPayload `json:"payload"`
}

type sendNotificationResponse struct {
	Devices   int `json:"devices"`
	Delivered int `json:"delivered"`
}

// sendNotification handles POST /admin/notifications
func (a *API) sendNotification(w http.ResponseWriter, r *http.Request) {
	var req sendNotificationRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if req.UserID == "" {
		a.fail(w, r, fmt.Errorf("%w: userId is required", common.ErrorValidation))
		return
	}

	tokens, err := a.identities.DeviceTokens(r.Context(), req.UserID)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	n, err := a.dispatcher.Send(r.Context(), tokens, req.Payload)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.logger.Info(r.Context(), "notification sent", "user_id", req.UserID, "devices", len(tokens), "delivered", n)
	respond(w, r, http.StatusAccepted, sendNotificationResponse{Devices: len(tokens), Delivered: n})
}
