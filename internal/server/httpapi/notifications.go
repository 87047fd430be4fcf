package httpapi

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/gophadmin/internal/common"
	"github.com/dmitrijs2005/gophadmin/internal/server/push"
)

type deviceRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// registerDevice handles POST /notifications/devices
func (a *API) registerDevice(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	d, err := a.identities.RegisterDevice(r.Context(), currentIdentity(r).ID, req.Token, req.Platform)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, d)
}

type clickRequest struct {
	Tag    string            `json:"tag"`
	Action string            `json:"action"`
	Data   map[string]string `json:"data"`
}

// notificationClick handles POST /notifications/clicks: it forwards a click
// on a displayed notification to the push worker.
func (a *API) notificationClick(w http.ResponseWriter, r *http.Request) {
	if a.events == nil {
		respondError(w, r, http.StatusServiceUnavailable, CodeUnavailable, "push worker bus not configured", nil)
		return
	}

	var req clickRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if req.Tag == "" {
		a.fail(w, r, fmt.Errorf("%w: tag is required", common.ErrorValidation))
		return
	}

	ev := push.Event{Type: push.EventClick, Tag: req.Tag, Action: req.Action, Data: req.Data}
	n, err := a.events.Publish(r.Context(), ev)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if n == 0 {
		respondError(w, r, http.StatusServiceUnavailable, CodeUnavailable, "no push worker is listening", nil)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
