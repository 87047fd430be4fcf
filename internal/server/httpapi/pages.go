package httpapi

import (
	"net/http"
)

type healthResponse struct {
	Status string `json:"status"`
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, healthResponse{Status: "ok"})
}

// clientConfig is the public web configuration of the managed backend, as
// the browser application needs it to initialize its SDK.
type clientConfig struct {
	APIKey            string `json:"apiKey,omitempty"`
	AuthDomain        string `json:"authDomain,omitempty"`
	ProjectID         string `json:"projectId,omitempty"`
	StorageBucket     string `json:"storageBucket,omitempty"`
	MessagingSenderID string `json:"messagingSenderId,omitempty"`
	AppID             string `json:"appId,omitempty"`
	MeasurementID     string `json:"measurementId,omitempty"`
}

func (a *API) clientConfig(w http.ResponseWriter, r *http.Request) {
	f := a.cfg.Firebase
	respond(w, r, http.StatusOK, clientConfig{
		APIKey:            f.APIKey,
		AuthDomain:        f.AuthDomain,
		ProjectID:         f.ProjectID,
		StorageBucket:     f.StorageBucket,
		MessagingSenderID: f.MessagingSenderID,
		AppID:             f.AppID,
		MeasurementID:     f.MeasurementID,
	})
}

// signIn is where the guard sends anonymous callers.
func (a *API) signIn(w http.ResponseWriter, r *http.Request) {
	respondError(w, r, http.StatusUnauthorized, CodeUnauthenticated, "sign in required", map[string]string{
		"login": "/auth/login",
	})
}

// unauthorized is where the guard sends callers lacking a role.
func (a *API) unauthorized(w http.ResponseWriter, r *http.Request) {
	respondError(w, r, http.StatusForbidden, CodeForbidden, "insufficient role", nil)
}
