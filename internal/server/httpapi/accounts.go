package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/gophadmin/internal/server/identity"
	"github.com/dmitrijs2005/gophadmin/internal/server/models"
)

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string           `json:"accessToken"`
	TokenType   string           `json:"tokenType"`
	User        *models.Identity `json:"user"`
}

// register handles POST /auth/register
func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	u, err := a.identities.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, u)
}

// login handles POST /auth/login
func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	token, u, err := a.identities.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, loginResponse{AccessToken: token, TokenType: "Bearer", User: u})
}

// me handles GET /me
func (a *API) me(w http.ResponseWriter, r *http.Request) {
	u, err := a.identities.Get(r.Context(), currentIdentity(r).ID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, u)
}

// updateProfile handles PATCH /me/profile
func (a *API) updateProfile(w http.ResponseWriter, r *http.Request) {
	var upd identity.ProfileUpdate
	if err := decodeJSON(r, &upd); err != nil {
		a.fail(w, r, err)
		return
	}

	u, err := a.identities.UpdateProfile(r.Context(), currentIdentity(r).ID, upd)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, u)
}
