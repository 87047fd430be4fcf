// Package models defines the data contracts shared by the server, the push
// worker and the HTTP API: identities, roles, upload results, response
// envelopes, query options and push payloads.
package models

import "time"

// Identity is an authenticated principal as known to this application.
type Identity struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	DisplayName  string       `json:"displayName"`
	Roles        []string     `json:"roles"`
	Permissions  []Permission `json:"permissions,omitempty"`
	Profile      *Profile     `json:"profile,omitempty"`
	Preferences  *Preferences `json:"preferences,omitempty"`
	PasswordHash string       `json:"-"`
	// Provider names the external identity provider that vouched for the
	// principal; empty for accounts registered here.
	Provider  string    `json:"provider,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProviderFirebase marks identities verified by the managed identity provider.
const ProviderFirebase = "firebase"

// PrimaryRole is the role used for access decisions: the first label, or
// "user" when the identity carries none.
func (i *Identity) PrimaryRole() string {
	if i == nil || len(i.Roles) == 0 || i.Roles[0] == "" {
		return "user"
	}
	return i.Roles[0]
}

// HasRole reports whether role is among the identity's labels.
func (i *Identity) HasRole(role string) bool {
	if i == nil {
		return false
	}
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Profile holds optional, user-editable presentation fields.
type Profile struct {
	AvatarURL string `json:"avatarUrl,omitempty"`
	Bio       string `json:"bio,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Company   string `json:"company,omitempty"`
}

// Preferences holds per-user settings.
type Preferences struct {
	Language      string `json:"language,omitempty"`
	Theme         string `json:"theme,omitempty"`
	Notifications bool   `json:"notifications"`
}

// Role is a label with the permission identifiers granted to it. The list is
// trusted as delivered by the backend.
type Role struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions"`
}

// Permission is a named (resource, action) pair, e.g. ("users", "write").
type Permission struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
}
