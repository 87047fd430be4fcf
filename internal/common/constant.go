package common

// AuthorizationHeaderName carries "Bearer <token>" on inbound HTTP requests.
const AuthorizationHeaderName = "Authorization"

// RequestIDHeaderName is echoed back on every response and copied into
// envelope metadata.
const RequestIDHeaderName = "X-Request-Id"

// Role labels known to the server. Any other label is accepted from the
// identity provider but carries no special meaning.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleUser   = "user"
)
