package auth

import (
	"context"

	"github.com/dmitrijs2005/gophadmin/internal/server/models"
)

// Session is the explicit identity context handed to access decisions.
// A zero Session means nobody is signed in.
type Session struct {
	Identity *models.Identity
}

// Authenticated reports whether the session carries an identity.
func (s Session) Authenticated() bool {
	return s.Identity != nil
}

type ctxKey struct{}

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// SessionFrom returns the session stored in ctx, or a zero Session.
func SessionFrom(ctx context.Context) Session {
	s, _ := ctx.Value(ctxKey{}).(Session)
	return s
}
