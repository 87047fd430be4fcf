package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/gophadmin/internal/common"
	"github.com/dmitrijs2005/gophadmin/internal/logging"
	"github.com/dmitrijs2005/gophadmin/internal/server/models"
)

// Verifier turns a bearer token into the identity it was issued for.
type Verifier interface {
	Verify(ctx context.Context, token string) (*models.Identity, error)
}

// JWTVerifier checks tokens issued by GenerateToken.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secretKey string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secretKey)}
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (*models.Identity, error) {
	claims, err := ParseToken(token, v.secret)
	if err != nil {
		return nil, err
	}
	return claims.Identity(), nil
}

// ChainVerifier accepts a token when any of its verifiers does, trying them
// in order. The errors of all verifiers are joined when none accepts it.
type ChainVerifier []Verifier

func (c ChainVerifier) Verify(ctx context.Context, token string) (*models.Identity, error) {
	errs := make([]error, 0, len(c))
	for _, v := range c {
		identity, err := v.Verify(ctx, token)
		if err == nil {
			return identity, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, common.ErrInvalidToken
	}
	return nil, errors.Join(errs...)
}

// BearerToken extracts the token from an "Authorization: Bearer ..." header.
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get(common.AuthorizationHeaderName))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// Authenticate resolves the bearer token of every request into a Session.
// Requests without a usable token continue with an empty session; deciding
// what an anonymous caller may reach is the guard's job.
func Authenticate(v Verifier, logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			session := Session{}

			if token := BearerToken(r); token != "" {
				identity, err := v.Verify(ctx, token)
				if err != nil {
					logger.Warn(ctx, "rejected access token", "error", err, "remote_addr", r.RemoteAddr)
				} else {
					session.Identity = identity
				}
			}

			next.ServeHTTP(w, r.WithContext(WithSession(ctx, session)))
		})
	}
}
