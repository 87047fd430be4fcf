package auth

import (
	"context"
	"fmt"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/dmitrijs2005/gophadmin/internal/common"
	"github.com/dmitrijs2005/gophadmin/internal/server/models"
)

// idTokenVerifier is the part of *fbauth.Client the verifier uses.
type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// FirebaseVerifier checks ID tokens minted by the managed identity provider.
// Roles come from the "roles" (list) or "role" (string) custom claims.
type FirebaseVerifier struct {
	client idTokenVerifier
}

func NewFirebaseVerifier(client idTokenVerifier) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*models.Identity, error) {
	t, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	identity := &models.Identity{
		ID:          t.UID,
		Email:       claimString(t.Claims, "email"),
		DisplayName: claimString(t.Claims, "name"),
		Roles:       claimRoles(t.Claims),
		Provider:    models.ProviderFirebase,
	}
	return identity, nil
}

func claimString(claims map[string]any, key string) string {
	s, _ := claims[key].(string)
	return s
}

func claimRoles(claims map[string]any) []string {
	var roles []string
	if list, ok := claims["roles"].([]any); ok {
		for _, r := range list {
			if s, ok := r.(string); ok && s != "" {
				roles = append(roles, s)
			}
		}
	}
	if role := claimString(claims, "role"); role != "" && len(roles) == 0 {
		roles = append(roles, role)
	}
	return roles
}
