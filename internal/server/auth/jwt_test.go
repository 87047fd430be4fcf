package auth

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/gophadmin/internal/common"
	"github.com/dmitrijs2005/gophadmin/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")
	in := &models.Identity{ID: "user-123", Email: "a@example.com", DisplayName: "Ann", Roles: []string{"editor"}}

	tok, err := GenerateToken(in, secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "user-123", claims.Subject)

	out := claims.Identity()
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Email, out.Email)
	assert.Equal(t, in.DisplayName, out.DisplayName)
	assert.Equal(t, []string{"editor"}, out.Roles)
}

func TestParseToken_Expired(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken(&models.Identity{ID: "u1"}, []byte("secret"), -time.Second)
	require.NoError(t, err)

	_, err = ParseToken(tok, []byte("secret"))
	require.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestParseToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken(&models.Identity{ID: "u2"}, []byte("right-secret"), time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(tok, []byte("wrong-secret"))
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParseToken_Malformed(t *testing.T) {
	t.Parallel()

	_, err := ParseToken("not.a.jwt", []byte("k"))
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{UserID: "u3"})
	signed, err := tok.SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = ParseToken(signed, []byte("k"))
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestParseToken_RequiresUserID(t *testing.T) {
	t.Parallel()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{})
	signed, err := tok.SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = ParseToken(signed, []byte("k"))
	require.ErrorIs(t, err, common.ErrInvalidToken)
}
