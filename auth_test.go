package folio

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthenticatorRoundTrip(t *testing.T) {
	clock := newFakeClock()
	auth := NewAuthenticator("secret", time.Hour)
	auth.now = clock.Now

	token, issued, err := auth.Issue(Admin{ID: 7, Username: "ada"})
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)

	claims, err := auth.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "7", claims.Subject)
	assert.Equal(t, "ada", claims.Username)
	assert.Equal(t, issued.ID, claims.ID)

	_, second, err := auth.Issue(Admin{ID: 7})
	require.NoError(t, err)
	assert.NotEqual(t, issued.ID, second.ID, "every login gets its own id")

	clock.Advance(time.Hour + time.Second)
	_, err = auth.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticatorRejectsOtherAlgorithms(t *testing.T) {
	auth := NewAuthenticator("secret", time.Hour)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "1",
		ID:        "x",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = auth.Parse(none)
	assert.ErrorIs(t, err, ErrInvalidToken)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "1",
		ID:        "x",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = auth.Parse(hs512)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticatorRequiresExpiry(t *testing.T) {
	auth := NewAuthenticator("secret", time.Hour)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "1",
		ID:      "x",
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = auth.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswords(t *testing.T) {
	_, err := HashPassword("short")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "password", ve.Field)

	hash, err := HashPassword("long enough")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "long enough"))
	assert.False(t, CheckPassword(hash, "long enough!"))
}

func TestMissingAdminHashCostsLikeARealOne(t *testing.T) {
	hash := missingAdminHash()
	assert.Equal(t, hash, missingAdminHash())
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
	assert.False(t, CheckPassword(hash, "correct horse"))
}
