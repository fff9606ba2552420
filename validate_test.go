package folio

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestValidatorUsesJSONNames(t *testing.T) {
	tests := []struct {
		req   setupRequest
		field string
		msg   string
	}{
		{setupRequest{Email: "ada@example.com", Password: "x"}, "username", "username is required"},
		{setupRequest{Username: "ada", Email: "ada", Password: "x"}, "email", "email is not a valid address"},
		{setupRequest{Username: strings.Repeat("a", 51), Email: "ada@example.com", Password: "x"}, "username", "username is too long"},
	}
	for _, tt := range tests {
		err := requestValidator{}.Validate(&tt.req)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, tt.field, ve.Field)
		assert.Equal(t, tt.msg, ve.Error())
	}
	assert.NoError(t, requestValidator{}.Validate(&setupRequest{Username: "ada", Email: "ada@example.com", Password: "x"}))
}

func TestCheckVarNamesTheField(t *testing.T) {
	err := checkVar("email", "not-an-address", "required,email")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "email", ve.Field)
	assert.NoError(t, checkVar("email", "ada@example.com", "required,email"))
}

func TestContactInputLimits(t *testing.T) {
	in := ContactInput{Name: "  Ada ", Email: " Ada@Example.com", Content: strings.Repeat("x", 5001)}
	err := in.normalize()
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "content", ve.Field)

	in.Content = " hello "
	require.NoError(t, in.normalize())
	assert.Equal(t, "Ada", in.Name)
	assert.Equal(t, "ada@example.com", in.Email)
	assert.Equal(t, "hello", in.Content)
}
